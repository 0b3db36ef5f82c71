package auth

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/sessions"
)

// Store is the global session store for the account-activation flow.
// It carries short-lived state between the activation link landing and
// the client picking up the result.
var Store *sessions.CookieStore

// SessionName is the name of the activation session cookie.
const SessionName = "activation-session"

// Session value keys.
const (
	SessionKeyActivatedUser  = "activated_user_id"
	SessionKeyActivatedEmail = "activated_email"
)

// InitSessionStore initializes the cookie-based session store for the
// activation flow.
//
// The secret parameter is used to sign session cookies. It can be any
// passphrase - it will be SHA-256 hashed to derive a 32-byte key.
// The secret must be consistent across server restarts and multiple
// servers in a load-balanced deployment.
//
// The session has a short TTL (10 minutes) since it only needs to persist
// while the user lands from the activation link.
//
// Security settings:
// - HttpOnly: true (inaccessible to JavaScript)
// - Secure: true (HTTPS only in production)
// - SameSite: Strict (prevents CSRF)
func InitSessionStore(secret string) {
	// Hash the secret to get a consistent 32-byte key
	key := sha256.Sum256([]byte(secret))

	Store = sessions.NewCookieStore(key[:])
	Store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600, // 10 minutes (activation landing duration)
		HttpOnly: true,
		Secure:   true, // HTTPS only
		SameSite: http.SameSiteStrictMode,
	}
}

// GetSession retrieves the activation session from the request.
// Creates a new session if one doesn't exist.
func GetSession(r *http.Request) (*sessions.Session, error) {
	return Store.Get(r, SessionName)
}

// SaveSession saves the session to the response.
func SaveSession(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	return session.Save(r, w)
}

// ClearSessionValues removes activation values from the session.
func ClearSessionValues(session *sessions.Session) {
	delete(session.Values, SessionKeyActivatedUser)
	delete(session.Values, SessionKeyActivatedEmail)
}
