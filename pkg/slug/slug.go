// Package slug derives URL-safe identifiers from display names.
package slug

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Make lowercases the input and collapses every run of non-alphanumeric
// characters into a single hyphen.
func Make(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		} else {
			pendingHyphen = true
		}
	}
	return b.String()
}

// maxSuffix bounds the collision probe so a pathological dataset cannot
// spin forever.
const maxSuffix = 10000

// Unique slugifies name and resolves collisions by appending -2, -3, ...
// exists reports whether a candidate slug is already taken.
func Unique(ctx context.Context, name string, exists func(context.Context, string) (bool, error)) (string, error) {
	base := Make(name)
	if base == "" {
		base = "untitled"
	}

	candidate := base
	for i := 2; i <= maxSuffix; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free slug for %q", base)
}
