package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tempus-hq/timetracker-engine/pkg/database"
	"github.com/tempus-hq/timetracker-engine/pkg/mail"
	"github.com/tempus-hq/timetracker-engine/pkg/repositories"
)

// DispatcherConfig tunes the invitation outbox dispatcher.
type DispatcherConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// InvitationDispatcher drains the invitation outbox in the background.
// Provisioning only writes rows; delivery happens here, after commit, so a
// dead mail relay can never fail or roll back a provisioning request.
type InvitationDispatcher struct {
	invitations repositories.InvitationRepository
	tx          database.TxRunner
	mailer      mail.Mailer
	cfg         DispatcherConfig
	logger      *zap.Logger
}

// NewInvitationDispatcher creates a dispatcher. Zero config fields fall
// back to sane defaults.
func NewInvitationDispatcher(
	invitations repositories.InvitationRepository,
	tx database.TxRunner,
	mailer mail.Mailer,
	cfg DispatcherConfig,
	logger *zap.Logger,
) *InvitationDispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &InvitationDispatcher{
		invitations: invitations,
		tx:          tx,
		mailer:      mailer,
		cfg:         cfg,
		logger:      logger.Named("invitation-dispatcher"),
	}
}

// Run polls the outbox until ctx is cancelled. Call in its own goroutine.
func (d *InvitationDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DispatchOnce(ctx); err != nil {
				d.logger.Error("Outbox dispatch failed", zap.Error(err))
			}
		}
	}
}

// DispatchOnce claims one batch of pending invitations and attempts
// delivery. The claim holds row locks for the duration of the batch, and
// SKIP LOCKED keeps concurrent dispatchers off each other's rows.
func (d *InvitationDispatcher) DispatchOnce(ctx context.Context) error {
	return d.tx.InTx(ctx, func(ctx context.Context) error {
		batch, err := d.invitations.ClaimPending(ctx, d.cfg.BatchSize)
		if err != nil {
			return err
		}

		for _, invitation := range batch {
			if err := d.mailer.SendActivation(ctx, invitation.Email, invitation.Token); err != nil {
				d.logger.Warn("Activation mail delivery failed",
					zap.String("invitation_id", invitation.ID.String()),
					zap.Int("attempts", invitation.Attempts+1),
					zap.Error(err))
				if err := d.invitations.MarkFailed(ctx, invitation.ID, d.cfg.MaxAttempts); err != nil {
					return err
				}
				continue
			}
			if err := d.invitations.MarkSent(ctx, invitation.ID); err != nil {
				return err
			}
			d.logger.Info("Sent activation mail",
				zap.String("invitation_id", invitation.ID.String()))
		}
		return nil
	})
}
