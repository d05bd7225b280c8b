package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/claimdesk/internal/application/service"
)

// IncompleteClaimRetrier is the part of the claim service the retry job needs
type IncompleteClaimRetrier interface {
	RetryIncomplete(ctx context.Context, limit int) (*service.RetryReport, error)
}

// AttachmentRetrier re-uploads staged documents of claims flagged incomplete
type AttachmentRetrier struct {
	claims    IncompleteClaimRetrier
	batchSize int
}

// NewAttachmentRetrier creates the retry job
func NewAttachmentRetrier(claims IncompleteClaimRetrier, batchSize int) *AttachmentRetrier {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &AttachmentRetrier{claims: claims, batchSize: batchSize}
}

func (j *AttachmentRetrier) Name() string { return "attachment-retry" }

func (j *AttachmentRetrier) Run(ctx context.Context) error {
	_, err := j.claims.RetryIncomplete(ctx, j.batchSize)
	return err
}

// ExpiredAuthPurger is implemented by auth backends that keep sessions and invites
type ExpiredAuthPurger interface {
	PurgeExpired(ctx context.Context) (sessions, invites int64, err error)
}

// AuthHousekeeper deletes expired sessions and expires stale invites
type AuthHousekeeper struct {
	purger ExpiredAuthPurger
	logger *zap.Logger
}

// NewAuthHousekeeper creates the housekeeping job
func NewAuthHousekeeper(purger ExpiredAuthPurger, logger *zap.Logger) *AuthHousekeeper {
	return &AuthHousekeeper{purger: purger, logger: logger}
}

func (j *AuthHousekeeper) Name() string { return "auth-housekeeping" }

func (j *AuthHousekeeper) Run(ctx context.Context) error {
	sessions, invites, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if sessions > 0 || invites > 0 {
		j.logger.Info("Purged expired auth records",
			zap.Int64("sessions", sessions),
			zap.Int64("invites", invites))
	}
	return nil
}
