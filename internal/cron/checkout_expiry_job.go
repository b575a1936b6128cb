package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/internal/checkout"
	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	"github.com/threadloom/storefront-backend/pkg/logger"
	"github.com/threadloom/storefront-backend/pkg/outbox"
	"github.com/threadloom/storefront-backend/pkg/outbox/payloads"
)

const (
	defaultExpiryBatch  = 200
	defaultPendingGrace = 30 * time.Minute
)

type expirableSessionReader interface {
	ListExpirable(ctx context.Context, now time.Time, pendingGrace time.Duration, limit int) ([]models.CheckoutSession, error)
}

type sessionExpirer interface {
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
}

type sessionExpirerFactory func(tx *gorm.DB) sessionExpirer

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CheckoutExpiryJobParams configure the stale checkout session sweep.
type CheckoutExpiryJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Sessions     *checkout.Repository
	Outbox       outboxEmitter
	PendingGrace time.Duration
	BatchSize    int
}

// NewCheckoutExpiryJob expires open sessions past expires_at and
// payment-pending sessions past expires_at plus the grace period. The grace
// leaves room for a payment captured just before expiry to settle.
func NewCheckoutExpiryJob(params CheckoutExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	grace := params.PendingGrace
	if grace <= 0 {
		grace = defaultPendingGrace
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	sessions := params.Sessions
	return &checkoutExpiryJob{
		logg:   params.Logger,
		db:     params.DB,
		reader: sessions,
		expirers: func(tx *gorm.DB) sessionExpirer {
			return sessions.WithTx(tx)
		},
		outbox: params.Outbox,
		grace:  grace,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type checkoutExpiryJob struct {
	logg     *logger.Logger
	db       txRunner
	reader   expirableSessionReader
	expirers sessionExpirerFactory
	outbox   outboxEmitter
	grace    time.Duration
	batch    int
	now      func() time.Time
}

func (j *checkoutExpiryJob) Name() string { return "checkout-session-expiry" }

func (j *checkoutExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	sessions, err := j.reader.ListExpirable(ctx, now, j.grace, j.batch)
	if err != nil {
		return fmt.Errorf("query expirable sessions: %w", err)
	}
	var errs error
	expired := 0
	for _, session := range sessions {
		changed, err := j.expire(ctx, session, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire session %s: %w", session.ID, err))
			continue
		}
		if changed {
			expired++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(sessions),
		"expired":    expired,
	})
	j.logg.Info(logCtx, "checkout session expiry loop complete")
	return errs
}

func (j *checkoutExpiryJob) expire(ctx context.Context, session models.CheckoutSession, now time.Time) (bool, error) {
	changed := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := j.expirers(tx).MarkExpired(ctx, session.ID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		changed = true
		return j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCheckoutSessionExpired,
			AggregateType: enums.AggregateCheckoutSession,
			AggregateID:   session.ID,
			OccurredAt:    now,
			Data: payloads.CheckoutSessionExpiredEvent{
				CheckoutSessionID: session.ID,
				PreviousStatus:    session.Status,
				GatewayOrderID:    session.GatewayOrderID,
				ExpiredAt:         now,
			},
		})
	})
	return changed, err
}
