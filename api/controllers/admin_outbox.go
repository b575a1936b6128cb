package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/api/responses"
	"github.com/threadloom/storefront-backend/api/validators"
	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/logger"
	"github.com/threadloom/storefront-backend/pkg/outbox"
)

// DeadLetterLister reads events the outbox publisher parked.
type DeadLetterLister interface {
	List(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, int64, error)
}

type deadLetterDTO struct {
	ID            uuid.UUID       `json:"id"`
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	Reason        string          `json:"reason"`
	Error         *string         `json:"error,omitempty"`
	Attempts      int             `json:"attempts"`
	Payload       json.RawMessage `json:"payload"`
	FailedAt      time.Time       `json:"failed_at"`
}

type deadLetterList struct {
	Entries []deadLetterDTO `json:"entries"`
	Total   int64           `json:"total"`
	HasMore bool            `json:"has_more"`
}

// AdminDeadLetters lists outbox events that exhausted their publish attempts.
func AdminDeadLetters(repo DeadLetterLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("outbox"))
			return
		}

		page, err := validators.ParsePage(r, 50, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := outbox.DLQFilter{Page: page}
		if raw := strings.TrimSpace(r.URL.Query().Get("reason")); raw != "" {
			reason, err := enums.ParseOutboxDLQErrorReason(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.ValidationField("reason", "must be max_attempts or non_retryable"))
				return
			}
			filter.Reason = &reason
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("event_type")); raw != "" {
			eventType, err := enums.ParseOutboxEventType(strings.ToLower(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.ValidationField("event_type", "unknown event type"))
				return
			}
			filter.EventType = &eventType
		}

		rows, total, err := repo.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}

		out := deadLetterList{
			Entries: make([]deadLetterDTO, 0, len(rows)),
			Total:   total,
			HasMore: page.HasMore(total),
		}
		for _, row := range rows {
			out.Entries = append(out.Entries, deadLetterDTO{
				ID:            row.ID,
				EventID:       row.EventID,
				EventType:     string(row.EventType),
				AggregateType: string(row.AggregateType),
				AggregateID:   row.AggregateID,
				Reason:        string(row.ErrorReason),
				Error:         row.ErrorMessage,
				Attempts:      row.AttemptCount,
				Payload:       row.Payload,
				FailedAt:      row.FailedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
