package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	"github.com/threadloom/storefront-backend/pkg/outbox"
)

type stubDeadLetters struct {
	filter outbox.DLQFilter
	rows   []models.OutboxDLQ
	total  int64
	err    error
	calls  int
}

func (s *stubDeadLetters) List(_ context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, int64, error) {
	s.calls++
	s.filter = filter
	return s.rows, s.total, s.err
}

func TestAdminDeadLettersListsEntries(t *testing.T) {
	t.Parallel()

	msg := "topic not found"
	repo := &stubDeadLetters{
		rows: []models.OutboxDLQ{{
			ID:            uuid.New(),
			EventID:       uuid.New(),
			EventType:     enums.EventOrderSettled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"order_number":"SF-20261019-000001"}`),
			ErrorReason:   enums.OutboxDLQReasonNonRetryable,
			ErrorMessage:  &msg,
			AttemptCount:  1,
			FailedAt:      time.Now().UTC(),
		}},
		total: 3,
	}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/admin/v1/outbox/dead-letters?limit=1&reason=NON_RETRYABLE&event_type=order_settled", "", admin(), nil)
	AdminDeadLetters(repo, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.filter.Reason == nil || *repo.filter.Reason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("reason filter not applied: %+v", repo.filter)
	}
	if repo.filter.EventType == nil || *repo.filter.EventType != enums.EventOrderSettled {
		t.Fatalf("event type filter not applied: %+v", repo.filter)
	}
	if repo.filter.Page.Limit != 1 {
		t.Fatalf("expected limit 1 got %d", repo.filter.Page.Limit)
	}

	var out deadLetterList
	decodeData(t, rec, &out)
	if len(out.Entries) != 1 || !out.HasMore || out.Total != 3 {
		t.Fatalf("unexpected list %+v", out)
	}
	if out.Entries[0].Reason != "non_retryable" || out.Entries[0].Error == nil {
		t.Fatalf("unexpected entry %+v", out.Entries[0])
	}
}

func TestAdminDeadLettersRejectsUnknownReason(t *testing.T) {
	t.Parallel()

	repo := &stubDeadLetters{}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/admin/v1/outbox/dead-letters?reason=timeout", "", admin(), nil)
	AdminDeadLetters(repo, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if repo.calls != 0 {
		t.Fatal("repository should not be queried")
	}
	if body := decodeError(t, rec); body.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
}

func TestAdminDeadLettersMapsStoreFailure(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/admin/v1/outbox/dead-letters", "", admin(), nil)
	AdminDeadLetters(&stubDeadLetters{err: errors.New("connection reset")}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}
