package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/internal/testdb"
	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
)

func seedEvent(t *testing.T, conn *gorm.DB, publishedAt *time.Time) uuid.UUID {
	t.Helper()
	event := models.OutboxEvent{
		EventType:     enums.EventOrderSettled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		PublishedAt:   publishedAt,
	}
	require.NoError(t, conn.Create(&event).Error)
	return event.ID
}

func TestRepositoryDeletePublishedBeforeBatches(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	cutoff := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	old := cutoff.Add(-48 * time.Hour)
	recent := cutoff.Add(time.Hour)
	for i := 0; i < 3; i++ {
		seedEvent(t, conn, &old)
	}
	keepRecent := seedEvent(t, conn, &recent)
	keepPending := seedEvent(t, conn, nil)

	var first int64
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		first, err = repo.DeletePublishedBefore(ctx, tx, cutoff, 2)
		return err
	}))
	assert.EqualValues(t, 2, first)

	var second int64
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		second, err = repo.DeletePublishedBefore(ctx, tx, cutoff, 2)
		return err
	}))
	assert.EqualValues(t, 1, second)

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Order("created_at").Find(&remaining).Error)
	ids := []uuid.UUID{}
	for _, row := range remaining {
		ids = append(ids, row.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{keepRecent, keepPending}, ids)
}

func TestRepositoryMarkFailedCountsAttempts(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	id := seedEvent(t, conn, nil)

	cause := errors.New(strings.Repeat("x", maxLastErrorLen+50))
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		if err := repo.MarkFailedTx(tx, id, cause); err != nil {
			return err
		}
		return repo.MarkFailedTx(tx, id, cause)
	}))

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row, "id = ?", id).Error)
	assert.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Len(t, *row.LastError, maxLastErrorLen)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return repo.MarkTerminalTx(tx, id, cause, 5)
	}))
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 5)
		assert.Empty(t, rows)
		return err
	}))
}

func TestRepositoryWritesRequireTransaction(t *testing.T) {
	repo := NewRepository(nil)
	assert.ErrorIs(t, repo.MarkPublishedTx(nil, uuid.New()), errTxRequired)
	_, err := repo.DeletePublishedBefore(context.Background(), nil, time.Now(), 10)
	assert.ErrorIs(t, err, errTxRequired)
}
