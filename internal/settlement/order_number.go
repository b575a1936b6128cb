package settlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/pkg/logger"
)

const orderNumberCounter = "order_number"

// NumberGenerator hands out human-facing order numbers.
type NumberGenerator interface {
	Next(ctx context.Context, at time.Time) string
}

type counterClient interface {
	Incr(ctx context.Context, key string) (int64, error)
	CounterKey(name string) string
}

// CounterNumbers formats SF-YYYYMMDD-NNNNNN from a shared Redis counter and
// falls back to a random suffix when the counter is unreachable. The unique
// index on order_number catches the rare collision.
type CounterNumbers struct {
	client counterClient
	logg   *logger.Logger
}

func NewCounterNumbers(client counterClient, logg *logger.Logger) *CounterNumbers {
	return &CounterNumbers{client: client, logg: logg}
}

func (g *CounterNumbers) Next(ctx context.Context, at time.Time) string {
	prefix := "SF-" + at.UTC().Format("20060102") + "-"
	if g != nil && g.client != nil {
		n, err := g.client.Incr(ctx, g.client.CounterKey(orderNumberCounter))
		if err == nil {
			return fmt.Sprintf("%s%06d", prefix, n%1_000_000)
		}
		if g.logg != nil {
			g.logg.Error(ctx, "order number counter unavailable", err)
		}
	}
	return prefix + randomSuffix()
}

// randomSuffix starts with a letter so it never matches a counter value.
func randomSuffix() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "R" + raw[:5]
}
