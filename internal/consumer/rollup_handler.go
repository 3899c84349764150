package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/analytics/internal/domain"
	"example.com/analytics/internal/events"
)

// WeeklyRecomputer recomputes a team's weekly metrics for a given week ending.
type WeeklyRecomputer interface {
	RecomputeWeeklyMetrics(ctx context.Context, tenantID, teamID string, weekEnding time.Time) (*domain.TeamMetrics, error)
}

// RollupHandler reconciles weekly rollups from consumed productivity events.
// The API write path already triggers the rollup in process; this handler
// re-runs it asynchronously so a crashed or failed in-process trigger heals
// on replay. The recompute is idempotent, so double execution is harmless.
type RollupHandler struct {
	recomputer WeeklyRecomputer
}

// NewRollupHandler constructs a RollupHandler.
func NewRollupHandler(recomputer WeeklyRecomputer) *RollupHandler {
	return &RollupHandler{recomputer: recomputer}
}

// Handle recomputes the weekly rollup when the recorded day closes a week.
func (h *RollupHandler) Handle(ctx context.Context, msg Message) error {
	var event events.ProductivityRecorded
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode productivity.recorded payload: %w", err)
	}

	date, err := time.Parse("2006-01-02", event.Date)
	if err != nil {
		return fmt.Errorf("parse recorded date %q: %w", event.Date, err)
	}
	if !domain.IsWeekClosingDay(date) {
		return nil
	}

	_, err = h.recomputer.RecomputeWeeklyMetrics(ctx, event.TenantID, event.TeamID, date)
	return err
}

// Chain runs handlers in order, stopping at the first error.
func Chain(handlers ...Handler) Handler {
	return HandlerFunc(func(ctx context.Context, msg Message) error {
		for _, handler := range handlers {
			if err := handler.Handle(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	})
}
