// Package storage persists the analytics log and answers session accounting queries.
package storage

import (
	"context"

	"github.com/hyperjump/tayyib/internal/models"
)

// Storage defines analytics persistence operations.
type Storage interface {
	// Record appends one analytics row. Timestamp defaults to now.
	Record(ctx context.Context, ev *models.AnalyticsEvent) error
	// CountPriorTurns returns how many rows a session has logged in mode.
	CountPriorTurns(ctx context.Context, sessionID string, mode models.Mode) (int, error)
	// ListEvents returns rows newest first.
	ListEvents(ctx context.Context, offset, limit int) ([]*models.AnalyticsEvent, error)
	// RouteCounts returns the number of request rows per route label.
	RouteCounts(ctx context.Context) (map[string]int64, error)
	// CountEvents returns the total number of rows.
	CountEvents(ctx context.Context) (int64, error)

	Close() error
}
