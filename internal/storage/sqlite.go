package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tayyib/internal/models"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS analytics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		lang TEXT,
		mode TEXT NOT NULL,
		rating_1_5 INTEGER,
		time_on_screen_ms INTEGER,
		route_used TEXT,
		confidence REAL,
		sources_count INTEGER,
		error_code TEXT,
		latency_ms INTEGER,
		hashed_query TEXT,
		ts TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analytics_session_mode ON analytics(session_id, mode);
	`
	_, err := db.Exec(schema)
	return err
}

// Record inserts an analytics row.
func (s *SQLiteStorage) Record(ctx context.Context, ev *models.AnalyticsEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analytics
		   (session_id, lang, mode, rating_1_5, time_on_screen_ms, route_used, confidence,
		    sources_count, error_code, latency_ms, hashed_query, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.SessionID, nullString(string(ev.Lang)), string(ev.Mode), ev.Rating, ev.TimeOnScreenMS,
		nullString(ev.RouteUsed), ev.Confidence, ev.SourcesCount, nullString(string(ev.ErrorCode)),
		ev.LatencyMS, nullString(ev.HashedQuery), ev.Timestamp.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert analytics: %w", err)
	}
	return nil
}

// CountPriorTurns returns the number of rows logged for (sessionID, mode).
func (s *SQLiteStorage) CountPriorTurns(ctx context.Context, sessionID string, mode models.Mode) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analytics WHERE session_id = ? AND mode = ?`,
		sessionID, string(mode),
	).Scan(&count)
	return count, err
}

// ListEvents returns rows newest first.
func (s *SQLiteStorage) ListEvents(ctx context.Context, offset, limit int) ([]*models.AnalyticsEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, lang, mode, rating_1_5, time_on_screen_ms, route_used, confidence,
		        sources_count, error_code, latency_ms, hashed_query, ts
		 FROM analytics ORDER BY id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.AnalyticsEvent
	for rows.Next() {
		var (
			ev                                 models.AnalyticsEvent
			lang, route, code, hashed, ts, mod sql.NullString
			rating, sources                    sql.NullInt64
			onScreen, latency                  sql.NullInt64
			confidence                         sql.NullFloat64
		)
		if err := rows.Scan(&ev.SessionID, &lang, &mod, &rating, &onScreen, &route, &confidence,
			&sources, &code, &latency, &hashed, &ts); err != nil {
			return nil, err
		}
		ev.Lang = models.Lang(lang.String)
		ev.Mode = models.Mode(mod.String)
		ev.RouteUsed = route.String
		ev.ErrorCode = models.ErrorCode(code.String)
		ev.HashedQuery = hashed.String
		if rating.Valid {
			v := int(rating.Int64)
			ev.Rating = &v
		}
		if sources.Valid {
			v := int(sources.Int64)
			ev.SourcesCount = &v
		}
		if onScreen.Valid {
			ev.TimeOnScreenMS = &onScreen.Int64
		}
		if latency.Valid {
			ev.LatencyMS = &latency.Int64
		}
		if confidence.Valid {
			ev.Confidence = &confidence.Float64
		}
		if t, err := time.Parse(timestampLayout, ts.String); err == nil {
			ev.Timestamp = t
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// RouteCounts returns request rows grouped by route label. Feedback rows are excluded.
func (s *SQLiteStorage) RouteCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT route_used, COUNT(*) FROM analytics
		 WHERE mode != ? AND route_used IS NOT NULL GROUP BY route_used`,
		string(models.ModeFeedback),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var route string
		var n int64
		if err := rows.Scan(&route, &n); err != nil {
			return nil, err
		}
		counts[route] = n
	}
	return counts, rows.Err()
}

// CountEvents returns the total number of rows.
func (s *SQLiteStorage) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analytics`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
