package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Privacy-conscious visitor record
type VisitorMetric struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

type AdminStats struct {
	TotalVisitors    int64           `json:"total_visitors"`
	UniqueVisitors   int64           `json:"unique_visitors"`
	VisitorsToday    int64           `json:"visitors_today"`
	VisitorsThisWeek int64           `json:"visitors_this_week"`
	ContactSent      int64           `json:"contact_sent"`
	ContactFailed    int64           `json:"contact_failed"`
	ContactRejected  int64           `json:"contact_rejected"`
	ActiveForms      int             `json:"active_forms"`
	RecentVisitors   []VisitorMetric `json:"recent_visitors"`
}

// Timestamps are unix seconds so range queries stay plain integer compares.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS visitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hashed_ip TEXT NOT NULL,
		user_agent TEXT,
		path TEXT,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visitors_created_at ON visitors (created_at)`,
	`CREATE TABLE IF NOT EXISTS contact_attempts (
		id TEXT PRIMARY KEY,
		outcome TEXT NOT NULL,
		hashed_ip TEXT,
		created_at INTEGER NOT NULL
	)`,
}

type store struct {
	db *sql.DB
}

func openStore(path string) (*store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &store{db: db}, nil
}

func (s *store) Close() error {
	return s.db.Close()
}

func (s *store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *store) recordVisit(ctx context.Context, hashedIP, userAgent, path string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path, created_at)
		VALUES (?, ?, ?, ?)
	`, hashedIP, userAgent, path, at.Unix())
	return err
}

func (s *store) recordContactAttempt(ctx context.Context, outcome, hashedIP string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contact_attempts (id, outcome, hashed_ip, created_at)
		VALUES (?, ?, ?, ?)
	`, uuid.NewString(), outcome, hashedIP, at.Unix())
	return err
}

// cleanupVisitors removes visit records older than cutoff.
func (s *store) cleanupVisitors(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM visitors WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *store) stats(ctx context.Context, now time.Time) (*AdminStats, error) {
	stats := &AdminStats{}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE created_at >= ?`, []any{today.Unix()}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE created_at >= ?`, []any{now.AddDate(0, 0, -7).Unix()}},
		{&stats.ContactSent, `SELECT COUNT(*) FROM contact_attempts WHERE outcome = 'sent'`, nil},
		{&stats.ContactFailed, `SELECT COUNT(*) FROM contact_attempts WHERE outcome = 'failed'`, nil},
		{&stats.ContactRejected, `SELECT COUNT(*) FROM contact_attempts WHERE outcome = 'rejected'`, nil},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, err
		}
	}

	recent, err := s.recentVisitors(ctx, 50)
	if err != nil {
		return nil, err
	}
	stats.RecentVisitors = recent
	return stats, nil
}

func (s *store) recentVisitors(ctx context.Context, limit int) ([]VisitorMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), created_at
		FROM visitors
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visitors []VisitorMetric
	for rows.Next() {
		var v VisitorMetric
		var ts int64
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, err
		}
		v.Timestamp = time.Unix(ts, 0)
		visitors = append(visitors, v)
	}
	return visitors, rows.Err()
}
