package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"hostel-analytics/models"
	"hostel-analytics/utils"

	_ "github.com/lib/pq"
)

// PostgresStore persists reconciled weeks, one row per (week, hostel)
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore creates a new PostgresStore and pings the DB
func NewPostgresStore(ctx context.Context, connStr string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Minute * 5)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	logger.Info("Connected to PostgreSQL successfully")
	return &PostgresStore{db: db, logger: logger}, nil
}

// CreateTable creates the week_metrics table if it doesn't exist
func (s *PostgresStore) CreateTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS week_metrics (
		period_label TEXT        NOT NULL,
		period_start TIMESTAMPTZ NOT NULL,
		hostel       TEXT        NOT NULL,
		metrics      JSONB       NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (period_label, hostel)
	);

	CREATE INDEX IF NOT EXISTS idx_week_metrics_start ON week_metrics (period_start);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	s.logger.Info("Table 'week_metrics' is ready")
	return nil
}

// Save upserts every hostel of week in a single transaction
func (s *PostgresStore) Save(ctx context.Context, week models.WeekRecord) (err error) {
	if len(week.Hostels) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO week_metrics (period_label, period_start, hostel, metrics, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (period_label, hostel)
		DO UPDATE SET period_start = EXCLUDED.period_start, metrics = EXCLUDED.metrics, updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for name, m := range week.Hostels {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to encode metrics for %s: %w", name, err)
		}
		if _, err = stmt.ExecContext(ctx, week.PeriodLabel, week.PeriodStart, name, payload); err != nil {
			return fmt.Errorf("failed to upsert %s/%s: %w", week.PeriodLabel, name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug("Saved week %s (%d hostels)", week.PeriodLabel, len(week.Hostels))
	return nil
}

// Load returns the weeks starting in [from, to], oldest first
func (s *PostgresStore) Load(ctx context.Context, from, to time.Time) ([]models.WeekRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT period_label, period_start, hostel, metrics
		FROM week_metrics
		WHERE period_start BETWEEN $1 AND $2
		ORDER BY period_start, hostel
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query weeks: %w", err)
	}
	defer rows.Close()

	var weeks []models.WeekRecord
	index := make(map[string]int)
	for rows.Next() {
		var (
			label, hostel string
			start         time.Time
			payload       []byte
		)
		if err := rows.Scan(&label, &start, &hostel, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan week row: %w", err)
		}

		var m models.HostelMetrics
		if err := json.Unmarshal(payload, &m); err != nil {
			s.logger.Warn("Skipping corrupt metrics for %s/%s: %v", label, hostel, err)
			continue
		}

		i, ok := index[label]
		if !ok {
			weeks = append(weeks, models.WeekRecord{
				PeriodLabel: label,
				PeriodStart: start,
				Hostels:     make(map[string]models.HostelMetrics),
			})
			i = len(weeks) - 1
			index[label] = i
		}
		weeks[i].Hostels[hostel] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read weeks: %w", err)
	}
	return weeks, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
