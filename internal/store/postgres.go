package store

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStorage keeps the collection in the calendar_events table. The
// calendar_meta row records that a save has happened, so an empty table after
// the user deleted everything is not mistaken for a first run.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and applies pending migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStorage{pool: pool}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("store: goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	appLog.Info("postgres migrations applied")
	return nil
}

// Close releases the connection pool.
func (p *PostgresStorage) Close() {
	p.pool.Close()
}

func (p *PostgresStorage) Load(ctx context.Context) ([]model.Event, error) {
	var saved bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM calendar_meta)`).Scan(&saved)
	if err != nil {
		return nil, fmt.Errorf("store: read meta: %w", err)
	}
	if !saved {
		return nil, ErrNoData
	}

	rows, err := p.pool.Query(ctx, `
SELECT id, title, date, time24, time, color
FROM calendar_events
ORDER BY position
`)
	if err != nil {
		return nil, fmt.Errorf("store: query events: %w", err)
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		var (
			e     model.Event
			color string
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Date, &e.Time24, &e.Time, &color); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		e.Color = model.Color(color)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate events: %w", err)
	}
	return events, nil
}

// Save replaces the table contents in one transaction.
func (p *PostgresStorage) Save(ctx context.Context, events []model.Event) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM calendar_events`); err != nil {
		return fmt.Errorf("store: clear events: %w", err)
	}

	rows := make([][]any, 0, len(events))
	for i, e := range events {
		rows = append(rows, []any{i, e.ID, e.Title, e.Date, e.Time24, e.Time, string(e.Color)})
	}
	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"calendar_events"},
			[]string{"position", "id", "title", "date", "time24", "time", "color"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("store: copy events: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
INSERT INTO calendar_meta (singleton, saved_at)
VALUES (TRUE, $1)
ON CONFLICT (singleton) DO UPDATE SET saved_at = EXCLUDED.saved_at
`, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: write meta: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
