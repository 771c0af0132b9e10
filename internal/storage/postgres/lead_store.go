// Package postgres provides the Postgres-backed lead repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/logimarket/leadflow/internal/lead"
)

// Config controls the Postgres connection pool used for lead rows.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// LeadStore persists leads and operator settings in Postgres.
type LeadStore struct {
	pool querier
}

const leadColumns = `id, company_name, email, phone, fax, website, industry, source,
	status, sent_at, sent_subject, snapshot_uri, created_at`

// NewLeadStore creates a Postgres-backed LeadStore using the provided config.
func NewLeadStore(ctx context.Context, cfg Config) (*LeadStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &LeadStore{pool: pool}, nil
}

// NewLeadStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewLeadStoreWithPool(pool querier) (*LeadStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &LeadStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *LeadStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// FindByEmail returns the lead with the exact address, or nil when absent.
func (s *LeadStore) FindByEmail(ctx context.Context, email string) (*lead.Lead, error) {
	row := s.pool.QueryRow(ctx, `
SELECT `+leadColumns+`
FROM leads
WHERE email = $1`, email)

	l, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find lead by email: %w", err)
	}
	return &l, nil
}

// Insert stores a new lead row.
func (s *LeadStore) Insert(ctx context.Context, l lead.Lead) error {
	if l.ID == "" {
		return fmt.Errorf("lead id is required")
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO leads (`+leadColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		l.ID,
		l.CompanyName,
		l.Email,
		l.Phone,
		l.Fax,
		l.Website,
		l.Industry,
		l.Source,
		string(l.Status),
		l.SentAt,
		l.SentSubject,
		l.SnapshotURI,
		l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// RecordOutcome applies a send outcome to the lead's status fields.
// sent_at is only stamped on a successful send.
func (s *LeadStore) RecordOutcome(ctx context.Context, id string, outcome lead.SendOutcome) error {
	var sentAt *time.Time
	if outcome.Status == lead.StatusSent {
		sentAt = &outcome.SentAt
	}
	_, err := s.pool.Exec(ctx, `
UPDATE leads
SET status = $2, sent_at = $3, sent_subject = $4
WHERE id = $1`,
		id,
		string(outcome.Status),
		sentAt,
		outcome.Subject,
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// CountSentSince counts leads sent at or after since.
func (s *LeadStore) CountSentSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM leads
WHERE status = $1 AND sent_at >= $2`,
		string(lead.StatusSent),
		since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sent leads: %w", err)
	}
	return count, nil
}

// ListByStatus returns up to limit leads in creation order, oldest first.
func (s *LeadStore) ListByStatus(ctx context.Context, status lead.Status, limit int) ([]lead.Lead, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+leadColumns+`
FROM leads
WHERE status = $1
ORDER BY created_at ASC
LIMIT $2`,
		string(status),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []lead.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}

// GetSetting returns the operator setting for key, or "" when unset.
func (s *LeadStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `
SELECT value
FROM settings
WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

func scanLead(row pgx.Row) (lead.Lead, error) {
	var (
		l      lead.Lead
		status string
	)
	err := row.Scan(
		&l.ID,
		&l.CompanyName,
		&l.Email,
		&l.Phone,
		&l.Fax,
		&l.Website,
		&l.Industry,
		&l.Source,
		&status,
		&l.SentAt,
		&l.SentSubject,
		&l.SnapshotURI,
		&l.CreatedAt,
	)
	if err != nil {
		return lead.Lead{}, err
	}
	l.Status = lead.Status(status)
	return l, nil
}
