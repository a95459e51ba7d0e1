package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"roadcover/internal/graph"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS networks (
		id uuid PRIMARY KEY,
		name text NOT NULL UNIQUE,
		depot bigint,
		segments integer NOT NULL,
		length_km double precision NOT NULL,
		data jsonb NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS plan_metrics (
		id uuid PRIMARY KEY,
		network_id uuid REFERENCES networks(id) ON DELETE CASCADE,
		algo text NOT NULL,
		seed bigint NOT NULL,
		max_distance double precision NOT NULL,
		days integer NOT NULL,
		covered integer NOT NULL,
		total integer NOT NULL,
		complete boolean NOT NULL,
		stop_reason text NOT NULL,
		elapsed_ms bigint NOT NULL,
		generations integer NOT NULL DEFAULT 0,
		summary jsonb,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS plan_metrics_network_idx ON plan_metrics (network_id, created_at DESC)`,
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveNetwork upserts by name.
func (p *Postgres) SaveNetwork(ctx context.Context, name string, depot int64, segs []graph.Segment) (NetworkInfo, error) {
	info := describe(name, depot, segs)
	data, err := json.Marshal(segs)
	if err != nil {
		return NetworkInfo{}, err
	}
	row := p.db.QueryRowContext(ctx, `INSERT INTO networks (id, name, depot, segments, length_km, data)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (name) DO UPDATE SET depot=$3, segments=$4, length_km=$5, data=$6
		RETURNING id::text, created_at`,
		uuid.New(), name, nullIfZero(depot), info.Segments, info.LengthKm, string(data))
	if err := row.Scan(&info.ID, &info.CreatedAt); err != nil {
		return NetworkInfo{}, err
	}
	return info, nil
}

func (p *Postgres) GetNetwork(ctx context.Context, id string) (Network, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Network{}, ErrNotFound
	}
	var (
		n     Network
		depot sql.NullInt64
		data  []byte
	)
	err := p.db.QueryRowContext(ctx, `SELECT id::text, name, depot, segments, length_km, data, created_at FROM networks WHERE id=$1`, id).
		Scan(&n.ID, &n.Name, &depot, &n.Segments, &n.LengthKm, &data, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Network{}, ErrNotFound
	}
	if err != nil {
		return Network{}, err
	}
	n.Depot = depot.Int64
	if err := json.Unmarshal(data, &n.Data); err != nil {
		return Network{}, fmt.Errorf("network %s: %w", id, err)
	}
	return n, nil
}

// ListNetworks pages by name; the cursor is the last name returned.
func (p *Postgres) ListNetworks(ctx context.Context, cursor string, limit int) ([]NetworkInfo, string, error) {
	limit = pageLimit(limit)
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, name, depot, segments, length_km, created_at FROM networks
		WHERE $1 = '' OR name > $1 ORDER BY name LIMIT $2`, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []NetworkInfo{}
	for rows.Next() {
		var (
			n     NetworkInfo
			depot sql.NullInt64
		)
		if err := rows.Scan(&n.ID, &n.Name, &depot, &n.Segments, &n.LengthKm, &n.CreatedAt); err != nil {
			return nil, "", err
		}
		n.Depot = depot.Int64
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	var next string
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].Name
	}
	return out, next, nil
}

func (p *Postgres) DeleteNetwork(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := p.db.ExecContext(ctx, `DELETE FROM networks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SavePlanMetrics(ctx context.Context, rec PlanRecord) (PlanRecord, error) {
	summary, err := json.Marshal(rec.Summary)
	if err != nil {
		return PlanRecord{}, err
	}
	rec.ID = uuid.New().String()
	err = p.db.QueryRowContext(ctx, `INSERT INTO plan_metrics (id, network_id, algo, seed, max_distance, days, covered, total, complete, stop_reason, elapsed_ms, generations, summary)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at`,
		rec.ID, nullIfEmpty(rec.NetworkID), rec.Algorithm, rec.Seed, rec.MaxDistance, rec.Days, rec.Covered, rec.Total,
		rec.Complete, rec.StopReason, rec.ElapsedMs, rec.Generations, string(summary)).Scan(&rec.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return PlanRecord{}, ErrNotFound
		}
		return PlanRecord{}, err
	}
	return rec, nil
}

// ListPlanMetrics returns the newest records first. Empty filters match
// everything.
func (p *Postgres) ListPlanMetrics(ctx context.Context, networkID, algo string) ([]PlanRecord, error) {
	base := `SELECT id::text, COALESCE(network_id::text, ''), algo, seed, max_distance, days, covered, total, complete, stop_reason, elapsed_ms, generations, summary, created_at FROM plan_metrics`
	var (
		where []string
		args  []any
	)
	if networkID != "" {
		args = append(args, networkID)
		where = append(where, fmt.Sprintf("network_id::text=$%d", len(args)))
	}
	if algo != "" {
		args = append(args, strings.ToLower(algo))
		where = append(where, fmt.Sprintf("lower(algo)=$%d", len(args)))
	}
	if len(where) > 0 {
		base += " WHERE " + strings.Join(where, " AND ")
	}
	base += " ORDER BY created_at DESC"

	rows, err := p.db.QueryContext(ctx, base, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []PlanRecord{}
	for rows.Next() {
		var (
			r       PlanRecord
			summary []byte
		)
		if err := rows.Scan(&r.ID, &r.NetworkID, &r.Algorithm, &r.Seed, &r.MaxDistance, &r.Days, &r.Covered, &r.Total,
			&r.Complete, &r.StopReason, &r.ElapsedMs, &r.Generations, &summary, &r.CreatedAt); err != nil {
			return nil, err
		}
		if len(summary) > 0 {
			if err := json.Unmarshal(summary, &r.Summary); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
