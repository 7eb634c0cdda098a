package session

import (
	"context"
	"fmt"

	"github.com/and161185/libdesk/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool is the subset of *pgxpool.Pool used by Postgres; pgxmock.PgxPoolIface
// satisfies it too.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Close()
}

// Postgres keeps the two keys in the client_kv table, namespaced by profile,
// so several terminals can share one signed-in profile.
type Postgres struct {
	pool    PgxPool
	profile string
}

var _ Store = (*Postgres)(nil)

// NewPostgres connects to dsn. Run migrate.Up first.
func NewPostgres(ctx context.Context, dsn, profile string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return NewPostgresWithPool(pool, profile), nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool PgxPool, profile string) *Postgres {
	if profile == "" {
		profile = "default"
	}
	return &Postgres{pool: pool, profile: profile}
}

// Close closes the pool.
func (p *Postgres) Close() { p.pool.Close() }

// Set upserts both keys in one transaction.
func (p *Postgres) Set(ctx context.Context, s model.Session) error {
	user, err := encodeProfile(s.Profile)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO client_kv (profile, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, q, p.profile, KeyToken, s.Token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if _, err := tx.Exec(ctx, q, p.profile, KeyUser, string(user)); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	return tx.Commit(ctx)
}

// Get loads both keys; nil when either is missing.
func (p *Postgres) Get(ctx context.Context) (*model.Session, error) {
	const q = `SELECT key, value FROM client_kv WHERE profile=$1 AND key IN ('token', 'user')`
	rows, err := p.pool.Query(ctx, q, p.profile)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vals := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		vals[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tok, okT := vals[KeyToken]
	user, okU := vals[KeyUser]
	if !okT || !okU || tok == "" {
		return nil, nil
	}
	prof, err := decodeProfile([]byte(user))
	if err != nil {
		return nil, err
	}
	return &model.Session{Token: tok, Profile: prof}, nil
}

// Clear deletes both keys.
func (p *Postgres) Clear(ctx context.Context) error {
	const q = `DELETE FROM client_kv WHERE profile=$1 AND key IN ('token', 'user')`
	_, err := p.pool.Exec(ctx, q, p.profile)
	return err
}
