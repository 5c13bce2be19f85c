// Package pg is a postgres-backed quote store for deployments that already
// run a database server. The sqlite store is the default.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/thesimplekid/cashu-payment-backend/internal/cashu"
	"github.com/thesimplekid/cashu-payment-backend/internal/quotestore"
)

func New(dbConnStr string) (quotestore.Store, error) {
	db, err := sqlx.Connect("postgres", dbConnStr)
	if err != nil {
		return nil, fmt.Errorf("sqlx.Connect: %w", err)
	}

	// sqlx default is 0 (unlimited), while postgresql by default accepts up to 100 connections
	db.SetMaxOpenConns(80)

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS quote (
	id UUID PRIMARY KEY,
	amount BIGINT NOT NULL,
	unit TEXT NOT NULL,
	state TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS settlement (
	quote_id UUID PRIMARY KEY,
	amount BIGINT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS proof (
	y TEXT PRIMARY KEY,
	mint TEXT NOT NULL,
	unit TEXT NOT NULL,
	amount BIGINT NOT NULL,
	keyset_id TEXT NOT NULL,
	secret TEXT NOT NULL,
	c TEXT NOT NULL
);
    `)
	if err != nil {
		return nil, fmt.Errorf("db.Exec schema: %w", err)
	}

	return &Repo{
		db: db,
	}, nil
}

type Repo struct {
	db *sqlx.DB
}

func (r *Repo) Create(ctx context.Context, q *quotestore.Quote) error {
	const insert = `INSERT INTO quote (id, amount, unit, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE SET
			amount=EXCLUDED.amount, unit=EXCLUDED.unit,
			state=EXCLUDED.state, updated_at=EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, insert, q.ID, int64(q.Amount), string(q.Unit), string(q.State), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("db.Exec create quote: %w", err)
	}

	return nil
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (*quotestore.Quote, error) {
	const query = `SELECT amount, unit, state, created_at, updated_at FROM quote WHERE id=$1`

	return scanQuote(id, r.db.QueryRowContext(ctx, query, id))
}

func (r *Repo) SetState(ctx context.Context, id uuid.UUID, from, to quotestore.QuoteState) (*quotestore.Quote, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db.Begin: %w", err)
	}
	defer tx.Rollback()

	// The row lock orders concurrent transitions for the same quote.
	const query = `SELECT amount, unit, state, created_at, updated_at FROM quote WHERE id=$1 FOR UPDATE`
	quote, err := scanQuote(id, tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if quote.State != from {
		return quote, quotestore.ErrStateMismatch
	}

	const update = `UPDATE quote SET state=$2, updated_at=$3 WHERE id=$1`
	if _, err := tx.ExecContext(ctx, update, id, string(to), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("db.Exec update state: %w", err)
	}

	if to == quotestore.StatePaid {
		if _, err := tx.ExecContext(ctx, `DELETE FROM settlement WHERE quote_id=$1`, id); err != nil {
			return nil, fmt.Errorf("db.Exec clear settlement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tx.Commit: %w", err)
	}

	return quote, nil
}

func (r *Repo) JournalSettlement(ctx context.Context, id uuid.UUID, amount uint64) error {
	const insert = `INSERT INTO settlement (quote_id, amount, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (quote_id) DO UPDATE SET amount=EXCLUDED.amount`

	_, err := r.db.ExecContext(ctx, insert, id, int64(amount), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("db.Exec journal settlement: %w", err)
	}

	return nil
}

func (r *Repo) PendingSettlements(ctx context.Context) ([]uuid.UUID, error) {
	const query = `SELECT s.quote_id FROM settlement s
		JOIN quote q ON q.id = s.quote_id
		WHERE q.state = $1`

	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, string(quotestore.StateUnpaid)); err != nil {
		return nil, fmt.Errorf("db.Select pending settlements: %w", err)
	}

	return ids, nil
}

func (r *Repo) SaveProofs(ctx context.Context, mint cashu.MintURL, unit cashu.Unit, proofs cashu.Proofs) error {
	const insert = `INSERT INTO proof (y, mint, unit, amount, keyset_id, secret, c)
		VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (y) DO NOTHING`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.Begin: %w", err)
	}
	defer tx.Rollback()

	for _, p := range proofs {
		y, err := p.Y()
		if err != nil {
			return fmt.Errorf("proof.Y: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insert, y, mint.String(), string(unit), int64(p.Amount), p.ID, p.Secret, p.C); err != nil {
			return fmt.Errorf("db.Exec save proof: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit: %w", err)
	}

	return nil
}

func (r *Repo) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(id uuid.UUID, row rowScanner) (*quotestore.Quote, error) {
	var (
		quote = quotestore.Quote{
			ID: id,
		}
		amount int64
		unit   string
		state  string
	)

	err := row.Scan(&amount, &unit, &state, &quote.CreatedAt, &quote.UpdatedAt)
	switch {
	case err == nil:
		// break
	case errors.Is(err, sql.ErrNoRows):
		return nil, quotestore.ErrNotFound
	default:
		return nil, fmt.Errorf("failed to query quote: %w", err)
	}

	quote.Amount = uint64(amount)
	quote.Unit = cashu.Unit(unit)
	quote.State = quotestore.QuoteState(state)

	return &quote, nil
}
