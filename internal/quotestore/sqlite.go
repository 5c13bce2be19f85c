package quotestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/thesimplekid/cashu-payment-backend/internal/cashu"
)

// New opens (creating if needed) a sqlite-backed quote store at dbFile.
func New(dbFile string) (Store, error) {
	if dbFile == "" {
		return nil, fmt.Errorf("must set quote_db")
	}

	// _txlock=immediate takes the write lock when a transaction begins, so
	// racing SetState calls queue instead of both reading the same state.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", dbFile)

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlx.Connect: %w", err)
	}

	s := sqliteStore{
		dbFile: dbFile,
		db:     db,
	}

	if err := s.createSchema(); err != nil {
		return nil, err
	}

	return &s, nil
}

type sqliteStore struct {
	dbFile string
	db     *sqlx.DB
}

func (s *sqliteStore) createSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS quote(
		id TEXT PRIMARY KEY,
		amount INTEGER NOT NULL,
		unit TEXT NOT NULL,
		state TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS settlement(
		quote_id TEXT PRIMARY KEY,
		amount INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS proof(
		y TEXT PRIMARY KEY,
		mint TEXT NOT NULL,
		unit TEXT NOT NULL,
		amount INTEGER NOT NULL,
		keyset_id TEXT NOT NULL,
		secret TEXT NOT NULL,
		c TEXT NOT NULL
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("db.Exec schema: %w", err)
	}

	return nil
}

func (s *sqliteStore) Create(ctx context.Context, q *Quote) error {
	const insert = `INSERT OR REPLACE INTO quote(id, amount, unit, state, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, insert,
		q.ID.String(),
		q.Amount,
		string(q.Unit),
		string(q.State),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("db.Exec create quote: %w", err)
	}

	return nil
}

func (s *sqliteStore) Get(ctx context.Context, id uuid.UUID) (*Quote, error) {
	const query = `SELECT amount, unit, state, created_at, updated_at FROM quote WHERE id=?`

	return scanQuote(id, s.db.QueryRowContext(ctx, query, id.String()))
}

func (s *sqliteStore) SetState(ctx context.Context, id uuid.UUID, from, to QuoteState) (*Quote, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db.Begin: %w", err)
	}
	defer tx.Rollback()

	const query = `SELECT amount, unit, state, created_at, updated_at FROM quote WHERE id=?`
	quote, err := scanQuote(id, tx.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		return nil, err
	}

	if quote.State != from {
		return quote, ErrStateMismatch
	}

	const update = `UPDATE quote SET state=?, updated_at=? WHERE id=?`
	if _, err := tx.ExecContext(ctx, update, string(to), time.Now().UTC().Format(time.RFC3339), id.String()); err != nil {
		return nil, fmt.Errorf("db.Exec update state: %w", err)
	}

	if to == StatePaid {
		if _, err := tx.ExecContext(ctx, `DELETE FROM settlement WHERE quote_id=?`, id.String()); err != nil {
			return nil, fmt.Errorf("db.Exec clear settlement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tx.Commit: %w", err)
	}

	return quote, nil
}

func (s *sqliteStore) JournalSettlement(ctx context.Context, id uuid.UUID, amount uint64) error {
	const insert = `INSERT INTO settlement(quote_id, amount, created_at) VALUES(?, ?, ?)
		ON CONFLICT(quote_id) DO UPDATE SET amount=excluded.amount`

	_, err := s.db.ExecContext(ctx, insert, id.String(), amount, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("db.Exec journal settlement: %w", err)
	}

	return nil
}

func (s *sqliteStore) PendingSettlements(ctx context.Context) ([]uuid.UUID, error) {
	const query = `SELECT s.quote_id FROM settlement s
		JOIN quote q ON q.id = s.quote_id
		WHERE q.state = ?`

	var raw []string
	if err := s.db.SelectContext(ctx, &raw, query, string(StateUnpaid)); err != nil {
		return nil, fmt.Errorf("db.Select pending settlements: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("parse settlement quote id %q: %w", r, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func (s *sqliteStore) SaveProofs(ctx context.Context, mint cashu.MintURL, unit cashu.Unit, proofs cashu.Proofs) error {
	const insert = `INSERT OR IGNORE INTO proof(y, mint, unit, amount, keyset_id, secret, c)
		VALUES(?, ?, ?, ?, ?, ?, ?)`

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.Begin: %w", err)
	}
	defer tx.Rollback()

	for _, p := range proofs {
		y, err := p.Y()
		if err != nil {
			return fmt.Errorf("proof.Y: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insert, y, mint.String(), string(unit), p.Amount, p.ID, p.Secret, p.C); err != nil {
			return fmt.Errorf("db.Exec save proof: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit: %w", err)
	}

	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(id uuid.UUID, row rowScanner) (*Quote, error) {
	var (
		quote = Quote{
			ID: id,
		}
		unit      string
		state     string
		createdAt string
		updatedAt string
	)

	err := row.Scan(&quote.Amount, &unit, &state, &createdAt, &updatedAt)
	switch {
	case err == nil:
		// break
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("failed to query quote: %w", err)
	}

	quote.Unit = cashu.Unit(unit)
	quote.State = QuoteState(state)

	quote.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode created_at timestamp: %w", err)
	}
	quote.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode updated_at timestamp: %w", err)
	}

	return &quote, nil
}
