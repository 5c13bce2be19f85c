// Package quotestore persists payment quotes and owns the only mutation path
// for their state.
package quotestore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/thesimplekid/cashu-payment-backend/internal/cashu"
)

var (
	// ErrNotFound is returned when no quote exists for an id.
	ErrNotFound = errors.New("quote not found")

	// ErrStateMismatch is returned by SetState when the quote is not in the
	// expected state. Nothing is written.
	ErrStateMismatch = errors.New("quote state mismatch")
)

type QuoteState string

const (
	StateUnpaid QuoteState = "Unpaid"
	StatePaid   QuoteState = "Paid"
)

// Quote is a payment obligation. The id, amount, and unit never change after
// creation; state moves Unpaid -> Paid exactly once.
type Quote struct {
	ID        uuid.UUID
	Amount    uint64
	Unit      cashu.Unit
	State     QuoteState
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Store interface {
	// Create writes a quote row, replacing any existing row with the same id.
	Create(ctx context.Context, q *Quote) error

	// Get reads the quote for id, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Quote, error)

	// SetState transitions the quote from one state to another inside a
	// single write transaction and returns the pre-transition quote. If the
	// quote is not in the from state, nothing is written and the current
	// quote is returned along with ErrStateMismatch. Concurrent calls for
	// the same id are serialized by the store; at most one can succeed.
	SetState(ctx context.Context, id uuid.UUID, from, to QuoteState) (*Quote, error)

	// JournalSettlement durably records that proofs for the quote were
	// redeemed, ahead of the state commit. Cleared when the quote reaches
	// Paid. Overwrites any existing entry for the quote.
	JournalSettlement(ctx context.Context, id uuid.UUID, amount uint64) error

	// PendingSettlements lists quotes with a journaled settlement that are
	// still Unpaid, i.e. redeemed value whose commit never landed.
	PendingSettlements(ctx context.Context) ([]uuid.UUID, error)

	// SaveProofs stores redeemed proofs keyed by their Y point. Proofs
	// already stored are skipped.
	SaveProofs(ctx context.Context, mint cashu.MintURL, unit cashu.Unit, proofs cashu.Proofs) error

	Close() error
}
