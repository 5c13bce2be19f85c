package pos

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/thesimplekid/cashu-payment-backend/internal/quotestore"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidID     = errors.New("invalid quote id")
	ErrQuoteNotFound = errors.New("quote not found")

	ErrUnsupportedMint = errors.New("unsupported mint")

	// ErrWalletNotFound means no wallet is configured for the quote's mint
	// and unit pair.
	ErrWalletNotFound = errors.New("no wallet for mint and unit")

	// ErrProofVerification wraps settlement failures reported by the wallet:
	// forged, malformed, or already-spent proofs.
	ErrProofVerification = errors.New("proof verification failed")
)

// InvalidStateError is returned when a settlement targets a quote that is not
// Unpaid. No settlement is attempted.
type InvalidStateError struct {
	ID    uuid.UUID
	State quotestore.QuoteState
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("quote %s has invalid state: %s", e.ID, e.State)
}

// InsufficientPaymentError is returned when the submitted proofs sum to less
// than the quote's amount.
type InsufficientPaymentError struct {
	Expected uint64
	Received uint64
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("insufficient payment: expected %d, received %d", e.Expected, e.Received)
}
