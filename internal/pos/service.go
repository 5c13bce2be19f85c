// Package pos is the quote lifecycle manager: it creates payment quotes,
// reports their state, and confirms settlement when proofs arrive.
package pos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/thesimplekid/cashu-payment-backend/internal/cashu"
	"github.com/thesimplekid/cashu-payment-backend/internal/quotestore"
	"github.com/thesimplekid/cashu-payment-backend/internal/wallet"
)

// allowedUnits is the closed set of units quotes may be created in.
var allowedUnits = []cashu.Unit{cashu.Sat, cashu.Usd}

func New(store quotestore.Store, wallets wallet.Provider, acceptedMints []cashu.MintURL, paymentURL string) *Service {
	return &Service{
		store:         store,
		wallets:       wallets,
		acceptedMints: acceptedMints,
		paymentURL:    paymentURL,
	}
}

type Service struct {
	store         quotestore.Store
	wallets       wallet.Provider
	acceptedMints []cashu.MintURL
	paymentURL    string
}

// CreatedQuote is the result of CreateQuote: the id the payer can poll and
// the encoded payment request to hand to their wallet.
type CreatedQuote struct {
	CheckingID     uuid.UUID
	PaymentRequest string
}

// CreateQuote builds a single-use payment request for amount/unit, persists a
// new Unpaid quote, and returns both.
func (s *Service) CreateQuote(ctx context.Context, amount uint64, unit cashu.Unit) (*CreatedQuote, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	if !unitAllowed(unit) {
		return nil, fmt.Errorf("%w: %q", cashu.ErrUnsupportedUnit, unit)
	}

	id := uuid.New()

	mints := make([]string, len(s.acceptedMints))
	for i, m := range s.acceptedMints {
		mints[i] = m.String()
	}

	request := cashu.PaymentRequest{
		PaymentID: id.String(),
		Amount:    amount,
		Unit:      unit.String(),
		SingleUse: true,
		Mints:     mints,
		Transports: []cashu.Transport{
			{Type: cashu.TransportTypePost, Target: s.paymentURL},
		},
	}

	encoded, err := request.Encode()
	if err != nil {
		return nil, fmt.Errorf("build payment request: %w", err)
	}

	quote := &quotestore.Quote{
		ID:     id,
		Amount: amount,
		Unit:   unit,
		State:  quotestore.StateUnpaid,
	}

	if err := s.store.Create(ctx, quote); err != nil {
		return nil, fmt.Errorf("store quote: %w", err)
	}

	return &CreatedQuote{
		CheckingID:     id,
		PaymentRequest: encoded,
	}, nil
}

// QuoteState reads the quote for a raw id string.
func (s *Service) QuoteState(ctx context.Context, rawID string) (*quotestore.Quote, error) {
	id, err := ParseQuoteID(rawID)
	if err != nil {
		return nil, err
	}

	quote, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, quotestore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrQuoteNotFound, id)
		}
		return nil, fmt.Errorf("store.Get: %w", err)
	}

	return quote, nil
}

// ReceivePayment settles a quote from a wallet's payment payload. It is the
// critical path: every check happens before redemption, and the state commit
// is the last step. A caller that loses the commit race still gets a nil
// error, since the value was redeemed for some caller either way.
func (s *Service) ReceivePayment(ctx context.Context, payload cashu.PaymentPayload) error {
	mint, err := cashu.ParseMintURL(payload.Mint)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedMint, payload.Mint)
	}
	if !s.mintAccepted(mint) {
		return fmt.Errorf("%w: %s", ErrUnsupportedMint, mint)
	}

	if payload.ID == "" {
		return fmt.Errorf("%w: missing payment id", ErrInvalidID)
	}
	id, err := ParseQuoteID(payload.ID)
	if err != nil {
		return err
	}

	quote, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, quotestore.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrQuoteNotFound, id)
		}
		return fmt.Errorf("store.Get: %w", err)
	}

	// State first: paying an already-settled quote is a state conflict no
	// matter what the proofs sum to.
	if quote.State != quotestore.StateUnpaid {
		return &InvalidStateError{ID: id, State: quote.State}
	}

	received, err := payload.Proofs.SumAmount()
	if err != nil {
		return fmt.Errorf("sum proof amounts: %w", err)
	}

	if received < quote.Amount {
		return &InsufficientPaymentError{Expected: quote.Amount, Received: received}
	}

	w, ok := s.wallets.Get(mint, quote.Unit)
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrWalletNotFound, mint, quote.Unit)
	}

	// Redemption is the point of no return. Once it starts, a client
	// disconnect must not abandon the proofs before the state commit lands.
	ctx = context.WithoutCancel(ctx)

	if _, err := w.Receive(ctx, payload.Proofs); err != nil {
		return fmt.Errorf("%w: %v", ErrProofVerification, err)
	}

	// Journal first so a crash between redemption and commit is repairable.
	// A journal write failure alone is not fatal: the commit below is still
	// attempted, and if it lands the journal has already served its purpose.
	journalErr := s.store.JournalSettlement(ctx, id, received)

	if _, err := s.store.SetState(ctx, id, quotestore.StateUnpaid, quotestore.StatePaid); err != nil {
		if errors.Is(err, quotestore.ErrStateMismatch) {
			// A concurrent settlement won the race; the quote is paid.
			return nil
		}
		if journalErr != nil {
			return fmt.Errorf("commit quote state: %v (journal also failed: %v)", err, journalErr)
		}
		return fmt.Errorf("commit quote state: %w", err)
	}

	return nil
}

// RepairPending re-commits quotes whose settlement was journaled but never
// reached Paid, e.g. after a crash between redemption and commit. Returns the
// number of quotes repaired.
func (s *Service) RepairPending(ctx context.Context) (int, error) {
	ids, err := s.store.PendingSettlements(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending settlements: %w", err)
	}

	var repaired int
	for _, id := range ids {
		_, err := s.store.SetState(ctx, id, quotestore.StateUnpaid, quotestore.StatePaid)
		switch {
		case err == nil:
			repaired++
		case errors.Is(err, quotestore.ErrStateMismatch):
			// Someone else committed it in the meantime.
		default:
			return repaired, fmt.Errorf("repair quote %s: %w", id, err)
		}
	}

	return repaired, nil
}

func (s *Service) mintAccepted(mint cashu.MintURL) bool {
	for _, m := range s.acceptedMints {
		if m.Equal(mint) {
			return true
		}
	}
	return false
}

func unitAllowed(unit cashu.Unit) bool {
	for _, u := range allowedUnits {
		if u == unit {
			return true
		}
	}
	return false
}
