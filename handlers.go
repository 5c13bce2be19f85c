package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thesimplekid/cashu-payment-backend/internal/cashu"
	"github.com/thesimplekid/cashu-payment-backend/internal/pos"
	"github.com/thesimplekid/cashu-payment-backend/internal/quotestore"
)

type handlers struct {
	config Config
	pos    posProvider
}

type posProvider interface {
	CreateQuote(ctx context.Context, amount uint64, unit cashu.Unit) (*pos.CreatedQuote, error)
	QuoteState(ctx context.Context, rawID string) (*quotestore.Quote, error)
	ReceivePayment(ctx context.Context, payload cashu.PaymentPayload) error
}

type createQuoteResponse struct {
	CheckingID     string `json:"checking_id"`
	PaymentRequest string `json:"payment_request"`
}

// handleCreateQuote issues a new payment quote for ?amount and optional ?unit.
func (h *handlers) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var (
		ctx       = r.Context()
		amountStr = r.URL.Query().Get("amount")
		unitStr   = r.URL.Query().Get("unit")
	)

	if amountStr == "" {
		http.Error(w, "amount param required", http.StatusBadRequest)
		return
	}

	amount, err := pos.ParseAmount(amountStr)
	if err != nil {
		writeError(w, err)
		return
	}

	unit, err := pos.ParseUnit(unitStr)
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := h.pos.CreateQuote(ctx, amount, unit)
	if err != nil {
		log.Printf("err: pos.CreateQuote: %v", err)
		writeError(w, err)
		return
	}

	quotesCreatedCounter.Inc()
	log.Printf("created quote %v for %d %v\n", created.CheckingID, amount, unit)

	writeJSON(w, createQuoteResponse{
		CheckingID:     created.CheckingID.String(),
		PaymentRequest: created.PaymentRequest,
	})
}

// handleReceivePayment is the payment request transport target: wallets POST
// their proofs here to settle a quote.
func (h *handlers) handleReceivePayment(w http.ResponseWriter, r *http.Request) {
	var payload cashu.PaymentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payment payload", http.StatusBadRequest)
		return
	}

	if err := h.pos.ReceivePayment(r.Context(), payload); err != nil {
		paymentsFailedCounter.Inc()
		log.Printf("err: pos.ReceivePayment: quote=%v: %v", payload.ID, err)
		writeError(w, err)
		return
	}

	paymentsReceivedCounter.Inc()
	log.Printf("payment received for quote %v\n", payload.ID)

	w.WriteHeader(http.StatusOK)
}

type quoteStateResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// handleCheckQuote reports the state of a quote.
func (h *handlers) handleCheckQuote(w http.ResponseWriter, r *http.Request) {
	var (
		ctx = r.Context()
		id  = chi.URLParam(r, "id")
	)

	quote, err := h.pos.QuoteState(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, quoteStateResponse{
		ID:    quote.ID.String(),
		State: string(quote.State),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	jsonb, _ := json.Marshal(v)

	w.Header().Set("Content-Type", "application/json")
	w.Write(jsonb)
}

// writeError maps the lifecycle error taxonomy onto HTTP statuses. Internal
// detail stays in the log; the response carries a short summary.
func writeError(w http.ResponseWriter, err error) {
	var (
		insufficient *pos.InsufficientPaymentError
		invalidState *pos.InvalidStateError
	)

	switch {
	case errors.Is(err, pos.ErrInvalidAmount),
		errors.Is(err, pos.ErrInvalidID),
		errors.Is(err, cashu.ErrUnsupportedUnit),
		errors.Is(err, pos.ErrUnsupportedMint),
		errors.As(err, &insufficient),
		errors.As(err, &invalidState):
		http.Error(w, err.Error(), http.StatusBadRequest)

	case errors.Is(err, pos.ErrQuoteNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)

	case errors.Is(err, pos.ErrProofVerification):
		http.Error(w, "proof verification failed", http.StatusInternalServerError)

	case errors.Is(err, pos.ErrWalletNotFound):
		http.Error(w, "wallet unavailable", http.StatusInternalServerError)

	default:
		log.Printf("err: internal: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
