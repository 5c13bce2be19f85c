package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/thesimplekid/cashu-payment-backend/internal/cashu"
	"github.com/thesimplekid/cashu-payment-backend/internal/pos"
	"github.com/thesimplekid/cashu-payment-backend/internal/quotestore"
	"github.com/thesimplekid/cashu-payment-backend/internal/wallet"
	"github.com/thesimplekid/cashu-payment-backend/internal/wallet/mock"
)

const testMint = "https://mint.example.com"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store, err := quotestore.New(filepath.Join(t.TempDir(), "quotes.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	mint := cashu.MintURL(testMint)

	wallets := wallet.NewMultiMintWallet()
	wallets.Add(mint, cashu.Sat, mock.New())
	wallets.Add(mint, cashu.Usd, mock.New())

	svc := pos.New(store, wallets, []cashu.MintURL{mint}, "https://pos.example.com/payment")

	h := handlers{
		config: Config{PaymentURL: "https://pos.example.com/payment"},
		pos:    svc,
	}

	return newRouter(&h)
}

func paymentBody(t *testing.T, id string, amounts ...uint64) *bytes.Reader {
	t.Helper()

	proofs := make(cashu.Proofs, len(amounts))
	for i, a := range amounts {
		proofs[i] = cashu.Proof{Amount: a, ID: "009a1f293253e41e", Secret: uuid.New().String(), C: "02aa"}
	}

	jsonb, err := json.Marshal(cashu.PaymentPayload{
		ID:     id,
		Mint:   testMint,
		Unit:   "sat",
		Proofs: proofs,
	})
	assert.NoError(t, err)

	return bytes.NewReader(jsonb)
}

func TestPaymentFlow(t *testing.T) {
	r := newTestRouter(t)

	// Create a quote for 100 sat.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/create?amount=100", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var created createQuoteResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.CheckingID)

	req, err := cashu.DecodePaymentRequest(created.PaymentRequest)
	assert.NoError(t, err)
	assert.Equal(t, uint64(100), req.Amount)
	assert.Equal(t, "sat", req.Unit)

	// It starts Unpaid.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check/"+created.CheckingID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var state quoteStateResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, created.CheckingID, state.ID)
	assert.Equal(t, "Unpaid", state.State)

	// Pay it.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payment", paymentBody(t, created.CheckingID, 64, 36)))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Now it is Paid.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check/"+created.CheckingID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "Paid", state.State)

	// Paying again is a conflict.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payment", paymentBody(t, created.CheckingID, 100)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateQuoteErrors(t *testing.T) {
	var tests = []struct {
		name   string
		target string
		status int
	}{
		{"missing amount", "/create", http.StatusBadRequest},
		{"malformed amount", "/create?amount=abc", http.StatusBadRequest},
		{"zero amount", "/create?amount=0", http.StatusBadRequest},
		{"negative amount", "/create?amount=-5", http.StatusBadRequest},
		{"unsupported unit", "/create?amount=100&unit=eur", http.StatusBadRequest},
		{"usd ok", "/create?amount=100&unit=usd", http.StatusOK},
	}

	r := newTestRouter(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestCheckQuoteErrors(t *testing.T) {
	r := newTestRouter(t)

	// Malformed id is invalid input, not a missing quote.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check/"+uuid.New().String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReceivePaymentErrors(t *testing.T) {
	r := newTestRouter(t)

	// Create a quote to pay against.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/create?amount=100", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var created createQuoteResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	var tests = []struct {
		name   string
		body   func(t *testing.T) *bytes.Reader
		status int
	}{
		{
			"malformed body",
			func(t *testing.T) *bytes.Reader { return bytes.NewReader([]byte("{")) },
			http.StatusBadRequest,
		},
		{
			"unknown quote",
			func(t *testing.T) *bytes.Reader { return paymentBody(t, uuid.New().String(), 100) },
			http.StatusNotFound,
		},
		{
			"malformed quote id",
			func(t *testing.T) *bytes.Reader { return paymentBody(t, "not-a-uuid", 100) },
			http.StatusBadRequest,
		},
		{
			"insufficient amount",
			func(t *testing.T) *bytes.Reader { return paymentBody(t, created.CheckingID, 1) },
			http.StatusBadRequest,
		},
		{
			"unsupported mint",
			func(t *testing.T) *bytes.Reader {
				jsonb, err := json.Marshal(cashu.PaymentPayload{
					ID:     created.CheckingID,
					Mint:   "https://rogue-mint.example.com",
					Unit:   "sat",
					Proofs: cashu.Proofs{{Amount: 100, ID: "009a1f293253e41e", Secret: "s", C: "02aa"}},
				})
				assert.NoError(t, err)
				return bytes.NewReader(jsonb)
			},
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payment", tt.body(t)))
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	// None of the failures settled the quote.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/check/%s", created.CheckingID), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var state quoteStateResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "Unpaid", state.State)
}
