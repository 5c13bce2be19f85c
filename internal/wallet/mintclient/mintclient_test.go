package mintclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thesimplekid/cashu-payment-backend/internal/cashu"
)

type memProofStore struct {
	saved cashu.Proofs
}

func (s *memProofStore) SaveProofs(ctx context.Context, mint cashu.MintURL, unit cashu.Unit, proofs cashu.Proofs) error {
	s.saved = append(s.saved, proofs...)
	return nil
}

func newMintServer(t *testing.T, state string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkstate", r.URL.Path)

		var req checkStateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := checkStateResponse{}
		for _, y := range req.Ys {
			resp.States = append(resp.States, struct {
				Y     string `json:"Y"`
				State string `json:"state"`
			}{Y: y, State: state})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestReceive(t *testing.T) {
	srv := newMintServer(t, proofStateUnspent)
	defer srv.Close()

	mint, err := cashu.ParseMintURL(srv.URL)
	assert.NoError(t, err)

	store := &memProofStore{}
	c := New(mint, cashu.Sat, store)

	proofs := cashu.Proofs{
		{Amount: 64, ID: "009a1f293253e41e", Secret: "secret-a", C: "02aa"},
		{Amount: 36, ID: "009a1f293253e41e", Secret: "secret-b", C: "02bb"},
	}

	amount, err := c.Receive(context.Background(), proofs)
	assert.NoError(t, err)
	assert.Equal(t, uint64(100), amount)
	assert.Len(t, store.saved, 2)
}

func TestReceiveSpent(t *testing.T) {
	srv := newMintServer(t, proofStateSpent)
	defer srv.Close()

	mint, err := cashu.ParseMintURL(srv.URL)
	assert.NoError(t, err)

	store := &memProofStore{}
	c := New(mint, cashu.Sat, store)

	_, err = c.Receive(context.Background(), cashu.Proofs{
		{Amount: 64, ID: "009a1f293253e41e", Secret: "secret-a", C: "02aa"},
	})
	assert.ErrorIs(t, err, ErrProofSpent)
	assert.Empty(t, store.saved)
}

func TestReceivePending(t *testing.T) {
	srv := newMintServer(t, proofStatePending)
	defer srv.Close()

	mint, err := cashu.ParseMintURL(srv.URL)
	assert.NoError(t, err)

	c := New(mint, cashu.Sat, &memProofStore{})

	_, err = c.Receive(context.Background(), cashu.Proofs{
		{Amount: 8, ID: "009a1f293253e41e", Secret: "secret-a", C: "02aa"},
	})
	assert.ErrorIs(t, err, ErrProofPending)
}

func TestReceiveNoProofs(t *testing.T) {
	c := New("https://mint.example.com", cashu.Sat, &memProofStore{})

	_, err := c.Receive(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoProofs)
}

func TestReceiveMintDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	mint, err := cashu.ParseMintURL(srv.URL)
	assert.NoError(t, err)

	c := New(mint, cashu.Sat, &memProofStore{})

	_, err = c.Receive(context.Background(), cashu.Proofs{
		{Amount: 8, ID: "009a1f293253e41e", Secret: "secret-a", C: "02aa"},
	})
	assert.Error(t, err)
}
