// Package mintclient is a wallet receiver backed by a cashu mint's REST API.
// It accepts proofs by checking them against the mint's spent-proof registry
// (NUT-07) and persisting them, so the value can later be swapped or melted by
// an operator wallet holding the same store.
package mintclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/thesimplekid/cashu-payment-backend/internal/cashu"
)

var (
	ErrNoProofs     = errors.New("no proofs submitted")
	ErrProofSpent   = errors.New("proof already spent")
	ErrProofPending = errors.New("proof is pending")
)

const (
	proofStateUnspent = "UNSPENT"
	proofStatePending = "PENDING"
	proofStateSpent   = "SPENT"
)

// ProofStore persists accepted proofs. The quote store implements this.
type ProofStore interface {
	SaveProofs(ctx context.Context, mint cashu.MintURL, unit cashu.Unit, proofs cashu.Proofs) error
}

func New(mint cashu.MintURL, unit cashu.Unit, store ProofStore) *Client {
	return &Client{
		mint:  mint,
		unit:  unit,
		store: store,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type Client struct {
	mint  cashu.MintURL
	unit  cashu.Unit
	store ProofStore
	http  *http.Client
}

type checkStateRequest struct {
	Ys []string `json:"Ys"`
}

type checkStateResponse struct {
	States []struct {
		Y     string `json:"Y"`
		State string `json:"state"`
	} `json:"states"`
}

// Receive verifies the proofs are unspent at the mint and persists them,
// returning the accepted amount.
func (c *Client) Receive(ctx context.Context, proofs cashu.Proofs) (uint64, error) {
	if len(proofs) == 0 {
		return 0, ErrNoProofs
	}

	amount, err := proofs.SumAmount()
	if err != nil {
		return 0, err
	}

	ys, err := proofs.Ys()
	if err != nil {
		return 0, fmt.Errorf("derive proof states: %w", err)
	}

	states, err := c.checkState(ctx, ys)
	if err != nil {
		return 0, err
	}

	for _, y := range ys {
		switch states[y] {
		case proofStateUnspent:
			// ok
		case proofStatePending:
			return 0, ErrProofPending
		case proofStateSpent:
			return 0, ErrProofSpent
		default:
			return 0, fmt.Errorf("mint did not report a state for proof %s", y)
		}
	}

	if err := c.store.SaveProofs(ctx, c.mint, c.unit, proofs); err != nil {
		return 0, fmt.Errorf("store proofs: %w", err)
	}

	return amount, nil
}

func (c *Client) checkState(ctx context.Context, ys []string) (map[string]string, error) {
	body, err := json.Marshal(checkStateRequest{Ys: ys})
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.mint.String()+"/v1/checkstate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http.NewRequest: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mint checkstate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mint checkstate: unexpected status %d", resp.StatusCode)
	}

	var decoded checkStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode checkstate response: %w", err)
	}

	states := make(map[string]string, len(decoded.States))
	for _, s := range decoded.States {
		states[s.Y] = s.State
	}

	return states, nil
}
