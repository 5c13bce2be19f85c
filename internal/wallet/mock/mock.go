// Package mock is a canned wallet receiver for tests.
package mock

import (
	"context"
	"sync"

	"github.com/thesimplekid/cashu-payment-backend/internal/cashu"
)

func New() *Receiver {
	return &Receiver{}
}

type Receiver struct {
	// ReceiveErr, when set, is returned by Receive.
	ReceiveErr error

	mu    sync.Mutex
	calls int
}

func (r *Receiver) Receive(ctx context.Context, proofs cashu.Proofs) (uint64, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()

	if r.ReceiveErr != nil {
		return 0, r.ReceiveErr
	}

	return proofs.SumAmount()
}

// Calls reports how many times Receive was invoked.
func (r *Receiver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
