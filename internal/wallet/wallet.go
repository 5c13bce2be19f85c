// Package wallet is the boundary to the cashu settlement collaborator. The
// lifecycle service resolves a Receiver per (mint, unit) and hands it the
// submitted proofs; everything cryptographic happens behind the interface.
package wallet

import (
	"context"

	"github.com/thesimplekid/cashu-payment-backend/internal/cashu"
)

// Receiver verifies and redeems proofs, returning the amount credited.
type Receiver interface {
	Receive(ctx context.Context, proofs cashu.Proofs) (uint64, error)
}

// Provider resolves the wallet for a mint and currency unit.
type Provider interface {
	Get(mint cashu.MintURL, unit cashu.Unit) (Receiver, bool)
}

type walletKey struct {
	mint cashu.MintURL
	unit cashu.Unit
}

// MultiMintWallet holds one Receiver per accepted (mint, unit) pair. Built
// once at startup and read-only afterwards.
type MultiMintWallet struct {
	wallets map[walletKey]Receiver
}

func NewMultiMintWallet() *MultiMintWallet {
	return &MultiMintWallet{
		wallets: make(map[walletKey]Receiver),
	}
}

func (m *MultiMintWallet) Add(mint cashu.MintURL, unit cashu.Unit, r Receiver) {
	m.wallets[walletKey{mint: mint, unit: unit}] = r
}

func (m *MultiMintWallet) Get(mint cashu.MintURL, unit cashu.Unit) (Receiver, bool) {
	r, ok := m.wallets[walletKey{mint: mint, unit: unit}]
	return r, ok
}
