// Package cashu holds the cashu protocol value types the POS exchanges with
// paying wallets: currency units, mint identities, and ecash proofs.
package cashu

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
)

var (
	ErrUnsupportedUnit = errors.New("unsupported currency unit")
	ErrInvalidMintURL  = errors.New("invalid mint url")
	ErrAmountOverflow  = errors.New("proof amount sum overflows")
)

// Unit is an enumerated currency unit. The POS accepts sat and usd.
type Unit string

const (
	Sat Unit = "sat"
	Usd Unit = "usd"
)

// ParseUnit parses a currency unit string. The caller decides what an empty
// string means; ParseUnit rejects it.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(s) {
	case "sat":
		return Sat, nil
	case "usd":
		return Usd, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedUnit, s)
	}
}

func (u Unit) String() string {
	return string(u)
}

// MintURL is a normalized mint identity.
type MintURL string

// ParseMintURL validates and normalizes a mint URL. Trailing slashes are
// stripped so the same mint written either way compares equal.
func ParseMintURL(s string) (MintURL, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMintURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidMintURL, s)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q: missing host", ErrInvalidMintURL, s)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return MintURL(u.String()), nil
}

func (m MintURL) String() string {
	return string(m)
}

func (m MintURL) Equal(other MintURL) bool {
	return m == other
}

// Proof is a single ecash proof as submitted by a paying wallet. The POS only
// reads the face value and the fields needed to derive the Y point; signature
// verification belongs to the mint.
type Proof struct {
	Amount uint64 `json:"amount" cbor:"amount"`
	ID     string `json:"id" cbor:"id"`
	Secret string `json:"secret" cbor:"secret"`
	C      string `json:"C" cbor:"C"`
}

type Proofs []Proof

// SumAmount returns the total face value of the proofs, failing on overflow.
func (ps Proofs) SumAmount() (uint64, error) {
	var total uint64
	for _, p := range ps {
		if p.Amount > math.MaxUint64-total {
			return 0, ErrAmountOverflow
		}
		total += p.Amount
	}
	return total, nil
}
