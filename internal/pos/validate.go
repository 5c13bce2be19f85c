package pos

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/thesimplekid/cashu-payment-backend/internal/cashu"
)

// ParseAmount parses an amount string into a positive integer.
func ParseAmount(s string) (uint64, error) {
	amount, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if amount == 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	return amount, nil
}

// ParseQuoteID parses a quote identifier string.
func ParseQuoteID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}

// ParseUnit parses a currency unit string, defaulting to sat when empty.
func ParseUnit(s string) (cashu.Unit, error) {
	if s == "" {
		return cashu.Sat, nil
	}
	return cashu.ParseUnit(s)
}
