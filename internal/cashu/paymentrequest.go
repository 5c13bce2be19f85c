package cashu

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// paymentRequestPrefix is the NUT-18 serialization prefix: "creq" plus the
// version byte "A".
const paymentRequestPrefix = "creqA"

var ErrInvalidPaymentRequest = errors.New("invalid payment request encoding")

// TransportTypePost is the HTTP POST transport: the wallet delivers its
// payment payload to the target URL.
const TransportTypePost = "post"

// Transport tells a paying wallet how to deliver proofs.
type Transport struct {
	Type   string `json:"t" cbor:"t"`
	Target string `json:"a" cbor:"a"`
}

// PaymentRequest is a NUT-18 payment request. The POS issues single-use
// requests scoped to its accepted mints, with one post transport pointing at
// the /payment callback.
type PaymentRequest struct {
	PaymentID  string      `json:"i" cbor:"i"`
	Amount     uint64      `json:"a" cbor:"a"`
	Unit       string      `json:"u" cbor:"u"`
	SingleUse  bool        `json:"s" cbor:"s"`
	Mints      []string    `json:"m" cbor:"m"`
	Transports []Transport `json:"t" cbor:"t"`
}

// Encode serializes the request as "creqA" + base64url(CBOR).
func (r PaymentRequest) Encode() (string, error) {
	b, err := cbor.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("cbor.Marshal: %w", err)
	}
	return paymentRequestPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodePaymentRequest is the inverse of Encode.
func DecodePaymentRequest(s string) (*PaymentRequest, error) {
	if !strings.HasPrefix(s, paymentRequestPrefix) {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrInvalidPaymentRequest, paymentRequestPrefix)
	}

	raw := strings.TrimRight(strings.TrimPrefix(s, paymentRequestPrefix), "=")
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPaymentRequest, err)
	}

	var r PaymentRequest
	if err := cbor.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPaymentRequest, err)
	}
	return &r, nil
}

// PaymentPayload is the body a wallet POSTs to the transport target.
type PaymentPayload struct {
	ID     string `json:"id"`
	Memo   string `json:"memo,omitempty"`
	Mint   string `json:"mint"`
	Unit   string `json:"unit"`
	Proofs Proofs `json:"proofs"`
}
