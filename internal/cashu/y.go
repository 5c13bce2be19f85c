package cashu

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// hashToCurve domain separator, per NUT-00.
var domainSeparator = []byte("Secp256k1_HashToCurve_Cashu_")

var errNoValidPoint = errors.New("no valid curve point found for message")

// hashToCurve maps a proof secret onto a secp256k1 point by walking a counter
// through SHA-256 until the digest is a valid compressed x coordinate.
func hashToCurve(message []byte) (*secp256k1.PublicKey, error) {
	msgHash := sha256.Sum256(append(domainSeparator, message...))

	counter := make([]byte, 4)
	for i := uint32(0); i < 1<<16; i++ {
		binary.LittleEndian.PutUint32(counter, i)

		h := sha256.Sum256(append(msgHash[:], counter...))
		pk, err := secp256k1.ParsePubKey(append([]byte{0x02}, h[:]...))
		if err == nil {
			return pk, nil
		}
	}
	return nil, errNoValidPoint
}

// Y returns the hex-encoded compressed Y point for the proof's secret, the
// identifier mints use to track spent proofs (NUT-07).
func (p Proof) Y() (string, error) {
	pk, err := hashToCurve([]byte(p.Secret))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(pk.SerializeCompressed()), nil
}

// Ys returns the Y points for all proofs, in order.
func (ps Proofs) Ys() ([]string, error) {
	ys := make([]string, len(ps))
	for i, p := range ps {
		y, err := p.Y()
		if err != nil {
			return nil, err
		}
		ys[i] = y
	}
	return ys, nil
}
