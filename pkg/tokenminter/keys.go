package tokenminter

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const scalarLen = 32

// decodeSigningKey parses the stored hex representation of a secp256k1
// private scalar: an optional "0x"/"0X" prefix,
// followed by exactly 64 hex characters decoding to 32 bytes.
func decodeSigningKey(raw string) ([scalarLen]byte, error) {
	var out [scalarLen]byte

	s := strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if len(s)%2 != 0 {
		return out, fmt.Errorf("odd-length hex string")
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("not valid hex: %w", err)
	}
	if len(b) != scalarLen {
		return out, fmt.Errorf("decoded to %d bytes, want %d", len(b), scalarLen)
	}

	copy(out[:], b)
	return out, nil
}

// privateKeyFromScalar builds an ecdsa.PrivateKey over the secp256k1 curve
// from a raw 32-byte big-endian scalar.
func privateKeyFromScalar(scalar [scalarLen]byte) (*ecdsa.PrivateKey, error) {
	d := new(big.Int).SetBytes(scalar[:])
	if d.Sign() == 0 || d.Cmp(secp256k1.N) >= 0 {
		return nil, fmt.Errorf("scalar out of range for secp256k1")
	}

	x, y := secp256k1.ScalarBaseMult(scalar[:])
	if !secp256k1.IsOnCurve(x, y) {
		return nil, fmt.Errorf("derived public point is not on secp256k1")
	}

	priv := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: secp256k1, X: x, Y: y},
		D:         d,
	}
	return priv, nil
}
