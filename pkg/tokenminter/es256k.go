package tokenminter

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"

	"github.com/golang-jwt/jwt/v5"
)

// signingMethodES256K implements jwt.SigningMethod for the ES256K algorithm
// (RFC 8812): ECDSA over secp256k1 with SHA-256, signature encoded as the
// fixed-width concatenation R||S (32 bytes each) rather than ASN.1 DER.
type signingMethodES256K struct{}

// SigningMethodES256K is registered under the "ES256K" alg name so that
// jwt.Parse (used by the test fixtures that round-trip minted tokens) can
// resolve it without the caller wiring it in by hand.
var SigningMethodES256K = &signingMethodES256K{}

func init() {
	jwt.RegisterSigningMethod(SigningMethodES256K.Alg(), func() jwt.SigningMethod {
		return SigningMethodES256K
	})
}

func (m *signingMethodES256K) Alg() string {
	return "ES256K"
}

func (m *signingMethodES256K) Sign(signingString string, key interface{}) ([]byte, error) {
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, jwt.ErrInvalidKeyType
	}

	hash := sha256.Sum256([]byte(signingString))
	r, s, err := ecdsa.Sign(rand.Reader, priv, hash[:])
	if err != nil {
		return nil, err
	}

	out := make([]byte, 2*scalarLen)
	r.FillBytes(out[:scalarLen])
	s.FillBytes(out[scalarLen:])
	return out, nil
}

func (m *signingMethodES256K) Verify(signingString string, sig []byte, key interface{}) error {
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return jwt.ErrInvalidKeyType
	}
	if len(sig) != 2*scalarLen {
		return errors.New("tokenminter: malformed ES256K signature length")
	}

	r := new(big.Int).SetBytes(sig[:scalarLen])
	s := new(big.Int).SetBytes(sig[scalarLen:])

	hash := sha256.Sum256([]byte(signingString))
	if !ecdsa.Verify(pub, hash[:], r, s) {
		return jwt.ErrSignatureInvalid
	}
	return nil
}
