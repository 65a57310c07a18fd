package tokenminter

import (
	"crypto/elliptic"
	"math/big"
)

// secp256k1 defines the curve parameters for secp256k1 (the curve the
// external labeler's did:web service auth expects, via ES256K). The Go
// standard library's elliptic package only ships the NIST P-curves, so the
// curve is defined here via the generic elliptic.CurveParams — the same
// mechanism every pre-nistec custom-curve implementation in the Go ecosystem
// used before the standard library grew dedicated fast paths for P-224/256/384/521.
// crypto/ecdsa's legacy signing path works against any elliptic.Curve, so
// this is sufficient for correct (if not optimized) ES256K signatures.
var secp256k1 = func() *elliptic.CurveParams {
	c := &elliptic.CurveParams{Name: "secp256k1"}
	c.P, _ = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F", 16)
	c.N, _ = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)
	c.B, _ = new(big.Int).SetString("0000000000000000000000000000000000000000000000000000000000000007", 16)
	c.Gx, _ = new(big.Int).SetString("79BE667EF9DCBBAC55A06295CE870B07029BFCDB2DCE28D959F2815B16F81798", 16)
	c.Gy, _ = new(big.Int).SetString("483ADA7726A3C4655DA4FBFC0E1108A8FD17B448A68554199C47D08FFB10D4B8", 16)
	c.BitSize = 256
	return c
}()
