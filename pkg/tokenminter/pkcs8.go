package tokenminter

import "encoding/pem"

// pkcs8Prefix is the bit-exact 32-byte PKCS8 envelope prefix for an EC
// private key on curve secp256k1 (OID 1.3.132.0.10), algorithm ecPublicKey
// (OID 1.2.840.10045.2.1). Concatenated with the raw 32-byte scalar it forms
// the complete 64-byte DER blob; there is no ASN.1 length byte to patch
// since the scalar is always exactly 32 bytes.
var pkcs8Prefix = []byte{
	0x30, 0x3e, 0x02, 0x01, 0x00, 0x30, 0x10, 0x06, 0x07, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x02, 0x01,
	0x06, 0x05, 0x2b, 0x81, 0x04, 0x00, 0x0a, 0x04, 0x27, 0x30, 0x25, 0x02, 0x01, 0x01, 0x04, 0x20,
}

// wrapPKCS8PEM builds the PEM-encoded PKCS8 private key blob for the raw
// secp256k1 scalar.
func wrapPKCS8PEM(scalar [scalarLen]byte) string {
	der := make([]byte, 0, len(pkcs8Prefix)+scalarLen)
	der = append(der, pkcs8Prefix...)
	der = append(der, scalar[:]...)

	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block))
}
