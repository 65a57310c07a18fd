// Package tokenminter mints short-lived ES256K JWTs used to authenticate
// against the external labeler, signing over the tenant's raw secp256k1
// scalar. pkcs8.go separately builds the PEM-wrapped PKCS8 envelope of that
// same scalar for protocol fidelity with the external labeler's own
// key-loading tooling.
package tokenminter

import (
	"errors"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wisbric/ozonebridge/pkg/bridgeerr"
	"github.com/wisbric/ozonebridge/pkg/credential"
)

// tokenTTL is the fixed validity window for minted tokens.
const tokenTTL = 60 * time.Second

// Minter mints ES256K JWTs for tenant credentials. It is stateless and safe
// for concurrent use; now() is injected for deterministic tests.
type Minter struct {
	now func() time.Time
}

// New returns a Minter that reads wall-clock time from time.Now.
func New() *Minter {
	return &Minter{now: time.Now}
}

// Mint produces a signed ES256K JWT for cred, valid for tokenTTL starting
// from a single read of the current time.
func (m *Minter) Mint(cred *credential.TenantCredential) (string, error) {
	scalar, err := decodeSigningKey(cred.SigningKey)
	if err != nil {
		return "", &bridgeerr.InvalidCredential{TenantID: cred.TenantID, Reason: err.Error()}
	}

	priv, err := privateKeyFromScalar(scalar)
	if err != nil {
		return "", &bridgeerr.InvalidCredential{TenantID: cred.TenantID, Reason: err.Error()}
	}

	aud, err := audienceFor(cred.ServiceURL)
	if err != nil {
		return "", &bridgeerr.InvalidCredential{TenantID: cred.TenantID, Reason: err.Error()}
	}

	iat := m.now().Truncate(time.Second)
	claims := jwt.MapClaims{
		"iss": cred.DID,
		"aud": aud,
		"iat": iat.Unix(),
		"exp": iat.Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(SigningMethodES256K, claims)
	token.Header = map[string]interface{}{"alg": SigningMethodES256K.Alg(), "typ": "JWT"}

	signed, err := token.SignedString(priv)
	if err != nil {
		return "", &bridgeerr.InvalidCredential{TenantID: cred.TenantID, Reason: err.Error()}
	}
	return signed, nil
}

// audienceFor computes "did:web:<hostname>" from the external labeler's
// service URL.
func audienceFor(serviceURL *url.URL) (string, error) {
	if serviceURL == nil || serviceURL.Hostname() == "" {
		return "", errNoHostname
	}
	return "did:web:" + serviceURL.Hostname(), nil
}

var errNoHostname = errors.New("serviceUrl has no hostname")
