package licensing

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ventasimple/license-api/config"
)

// CredentialClaims is the payload of the offline license credential. Clients
// verify it against the published public key and keep operating without a
// live connection until the embedded expiry.
type CredentialClaims struct {
	UserID        string          `json:"userId"`
	LicenseID     string          `json:"licenseId"`
	Token         string          `json:"token"`
	Plan          string          `json:"plan"`
	Status        string          `json:"status"`
	DeviceID      string          `json:"deviceId"`
	MaxDevices    int             `json:"maxDevices"`
	Features      map[string]bool `json:"features"`
	OfflineTTLSec int64           `json:"offline_ttl_sec"`
	jwt.RegisteredClaims
}

// Signer holds the asymmetric key pair used to mint offline credentials. The
// pair comes from configuration and stays stable across restarts; a missing
// pair is a startup-time fatal condition.
type Signer struct {
	privateKey *rsa.PrivateKey
	publicPEM  string
}

// NewSigner decodes the base64 PEM key pair from config and verifies both
// halves parse
func NewSigner(conf *config.Config) (*Signer, error) {
	if conf.LicensePrivateKeyB64 == "" || conf.LicensePublicKeyB64 == "" {
		return nil, fmt.Errorf("license signing key pair is not configured")
	}

	privPEM, err := base64.StdEncoding.DecodeString(conf.LicensePrivateKeyB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode LICENSE_PRIVATE_KEY_B64: %w", err)
	}
	pubPEM, err := base64.StdEncoding.DecodeString(conf.LicensePublicKeyB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode LICENSE_PUBLIC_KEY_B64: %w", err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse license private key: %w", err)
	}
	if _, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM); err != nil {
		return nil, fmt.Errorf("failed to parse license public key: %w", err)
	}

	return &Signer{privateKey: privateKey, publicPEM: string(pubPEM)}, nil
}

// Sign serializes the claims into a compact RS256 JWS
func (s *Signer) Sign(claims CredentialClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
}

// PublicKeyPEM returns the verification key served at the well-known path
func (s *Signer) PublicKeyPEM() string {
	return s.publicPEM
}
