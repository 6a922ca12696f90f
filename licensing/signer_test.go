package licensing_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ventasimple/license-api/config"
	"github.com/ventasimple/license-api/licensing"
)

// newTestKeyPair generates an RSA pair and returns the base64 PEM halves the
// way they live in the environment
func newTestKeyPair(t *testing.T) (string, string, *rsa.PublicKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	return base64.StdEncoding.EncodeToString(privPEM),
		base64.StdEncoding.EncodeToString(pubPEM),
		&key.PublicKey
}

func newTestSigner(t *testing.T) (*licensing.Signer, *rsa.PublicKey) {
	t.Helper()

	privB64, pubB64, pub := newTestKeyPair(t)
	signer, err := licensing.NewSigner(&config.Config{
		LicensePrivateKeyB64: privB64,
		LicensePublicKeyB64:  pubB64,
	})
	require.NoError(t, err)
	return signer, pub
}

func TestSignerRoundTrip(t *testing.T) {
	signer, pub := newTestSigner(t)

	jws, err := signer.Sign(licensing.CredentialClaims{
		UserID:     "user-1",
		Token:      "VS-abc123-xyz",
		Plan:       licensing.PlanMulti,
		Status:     licensing.StatusActive,
		DeviceID:   "device-1",
		MaxDevices: 3,
	})
	require.NoError(t, err)

	claims := &licensing.CredentialClaims{}
	parsed, err := jwt.ParseWithClaims(jws, claims, func(token *jwt.Token) (interface{}, error) {
		return pub, nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "RS256", parsed.Method.Alg())
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "VS-abc123-xyz", claims.Token)
	assert.Equal(t, 3, claims.MaxDevices)
}

func TestSignerRejectsWrongKey(t *testing.T) {
	signer, _ := newTestSigner(t)
	_, otherPub := newTestSigner(t)

	jws, err := signer.Sign(licensing.CredentialClaims{UserID: "user-1"})
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(jws, &licensing.CredentialClaims{}, func(token *jwt.Token) (interface{}, error) {
		return otherPub, nil
	})
	assert.Error(t, err)
}

func TestNewSignerMissingKeys(t *testing.T) {
	_, err := licensing.NewSigner(&config.Config{})
	assert.Error(t, err)
}

func TestNewSignerBadBase64(t *testing.T) {
	_, err := licensing.NewSigner(&config.Config{
		LicensePrivateKeyB64: "not base64!!!",
		LicensePublicKeyB64:  "not base64!!!",
	})
	assert.Error(t, err)
}

func TestNewSignerBadPEM(t *testing.T) {
	garbage := base64.StdEncoding.EncodeToString([]byte("not a pem block"))
	_, err := licensing.NewSigner(&config.Config{
		LicensePrivateKeyB64: garbage,
		LicensePublicKeyB64:  garbage,
	})
	assert.Error(t, err)
}

func TestPublicKeyPEM(t *testing.T) {
	signer, _ := newTestSigner(t)
	assert.Contains(t, signer.PublicKeyPEM(), "BEGIN PUBLIC KEY")
}
