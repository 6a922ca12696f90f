package handlers_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"testing"
	"time"

	"github.com/shaj13/go-guardian/auth"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ventasimple/license-api/api"
	billingmocks "github.com/ventasimple/license-api/billing/mocks"
	"github.com/ventasimple/license-api/config"
	"github.com/ventasimple/license-api/databases/mocks"
	"github.com/ventasimple/license-api/licensing"
	"github.com/ventasimple/license-api/models"
)

// newTestService builds a license service on mocked collaborators with a
// throwaway signing key pair
func newTestService(t *testing.T) (*licensing.Service, *mocks.LicenseDatabase, *billingmocks.Client) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	signer, err := licensing.NewSigner(&config.Config{
		LicensePrivateKeyB64: base64.StdEncoding.EncodeToString(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
		LicensePublicKeyB64:  base64.StdEncoding.EncodeToString(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
	})
	require.NoError(t, err)

	db := &mocks.LicenseDatabase{}
	bc := &billingmocks.Client{}
	return licensing.NewService(db, bc, signer, config.DefaultOfflineTTL), db, bc
}

func authedRequest(r *http.Request) *http.Request {
	return api.RequestWithUser(r, auth.NewDefaultUser("user@example.com", "user-1", nil, nil))
}

func testLicense(status string, devices []string) *models.License {
	return &models.License{
		ID: primitive.NewObjectID(),
		Details: models.LicenseDetails{
			UserID:    "user-1",
			Token:     "VS-a1b2c3-xyz",
			Plan:      licensing.PlanSingle,
			Status:    status,
			ExpiresAt: time.Now().UTC().Add(30 * 24 * time.Hour),
			Devices:   devices,
			Features:  map[string]bool{},
		},
	}
}
