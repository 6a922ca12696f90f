package config_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ventasimple/license-api/config"
)

func TestValidateReportsMissingVars(t *testing.T) {
	c := &config.Config{}

	err := c.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DB_URI")
	assert.Contains(t, err.Error(), "MP_ACCESS_TOKEN")
	assert.Contains(t, err.Error(), "LICENSE_PRIVATE_KEY_B64")
}

func TestValidateComplete(t *testing.T) {
	c := &config.Config{
		URL:                  "mongodb://localhost:27017",
		DatabaseName:         "ventasimple",
		MPAccessToken:        "tok",
		LicensePrivateKeyB64: "priv",
		LicensePublicKeyB64:  "pub",
	}

	assert.NoError(t, c.Validate())
}

func TestNewDefaults(t *testing.T) {
	c := config.New()

	assert.Equal(t, 72*time.Hour, c.OfflineTTL)
	assert.Equal(t, int64(2999), c.PriceSingle)
	assert.Equal(t, int64(4499), c.PriceMulti)
	assert.Equal(t, "ARS", c.MPCurrency)
}

func TestErrorStatus(t *testing.T) {
	rr := httptest.NewRecorder()

	config.ErrorStatus("something failed", 404, rr, nil)

	assert.Equal(t, 404, rr.Code)
	assert.Contains(t, rr.Body.String(), "something failed")
}
