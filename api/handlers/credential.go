package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ventasimple/license-api/api"
	"github.com/ventasimple/license-api/config"
	"github.com/ventasimple/license-api/licensing"
	"github.com/ventasimple/license-api/models"
)

// Credential exported for testing purposes. It serves the public offline
// credential endpoints, authenticated only by possession of the license
// token.
type Credential struct {
	Service *licensing.Service
}

// ValidateLicenseHandler checks a license token, binds the device if a slot
// is free and returns a signed offline credential
func (c Credential) ValidateLicenseHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.DeviceID == "" {
		config.ErrorStatus("token and deviceId are required", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	cred, err := c.Service.Validate(ctx, req.Token, req.DeviceID)
	if err != nil {
		config.ErrorStatus("failed to validate license", statusForLicensingError(err), w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(cred)
}

// RefreshLicenseHandler renews the offline credential for an already-bound
// device. It never consumes a device slot.
func (c Credential) RefreshLicenseHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.DeviceID == "" {
		config.ErrorStatus("token and deviceId are required", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	cred, err := c.Service.Refresh(ctx, req.Token, req.DeviceID)
	if err != nil {
		config.ErrorStatus("failed to refresh license", statusForLicensingError(err), w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(cred)
}

// PublicKeyHandler serves the verification key for offline credential checks
func (c Credential) PublicKeyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, c.Service.Signer.PublicKeyPEM())
}
