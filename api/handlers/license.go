package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ventasimple/license-api/api"
	"github.com/ventasimple/license-api/config"
	"github.com/ventasimple/license-api/licensing"
	"github.com/ventasimple/license-api/models"
)

// License exported for testing purposes
type License struct {
	Service *licensing.Service
}

// LicenseHandler returns the authenticated user's current license, or null
// when they have none
func (l License) LicenseHandler(w http.ResponseWriter, r *http.Request) {
	user := api.UserFromRequest(r)
	if user == nil {
		config.ErrorStatus("missing authenticated user", http.StatusUnauthorized, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	lic, err := l.Service.CurrentForUser(ctx, user.ID())
	if err != nil {
		config.ErrorStatus("failed to get license", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(lic)
}

// AttachDeviceHandler binds a device to the user's active license
func (l License) AttachDeviceHandler(w http.ResponseWriter, r *http.Request) {
	user := api.UserFromRequest(r)
	if user == nil {
		config.ErrorStatus("missing authenticated user", http.StatusUnauthorized, w, nil)
		return
	}

	var req models.DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" {
		config.ErrorStatus("deviceId is required", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	lic, err := l.Service.ActiveForUser(ctx, user.ID())
	if err != nil {
		config.ErrorStatus("failed to get license", http.StatusInternalServerError, w, err)
		return
	}
	if lic == nil {
		config.ErrorStatus("no active license", http.StatusNotFound, w, licensing.ErrLicenseNotFound)
		return
	}

	updated, err := l.Service.AttachDevice(ctx, lic, req.DeviceID)
	if err != nil {
		config.ErrorStatus("failed to attach device", statusForLicensingError(err), w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(updated)
}

// DetachDeviceHandler removes a device binding from the user's license.
// Detaching a device that was never bound succeeds.
func (l License) DetachDeviceHandler(w http.ResponseWriter, r *http.Request) {
	user := api.UserFromRequest(r)
	if user == nil {
		config.ErrorStatus("missing authenticated user", http.StatusUnauthorized, w, nil)
		return
	}

	var req models.DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" {
		config.ErrorStatus("deviceId is required", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	lic, err := l.Service.CurrentForUser(ctx, user.ID())
	if err != nil {
		config.ErrorStatus("failed to get license", http.StatusInternalServerError, w, err)
		return
	}
	if lic == nil {
		config.ErrorStatus("no license", http.StatusNotFound, w, licensing.ErrLicenseNotFound)
		return
	}

	updated, err := l.Service.DetachDevice(ctx, lic, req.DeviceID)
	if err != nil {
		config.ErrorStatus("failed to detach device", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(updated)
}

// LicenseRefreshHandler is the poll path: pull the remote subscription and
// reconcile the local license against it
func (l License) LicenseRefreshHandler(w http.ResponseWriter, r *http.Request) {
	user := api.UserFromRequest(r)
	if user == nil {
		config.ErrorStatus("missing authenticated user", http.StatusUnauthorized, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	lic, err := l.Service.RefreshFromRemote(ctx, user.ID())
	if err != nil {
		config.ErrorStatus("failed to refresh license", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(lic)
}

// LicenseStatusHandler returns the derived display status for a license key.
// Used by the desktop client to render its licensing banner.
func (l License) LicenseStatusHandler(w http.ResponseWriter, r *http.Request) {
	licenseKey := r.URL.Query().Get("licenseKey")
	if licenseKey == "" {
		config.ErrorStatus("licenseKey is required", http.StatusBadRequest, w, nil)
		return
	}

	zap.S().Debugf("licenseKey: %v", licenseKey)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	lic, err := l.Service.FindByToken(ctx, licenseKey)
	if err != nil {
		config.ErrorStatus("failed to get license", http.StatusInternalServerError, w, err)
		return
	}
	if lic == nil {
		config.ErrorStatus("license not found", http.StatusNotFound, w, licensing.ErrLicenseNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(licensing.Display(lic, time.Now().UTC()))
}
