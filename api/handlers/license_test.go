package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ventasimple/license-api/api/handlers"
	"github.com/ventasimple/license-api/databases/mocks"
	"github.com/ventasimple/license-api/models"
)

func TestLicenseHandlerUnauthorized(t *testing.T) {
	svc, _, _ := newTestService(t)

	l := handlers.License{Service: svc}
	req := httptest.NewRequest("GET", "/api/v1/license", nil)
	rr := httptest.NewRecorder()

	http.HandlerFunc(l.LicenseHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLicenseHandler(t *testing.T) {
	svc, db, _ := newTestService(t)
	lic := testLicense("active", []string{"device-1"})

	db.On("FindOne", mock.Anything, bson.M{"license.userID": "user-1"}, mock.Anything).Return(lic, nil)

	l := handlers.License{Service: svc}
	req := authedRequest(httptest.NewRequest("GET", "/api/v1/license", nil))
	rr := httptest.NewRecorder()

	http.HandlerFunc(l.LicenseHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var got models.License
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, lic.ID, got.ID)
	assert.Equal(t, "active", got.Details.Status)
}

func TestAttachDeviceHandlerMissingDeviceID(t *testing.T) {
	svc, _, _ := newTestService(t)

	l := handlers.License{Service: svc}
	req := authedRequest(httptest.NewRequest("POST", "/api/v1/license/devices/attach", strings.NewReader(`{}`)))
	rr := httptest.NewRecorder()

	http.HandlerFunc(l.AttachDeviceHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "deviceId is required")
}

func TestAttachDeviceHandlerNoActiveLicense(t *testing.T) {
	svc, db, _ := newTestService(t)

	db.On("FindOne", mock.Anything, bson.M{"license.userID": "user-1", "license.status": "active"}).Return(nil, mongo.ErrNoDocuments)

	l := handlers.License{Service: svc}
	req := authedRequest(httptest.NewRequest("POST", "/api/v1/license/devices/attach", strings.NewReader(`{"deviceId":"device-1"}`)))
	rr := httptest.NewRecorder()

	http.HandlerFunc(l.AttachDeviceHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAttachDeviceHandler(t *testing.T) {
	svc, db, _ := newTestService(t)
	lic := testLicense("active", []string{})
	bound := testLicense("active", []string{"device-1"})
	bound.ID = lic.ID

	ur := &mocks.UpdateResultHelper{}
	ur.On("MatchedCount").Return(int64(1))

	db.On("FindOne", mock.Anything, bson.M{"license.userID": "user-1", "license.status": "active"}).Return(lic, nil)
	db.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(ur, nil)
	db.On("FindOne", mock.Anything, bson.M{"_id": lic.ID}).Return(bound, nil)

	l := handlers.License{Service: svc}
	req := authedRequest(httptest.NewRequest("POST", "/api/v1/license/devices/attach", strings.NewReader(`{"deviceId":"device-1"}`)))
	rr := httptest.NewRecorder()

	http.HandlerFunc(l.AttachDeviceHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var got models.License
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, []string{"device-1"}, got.Details.Devices)
}

func TestDetachDeviceHandler(t *testing.T) {
	svc, db, _ := newTestService(t)
	lic := testLicense("active", []string{"device-1"})
	detached := testLicense("active", []string{})
	detached.ID = lic.ID

	db.On("FindOne", mock.Anything, bson.M{"license.userID": "user-1"}, mock.Anything).Return(lic, nil)
	db.On("UpdateOne", mock.Anything, bson.M{"_id": lic.ID}, mock.Anything).Return(nil, nil)
	db.On("FindOne", mock.Anything, bson.M{"_id": lic.ID}).Return(detached, nil)

	l := handlers.License{Service: svc}
	req := authedRequest(httptest.NewRequest("POST", "/api/v1/license/devices/detach", strings.NewReader(`{"deviceId":"device-1"}`)))
	rr := httptest.NewRecorder()

	http.HandlerFunc(l.DetachDeviceHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var got models.License
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Empty(t, got.Details.Devices)
}

func TestLicenseStatusHandlerMissingKey(t *testing.T) {
	svc, _, _ := newTestService(t)

	l := handlers.License{Service: svc}
	req := httptest.NewRequest("GET", "/license/status", nil)
	rr := httptest.NewRecorder()

	http.HandlerFunc(l.LicenseStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLicenseStatusHandlerNotFound(t *testing.T) {
	svc, db, _ := newTestService(t)

	db.On("FindOne", mock.Anything, bson.M{"license.token": "VS-nope00-xyz"}).Return(nil, mongo.ErrNoDocuments)

	l := handlers.License{Service: svc}
	req := httptest.NewRequest("GET", "/license/status?licenseKey=VS-nope00-xyz", nil)
	rr := httptest.NewRecorder()

	http.HandlerFunc(l.LicenseStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLicenseStatusHandlerWarning(t *testing.T) {
	svc, db, _ := newTestService(t)

	lic := testLicense("active", []string{"device-1"})
	lic.Details.ExpiresAt = lic.Details.ExpiresAt.Add(-27 * 24 * time.Hour) // 3 days out

	db.On("FindOne", mock.Anything, bson.M{"license.token": lic.Details.Token}).Return(lic, nil)

	l := handlers.License{Service: svc}
	req := httptest.NewRequest("GET", "/license/status?licenseKey="+lic.Details.Token, nil)
	rr := httptest.NewRecorder()

	http.HandlerFunc(l.LicenseStatusHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var got models.DisplayStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "warning", got.Status)
	assert.Equal(t, 3, *got.DaysLeft)
}
