package handlers

import (
	"errors"
	"net/http"

	"github.com/ventasimple/license-api/billing"
	"github.com/ventasimple/license-api/licensing"
)

// statusForLicensingError maps domain errors to HTTP status codes. Remote
// provider failures surface the provider's status when it is a sane HTTP
// code, otherwise a 500.
func statusForLicensingError(err error) int {
	var notActive *licensing.NotActiveError
	var deviceLimit *licensing.DeviceLimitError
	var remote *billing.RemoteError

	switch {
	case errors.Is(err, licensing.ErrLicenseNotFound):
		return http.StatusNotFound
	case errors.Is(err, licensing.ErrNoSubscription):
		return http.StatusNotFound
	case errors.Is(err, licensing.ErrLicenseExpired),
		errors.Is(err, licensing.ErrDeviceNotBound),
		errors.As(err, &notActive),
		errors.As(err, &deviceLimit):
		return http.StatusForbidden
	case errors.As(err, &remote):
		if remote.StatusCode >= 400 && remote.StatusCode < 600 {
			return remote.StatusCode
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
