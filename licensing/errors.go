package licensing

import (
	"errors"
	"fmt"
)

// Sentinel errors for the license lifecycle. Handlers map these to HTTP
// status codes.
var (
	ErrLicenseNotFound = errors.New("license not found")
	ErrLicenseExpired  = errors.New("license expired")
	ErrDeviceNotBound  = errors.New("device is not bound to this license")
	ErrNoSubscription  = errors.New("license has no linked subscription")
	ErrTokenCollision  = errors.New("could not generate a unique license token")
)

// NotActiveError means the stored status precludes the operation. The status
// is included so the end user can tell paused from cancelled.
type NotActiveError struct {
	Status string
}

func (e *NotActiveError) Error() string {
	return fmt.Sprintf("license not active (%s)", e.Status)
}

// DeviceLimitError means the license already has its full set of bound
// devices. The cap is part of the message.
type DeviceLimitError struct {
	Max int
}

func (e *DeviceLimitError) Error() string {
	return fmt.Sprintf("device limit reached (%d)", e.Max)
}
