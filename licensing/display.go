package licensing

import (
	"fmt"
	"math"
	"time"

	"github.com/ventasimple/license-api/models"
)

// Display derived statuses beyond the stored ones
const (
	DisplayWarning = "warning"
	DisplayExpired = "expired"
)

// warningWindowDays is how close to expiry an active license starts warning
const warningWindowDays = 7

// DaysLeft returns the whole days until expiry, rounded up. Negative once the
// expiry has passed.
func DaysLeft(expiresAt, now time.Time) int {
	return int(math.Ceil(expiresAt.Sub(now).Hours() / 24))
}

// Display computes the derived display status for a license at a given time.
// Expiry always wins over the stored status; the warning window only applies
// to licenses whose stored status is active.
func Display(lic *models.License, now time.Time) models.DisplayStatus {
	plan := lic.Details.Plan
	if plan == "" {
		plan = PlanSingle
	}

	var daysLeft *int
	status := lic.Details.Status
	if !lic.Details.ExpiresAt.IsZero() {
		d := DaysLeft(lic.Details.ExpiresAt, now)
		daysLeft = &d
		if d < 0 {
			status = DisplayExpired
		} else if status == StatusActive && d <= warningWindowDays {
			status = DisplayWarning
		}
	}

	return models.DisplayStatus{
		Status:   status,
		Message:  displayMessage(status, daysLeft),
		DaysLeft: daysLeft,
		Plan:     plan,
	}
}

func displayMessage(status string, daysLeft *int) string {
	switch status {
	case StatusActive:
		if daysLeft != nil {
			return fmt.Sprintf("License active (%d days left).", *daysLeft)
		}
		return "License active."
	case DisplayWarning:
		if daysLeft != nil {
			return fmt.Sprintf("Your license expires soon (%d days).", *daysLeft)
		}
		return "Your license expires soon."
	case DisplayExpired:
		return "License expired."
	case StatusPaused:
		return "Subscription paused."
	case StatusCancelled:
		return "Subscription cancelled."
	default:
		return "License not active."
	}
}
