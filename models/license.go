package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// License holds the structure for the license collection in mongo
type License struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details LicenseDetails     `json:"license" bson:"license"`
	Version int32              `json:"__v" bson:"__v"`
}

// LicenseDetails holds the structure for the inner license structure as
// defined in the license collection in mongo. Token and PreapprovalID are
// omitted when empty so the sparse unique indexes on them only apply once
// they are assigned.
type LicenseDetails struct {
	UserID        string          `json:"userID" bson:"userID"`
	Token         string          `json:"token,omitempty" bson:"token,omitempty"`
	Plan          string          `json:"plan" bson:"plan"`
	Status        string          `json:"status" bson:"status"`
	ExpiresAt     time.Time       `json:"expiresAt" bson:"expiresAt"`
	Devices       []string        `json:"devices" bson:"devices"`
	PreapprovalID string          `json:"preapprovalId,omitempty" bson:"preapprovalId,omitempty"`
	Features      map[string]bool `json:"features" bson:"features"`
	CreatedAt     time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// LicenseSummary is the trimmed license view returned alongside an offline
// credential
type LicenseSummary struct {
	ID        string    `json:"id"`
	Plan      string    `json:"plan"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
	Devices   []string  `json:"devices"`
}

// DisplayStatus is the derived, read-time license status for the desktop
// client. It is computed from the stored status and the expiry, never stored.
type DisplayStatus struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	DaysLeft *int   `json:"daysLeft"`
	Plan     string `json:"plan"`
}
