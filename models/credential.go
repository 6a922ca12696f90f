package models

// CredentialRequest is the body for the public validate/refresh endpoints,
// authenticated only by possession of the license token
type CredentialRequest struct {
	Token    string `json:"token"`
	DeviceID string `json:"deviceId"`
}

// CredentialResponse carries a signed offline credential plus a license
// snapshot for the desktop client
type CredentialResponse struct {
	LicenseJWS    string         `json:"license_jws"`
	License       LicenseSummary `json:"license"`
	OfflineTTLSec int64          `json:"offline_ttl_sec"`
}
