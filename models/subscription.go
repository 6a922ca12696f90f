package models

// SubscribeRequest is the body for creating a new recurring subscription
type SubscribeRequest struct {
	Plan    string `json:"plan"`
	MPEmail string `json:"mpEmail"`
}

// SubscribeResponse carries the billing provider checkout URL back to the
// dashboard
type SubscribeResponse struct {
	InitPoint string `json:"init_point"`
}

// ChangeMethodResponse is returned when the user re-links their payment
// method. The webhook swaps the subscriptions once the new one authorizes.
type ChangeMethodResponse struct {
	InitPoint     string `json:"init_point"`
	PreapprovalID string `json:"mpPreapprovalId"`
}

// DeviceRequest is the body for device attach/detach
type DeviceRequest struct {
	DeviceID string `json:"deviceId"`
}
