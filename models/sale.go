package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sale holds the structure for the sales collection in mongo, synced up from
// the desktop clients
type Sale struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details SaleDetails        `json:"sale" bson:"sale"`
	Version int32              `json:"__v" bson:"__v"`
}

// SaleDetails holds the structure for the inner sale structure
type SaleDetails struct {
	UserID    string    `json:"userID" bson:"userID"`
	Total     float64   `json:"total" bson:"total"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// SalesSeriesPoint is one bucket of the sales time series
type SalesSeriesPoint struct {
	TS      time.Time `json:"ts" bson:"ts"`
	Amount  float64   `json:"amount" bson:"amount"`
	Tickets int64     `json:"tickets" bson:"tickets"`
}

// SalesSeriesResponse is the aggregated sales series for the dashboard
type SalesSeriesResponse struct {
	Bucket string             `json:"bucket"`
	From   string             `json:"from"`
	To     string             `json:"to"`
	Data   []SalesSeriesPoint `json:"data"`
}
