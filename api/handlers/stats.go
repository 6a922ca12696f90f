package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ventasimple/license-api/api"
	"github.com/ventasimple/license-api/config"
	"github.com/ventasimple/license-api/databases"
	"github.com/ventasimple/license-api/models"
)

// Stats exported for testing purposes. Pure read-only aggregation, no license
// invariants here.
type Stats struct {
	DB databases.SaleDatabase
}

var validBuckets = map[string]bool{"day": true, "week": true, "month": true}

// SalesSeriesHandler aggregates the user's sales into time buckets
func (s Stats) SalesSeriesHandler(w http.ResponseWriter, r *http.Request) {
	user := api.UserFromRequest(r)
	if user == nil {
		config.ErrorStatus("missing authenticated user", http.StatusUnauthorized, w, nil)
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	bucket := r.URL.Query().Get("bucket")
	if bucket == "" {
		bucket = "day"
	}

	if from == "" || to == "" {
		config.ErrorStatus("from and to are required (YYYY-MM-DD)", http.StatusBadRequest, w, nil)
		return
	}
	if !validBuckets[bucket] {
		config.ErrorStatus("invalid bucket", http.StatusBadRequest, w, nil)
		return
	}

	fromTS, err := time.Parse("2006-01-02", from)
	if err != nil {
		config.ErrorStatus("invalid from date", http.StatusBadRequest, w, err)
		return
	}
	toTS, err := time.Parse("2006-01-02", to)
	if err != nil {
		config.ErrorStatus("invalid to date", http.StatusBadRequest, w, err)
		return
	}
	// include the whole "to" day
	toExclusive := toTS.AddDate(0, 0, 1)

	pipeline := bson.A{
		bson.M{"$match": bson.M{
			"sale.userID": user.ID(),
			"sale.createdAt": bson.M{
				"$gte": fromTS,
				"$lt":  toExclusive,
			},
		}},
		bson.M{"$group": bson.M{
			"_id":     bson.M{"$dateTrunc": bson.M{"date": "$sale.createdAt", "unit": bucket}},
			"amount":  bson.M{"$sum": "$sale.total"},
			"tickets": bson.M{"$sum": 1},
		}},
		bson.M{"$sort": bson.M{"_id": 1}},
		bson.M{"$project": bson.M{
			"_id":     0,
			"ts":      "$_id",
			"amount":  1,
			"tickets": 1,
		}},
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	points, err := s.DB.Aggregate(ctx, pipeline)
	if err != nil {
		config.ErrorStatus("failed to aggregate sales series", http.StatusInternalServerError, w, err)
		return
	}
	if points == nil {
		points = []models.SalesSeriesPoint{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.SalesSeriesResponse{
		Bucket: bucket,
		From:   from,
		To:     to,
		Data:   points,
	})
}
