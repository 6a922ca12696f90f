package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ventasimple/license-api/api/handlers"
	"github.com/ventasimple/license-api/databases/mocks"
	"github.com/ventasimple/license-api/models"
)

func TestSalesSeriesHandler(t *testing.T) {
	db := &mocks.SaleDatabase{}

	points := []models.SalesSeriesPoint{
		{TS: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), Amount: 1500, Tickets: 3},
		{TS: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC), Amount: 900, Tickets: 1},
	}
	db.On("Aggregate", mock.Anything, mock.Anything).Return(points, nil)

	s := handlers.Stats{DB: db}
	req := authedRequest(httptest.NewRequest("GET", "/api/v1/stats/sales-series?from=2026-08-01&to=2026-08-02", nil))
	rr := httptest.NewRecorder()

	http.HandlerFunc(s.SalesSeriesHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.SalesSeriesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "day", resp.Bucket)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, float64(1500), resp.Data[0].Amount)
}

func TestSalesSeriesHandlerMissingRange(t *testing.T) {
	s := handlers.Stats{DB: &mocks.SaleDatabase{}}
	req := authedRequest(httptest.NewRequest("GET", "/api/v1/stats/sales-series", nil))
	rr := httptest.NewRecorder()

	http.HandlerFunc(s.SalesSeriesHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSalesSeriesHandlerInvalidBucket(t *testing.T) {
	s := handlers.Stats{DB: &mocks.SaleDatabase{}}
	req := authedRequest(httptest.NewRequest("GET", "/api/v1/stats/sales-series?from=2026-08-01&to=2026-08-02&bucket=hour", nil))
	rr := httptest.NewRecorder()

	http.HandlerFunc(s.SalesSeriesHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSalesSeriesHandlerEmptyResult(t *testing.T) {
	db := &mocks.SaleDatabase{}
	db.On("Aggregate", mock.Anything, mock.Anything).Return(nil, nil)

	s := handlers.Stats{DB: db}
	req := authedRequest(httptest.NewRequest("GET", "/api/v1/stats/sales-series?from=2026-08-01&to=2026-08-02", nil))
	rr := httptest.NewRecorder()

	http.HandlerFunc(s.SalesSeriesHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"data":[]`)
}
