package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ventasimple/license-api/api/handlers"
	"github.com/ventasimple/license-api/billing"
	"github.com/ventasimple/license-api/databases/mocks"
)

// processing happens off the request goroutine; tests close done from the
// last mocked call of the chain and wait on it
func waitForProcessing(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("webhook processing did not finish")
	}
}

func TestWebhookHandlerReconciles(t *testing.T) {
	svc, db, bc := newTestService(t)
	lic := testLicense("inactive", nil)
	activated := testLicense("active", nil)
	activated.ID = lic.ID

	ur := &mocks.UpdateResultHelper{}
	ur.On("MatchedCount").Return(int64(1))

	done := make(chan struct{})
	bc.On("GetPreapproval", mock.Anything, "pre-1").Return(&billing.Preapproval{
		ID:                "pre-1",
		Status:            billing.PreapprovalAuthorized,
		ExternalReference: "user-1",
	}, nil)
	db.On("FindOne", mock.Anything, bson.M{"license.userID": "user-1"}).Return(lic, nil)
	db.On("UpdateOne", mock.Anything, bson.M{"_id": lic.ID}, mock.Anything).Return(ur, nil)
	db.On("FindOne", mock.Anything, bson.M{"_id": lic.ID}).Return(activated, nil).Run(func(mock.Arguments) {
		close(done)
	})

	h := handlers.Webhook{Service: svc, Billing: bc}
	body := `{"type":"subscription_preapproval","data":{"id":"pre-1"}}`
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(h.WebhookHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	waitForProcessing(t, done)
	db.AssertCalled(t, "UpdateOne", mock.Anything, bson.M{"_id": lic.ID}, mock.Anything)
}

func TestWebhookHandlerAcksWhenRemoteFetchFails(t *testing.T) {
	svc, db, bc := newTestService(t)

	done := make(chan struct{})
	bc.On("GetPreapproval", mock.Anything, "pre-1").Return(nil, errors.New("provider down")).Run(func(mock.Arguments) {
		close(done)
	})

	h := handlers.Webhook{Service: svc, Billing: bc}
	body := `{"type":"subscription_preapproval","data":{"id":"pre-1"}}`
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(h.WebhookHandler).ServeHTTP(rr, req)

	// the provider must always see a 200, redelivery is its decision
	assert.Equal(t, http.StatusOK, rr.Code)

	waitForProcessing(t, done)
	db.AssertNotCalled(t, "FindOne", mock.Anything, mock.Anything)
}

func TestWebhookHandlerIgnoresOtherTopics(t *testing.T) {
	svc, _, bc := newTestService(t)

	h := handlers.Webhook{Service: svc, Billing: bc}
	body := `{"type":"payment","data":{"id":"pay-1"}}`
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(h.WebhookHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	bc.AssertNotCalled(t, "GetPreapproval", mock.Anything, mock.Anything)
}

func TestWebhookHandlerReadsQueryParams(t *testing.T) {
	svc, db, bc := newTestService(t)

	done := make(chan struct{})
	bc.On("GetPreapproval", mock.Anything, "pre-2").Return(&billing.Preapproval{
		ID:                "pre-2",
		Status:            billing.PreapprovalCancelled,
		ExternalReference: "ghost",
	}, nil)
	db.On("FindOne", mock.Anything, bson.M{"license.userID": "ghost"}).Return(nil, mongo.ErrNoDocuments)
	db.On("FindOne", mock.Anything, bson.M{"license.preapprovalId": "pre-2"}).Return(nil, mongo.ErrNoDocuments).Run(func(mock.Arguments) {
		close(done)
	})

	h := handlers.Webhook{Service: svc, Billing: bc}
	req := httptest.NewRequest("POST", "/webhook?type=preapproval&data.id=pre-2", strings.NewReader(""))
	rr := httptest.NewRecorder()

	http.HandlerFunc(h.WebhookHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	waitForProcessing(t, done)
	bc.AssertCalled(t, "GetPreapproval", mock.Anything, "pre-2")
}

func TestWebhookHandlerEmptyBody(t *testing.T) {
	svc, _, bc := newTestService(t)

	h := handlers.Webhook{Service: svc, Billing: bc}
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(""))
	rr := httptest.NewRecorder()

	http.HandlerFunc(h.WebhookHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	bc.AssertNotCalled(t, "GetPreapproval", mock.Anything, mock.Anything)
}
