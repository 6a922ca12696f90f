package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ventasimple/license-api/api"
	"github.com/ventasimple/license-api/billing"
	"github.com/ventasimple/license-api/licensing"
)

// Webhook exported for testing purposes. It receives billing provider event
// notifications.
type Webhook struct {
	Service *licensing.Service
	Billing billing.Client
}

type webhookBody struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
	ID    string `json:"id"`
	Data  struct {
		ID string `json:"id"`
	} `json:"data"`
}

// WebhookHandler acknowledges the provider immediately and processes the
// event off the request goroutine, so the response terminates without
// waiting on the remote fetch. The provider controls redelivery, so
// processing failures are logged and swallowed: it must never see an error
// for a payload we could not handle.
func (h Webhook) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var body webhookBody
	_ = json.NewDecoder(r.Body).Decode(&body)

	topic := firstNonEmpty(body.Type, r.URL.Query().Get("type"), body.Topic, r.URL.Query().Get("topic"))
	dataID := firstNonEmpty(body.Data.ID, r.URL.Query().Get("data.id"), body.ID, r.URL.Query().Get("id"))

	// ack before any processing
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	if topic == "" || dataID == "" {
		return
	}
	if !strings.Contains(topic, "preapproval") {
		return
	}

	go h.process(dataID)
}

func (h Webhook) process(dataID string) {
	// the request context dies with the response; processing gets its own
	ctx, cancel := api.WithQueryTimeout(context.Background())
	defer cancel()

	pre, err := h.Billing.GetPreapproval(ctx, dataID)
	if err != nil {
		zap.S().Errorw("webhook: failed to fetch preapproval",
			"preapprovalId", dataID,
			"error", err,
		)
		return
	}

	if _, err := h.Service.ReconcileFromRemote(ctx, pre); err != nil {
		zap.S().Errorw("webhook: reconciliation failed",
			"preapprovalId", pre.ID,
			"status", pre.Status,
			"error", err,
		)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
