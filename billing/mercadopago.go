package billing

// go generate: mockery --name Client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ventasimple/license-api/config"
)

const defaultBaseURL = "https://api.mercadopago.com"

// Preapproval statuses as reported by Mercado Pago
const (
	PreapprovalAuthorized = "authorized"
	PreapprovalActive     = "active"
	PreapprovalPaused     = "paused"
	PreapprovalCancelled  = "cancelled"
)

// Preapproval is a Mercado Pago recurring subscription as returned by the
// provider API
type Preapproval struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
	InitPoint         string `json:"init_point"`
}

// CreatePreapprovalRequest carries everything needed to create a recurring
// subscription for a user
type CreatePreapprovalRequest struct {
	UserID     string
	Plan       string
	PayerEmail string
	BackURL    string
	Currency   string
	Amount     int64
}

// Client is the surface of the billing provider this service consumes
type Client interface {
	CreatePreapproval(ctx context.Context, req CreatePreapprovalRequest) (*Preapproval, error)
	GetPreapproval(ctx context.Context, id string) (*Preapproval, error)
	CancelPreapproval(ctx context.Context, id string) error
	PausePreapproval(ctx context.Context, id string) error
	ResumePreapproval(ctx context.Context, id string) error
}

// RemoteError is a non-2xx answer from the billing provider. The raw body is
// kept for operator diagnosis.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("billing provider returned %d: %s", e.StatusCode, e.Body)
}

type mercadoPago struct {
	accessToken     string
	baseURL         string
	notificationURL string
	httpClient      *http.Client
}

// New creates a Mercado Pago client from the project config
func New(conf *config.Config) Client {
	webhookBase := conf.WebhookPublicURL
	if webhookBase == "" {
		webhookBase = conf.PublicReturnURLBase
	}
	return &mercadoPago{
		accessToken:     conf.MPAccessToken,
		baseURL:         defaultBaseURL,
		notificationURL: notificationURL(webhookBase),
		httpClient:      http.DefaultClient,
	}
}

// notificationURL builds <base>/webhook and drops it unless it is a valid
// https URL, mirroring what the provider accepts
func notificationURL(base string) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + "/webhook")
	if err != nil || u.Scheme != "https" {
		return ""
	}
	return u.String()
}

type autoRecurring struct {
	Frequency         int    `json:"frequency"`
	FrequencyType     string `json:"frequency_type"`
	TransactionAmount int64  `json:"transaction_amount"`
	CurrencyID        string `json:"currency_id"`
}

type createPreapprovalPayload struct {
	Reason            string        `json:"reason"`
	ExternalReference string        `json:"external_reference"`
	PayerEmail        string        `json:"payer_email"`
	AutoRecurring     autoRecurring `json:"auto_recurring"`
	BackURL           string        `json:"back_url,omitempty"`
	NotificationURL   string        `json:"notification_url,omitempty"`
}

func (m *mercadoPago) CreatePreapproval(ctx context.Context, req CreatePreapprovalRequest) (*Preapproval, error) {
	payload := createPreapprovalPayload{
		Reason:            fmt.Sprintf("Licencia %s", req.Plan),
		ExternalReference: req.UserID,
		PayerEmail:        req.PayerEmail,
		AutoRecurring: autoRecurring{
			Frequency:         1,
			FrequencyType:     "months",
			TransactionAmount: req.Amount,
			CurrencyID:        strings.ToUpper(req.Currency),
		},
		BackURL:         req.BackURL,
		NotificationURL: m.notificationURL,
	}

	zap.S().Infow("creating preapproval",
		"reason", payload.Reason,
		"payer_email", payload.PayerEmail,
		"amount", payload.AutoRecurring.TransactionAmount,
		"currency", payload.AutoRecurring.CurrencyID,
	)

	pre := &Preapproval{}
	if err := m.do(ctx, http.MethodPost, "/preapproval", payload, pre); err != nil {
		return nil, err
	}
	if pre.ID == "" || pre.InitPoint == "" {
		return nil, &RemoteError{StatusCode: http.StatusBadGateway, Body: "preapproval response missing id or init_point"}
	}
	return pre, nil
}

func (m *mercadoPago) GetPreapproval(ctx context.Context, id string) (*Preapproval, error) {
	pre := &Preapproval{}
	if err := m.do(ctx, http.MethodGet, "/preapproval/"+url.PathEscape(id), nil, pre); err != nil {
		return nil, err
	}
	return pre, nil
}

func (m *mercadoPago) CancelPreapproval(ctx context.Context, id string) error {
	return m.updateStatus(ctx, id, PreapprovalCancelled)
}

func (m *mercadoPago) PausePreapproval(ctx context.Context, id string) error {
	return m.updateStatus(ctx, id, PreapprovalPaused)
}

func (m *mercadoPago) ResumePreapproval(ctx context.Context, id string) error {
	return m.updateStatus(ctx, id, PreapprovalAuthorized)
}

func (m *mercadoPago) updateStatus(ctx context.Context, id, status string) error {
	payload := map[string]string{"status": status}
	return m.do(ctx, http.MethodPut, "/preapproval/"+url.PathEscape(id), payload, nil)
}

func (m *mercadoPago) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		zap.S().Errorw("billing provider call failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"body", string(raw),
		)
		return &RemoteError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return err
		}
	}
	return nil
}
