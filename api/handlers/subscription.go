package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/ventasimple/license-api/api"
	"github.com/ventasimple/license-api/billing"
	"github.com/ventasimple/license-api/config"
	"github.com/ventasimple/license-api/databases"
	"github.com/ventasimple/license-api/licensing"
	"github.com/ventasimple/license-api/models"
)

// Subscription exported for testing purposes. It drives the recurring
// subscription lifecycle against the billing provider.
type Subscription struct {
	Service *licensing.Service
	Billing billing.Client
	UDB     databases.UserDatabase
	Config  config.Config
}

// SubscribeHandler creates a new recurring subscription and records the
// license in its inactive pre-payment state
func (s Subscription) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	user := api.UserFromRequest(r)
	if user == nil {
		config.ErrorStatus("missing authenticated user", http.StatusUnauthorized, w, nil)
		return
	}

	var req models.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Plan != licensing.PlanSingle && req.Plan != licensing.PlanMulti {
		config.ErrorStatus("invalid plan", http.StatusBadRequest, w, fmt.Errorf("plan must be single or multi"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	payerEmail := req.MPEmail
	if payerEmail == "" {
		dbUser, err := s.UDB.FindOne(ctx, bson.M{"_id": user.ID()})
		if err != nil {
			config.ErrorStatus("failed to get user", http.StatusNotFound, w, err)
			return
		}
		payerEmail = dbUser.Details.Email
	}

	pre, err := s.Billing.CreatePreapproval(ctx, billing.CreatePreapprovalRequest{
		UserID:     user.ID(),
		Plan:       req.Plan,
		PayerEmail: payerEmail,
		BackURL:    s.backURL(),
		Currency:   s.Config.MPCurrency,
		Amount:     s.amountForPlan(req.Plan),
	})
	if err != nil {
		config.ErrorStatus("failed to create subscription", statusForLicensingError(err), w, err)
		return
	}

	if err := s.Service.RecordPendingSubscription(ctx, user.ID(), req.Plan, pre.ID); err != nil {
		config.ErrorStatus("failed to record pending subscription", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.SubscribeResponse{InitPoint: pre.InitPoint})
}

// CancelSubscriptionHandler cancels the remote subscription first, then
// mirrors the cancelled status locally
func (s Subscription) CancelSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "failed to cancel subscription", s.Service.Cancel)
}

// PauseSubscriptionHandler pauses the remote subscription first, then
// mirrors the paused status locally
func (s Subscription) PauseSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "failed to pause subscription", s.Service.Pause)
}

// ResumeSubscriptionHandler re-authorizes the remote subscription first,
// then mirrors the active status locally
func (s Subscription) ResumeSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "failed to resume subscription", s.Service.Resume)
}

// ChangeMethodHandler starts a new preapproval so the user can re-link their
// payment method. The previous subscription stays untouched; the webhook
// swaps them once the new one authorizes.
func (s Subscription) ChangeMethodHandler(w http.ResponseWriter, r *http.Request) {
	user := api.UserFromRequest(r)
	if user == nil {
		config.ErrorStatus("missing authenticated user", http.StatusUnauthorized, w, nil)
		return
	}

	var req models.SubscribeRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	plan := req.Plan
	if plan == "" {
		if lic, err := s.Service.CurrentForUser(ctx, user.ID()); err == nil && lic != nil {
			plan = lic.Details.Plan
		}
	}
	if plan == "" {
		plan = licensing.PlanSingle
	}

	payerEmail := req.MPEmail
	if payerEmail == "" {
		dbUser, err := s.UDB.FindOne(ctx, bson.M{"_id": user.ID()})
		if err != nil {
			config.ErrorStatus("failed to get user", http.StatusNotFound, w, err)
			return
		}
		payerEmail = dbUser.Details.Email
	}

	pre, err := s.Billing.CreatePreapproval(ctx, billing.CreatePreapprovalRequest{
		UserID:     user.ID(),
		Plan:       plan,
		PayerEmail: payerEmail,
		BackURL:    s.backURL(),
		Currency:   s.Config.MPCurrency,
		Amount:     s.amountForPlan(plan),
	})
	if err != nil {
		config.ErrorStatus("failed to start payment method change", statusForLicensingError(err), w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.ChangeMethodResponse{InitPoint: pre.InitPoint, PreapprovalID: pre.ID})
}

// ReturnHandler is the billing provider's back_url target. It confirms the
// subscription the user just approved and bounces them to the frontend.
func (s Subscription) ReturnHandler(w http.ResponseWriter, r *http.Request) {
	preapprovalID := firstNonEmpty(
		r.URL.Query().Get("preapproval_id"),
		r.URL.Query().Get("preapprovalId"),
		r.URL.Query().Get("id"),
	)
	if preapprovalID == "" {
		s.redirect(w, "/dashboard?status=missing_preapproval")
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	pre, err := s.Billing.GetPreapproval(ctx, preapprovalID)
	if err != nil {
		zap.S().Errorw("return: failed to fetch preapproval", "preapprovalId", preapprovalID, "error", err)
		s.redirect(w, "/return?status=error")
		return
	}

	if _, err := s.Service.ConfirmReturn(ctx, pre); err != nil {
		zap.S().Errorw("return: failed to confirm subscription", "preapprovalId", pre.ID, "error", err)
		s.redirect(w, "/return?status=error")
		return
	}

	if pre.Status == billing.PreapprovalAuthorized || pre.Status == billing.PreapprovalActive {
		s.redirect(w, fmt.Sprintf("/return?preapproval_id=%s&status=ok", url.QueryEscape(pre.ID)))
		return
	}
	s.redirect(w, fmt.Sprintf("/return?preapproval_id=%s&status=%s", url.QueryEscape(pre.ID), url.QueryEscape(pre.Status)))
}

func (s Subscription) redirect(w http.ResponseWriter, path string) {
	base := strings.TrimRight(s.Config.FrontendURL, "/")
	if base == "" {
		// no frontend configured, show a minimal landing page instead
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "<html><body><p>Pago procesado. Ya puedes volver a la aplicación.</p></body></html>")
		return
	}
	w.Header().Set("Location", base+path)
	w.WriteHeader(http.StatusFound)
}

func (s Subscription) amountForPlan(plan string) int64 {
	if plan == licensing.PlanMulti {
		return s.Config.PriceMulti
	}
	return s.Config.PriceSingle
}

// backURL picks the public base the provider should send the user back to
func (s Subscription) backURL() string {
	base := firstNonEmpty(s.Config.PublicReturnURLBase, s.Config.WebhookPublicURL, s.Config.FrontendURL)
	return strings.TrimRight(base, "/") + "/return"
}

// transition runs a remote-first status change against the user's license
func (s Subscription) transition(w http.ResponseWriter, r *http.Request, message string, fn func(ctx context.Context, lic *models.License) (*models.License, error)) {
	user := api.UserFromRequest(r)
	if user == nil {
		config.ErrorStatus("missing authenticated user", http.StatusUnauthorized, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	lic, err := s.Service.CurrentForUser(ctx, user.ID())
	if err != nil {
		config.ErrorStatus("failed to get license", http.StatusInternalServerError, w, err)
		return
	}
	if lic == nil || lic.Details.PreapprovalID == "" {
		config.ErrorStatus("no subscription", http.StatusNotFound, w, licensing.ErrNoSubscription)
		return
	}

	updated, err := fn(ctx, lic)
	if err != nil {
		config.ErrorStatus(message, statusForLicensingError(err), w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(updated)
}
