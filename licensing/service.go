package licensing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ventasimple/license-api/billing"
	"github.com/ventasimple/license-api/databases"
	"github.com/ventasimple/license-api/models"
)

// maxTokenAttempts bounds the regenerate-and-retry loop when a freshly
// generated license token collides with the unique index
const maxTokenAttempts = 3

// pendingExpiry is the placeholder validity given to a license while its
// first payment is still unconfirmed
const pendingExpiry = 24 * time.Hour

// Service owns all writes to license records: status transitions, expiry
// computation, device binding and offline credential issuance. Every
// transition is a read-then-conditionally-write against a single license row;
// the unique indexes on token and preapprovalId backstop concurrent writers.
type Service struct {
	Licenses   databases.LicenseDatabase
	Billing    billing.Client
	Signer     *Signer
	OfflineTTL time.Duration
}

// NewService wires the license service from its collaborators
func NewService(licenses databases.LicenseDatabase, billingClient billing.Client, signer *Signer, offlineTTL time.Duration) *Service {
	return &Service{
		Licenses:   licenses,
		Billing:    billingClient,
		Signer:     signer,
		OfflineTTL: offlineTTL,
	}
}

// CurrentForUser returns the user's most recently updated license, or nil if
// they have none
func (s *Service) CurrentForUser(ctx context.Context, userID string) (*models.License, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "license.updatedAt", Value: -1}})
	return s.findOne(ctx, bson.M{"license.userID": userID}, opts)
}

// ActiveForUser returns the user's active license, or nil
func (s *Service) ActiveForUser(ctx context.Context, userID string) (*models.License, error) {
	return s.findOne(ctx, bson.M{"license.userID": userID, "license.status": StatusActive})
}

// FindByToken resolves a license by its key
func (s *Service) FindByToken(ctx context.Context, token string) (*models.License, error) {
	return s.findOne(ctx, bson.M{"license.token": token})
}

func (s *Service) findByID(ctx context.Context, id primitive.ObjectID) (*models.License, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Service) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.License, error) {
	lic, err := s.Licenses.FindOne(ctx, filter, opts...)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return lic, nil
}

// RecordPendingSubscription upserts the user's license into the inactive
// pre-payment state after a new preapproval was created: plan and
// preapprovalId are set and the expiry is a short placeholder until the
// webhook or return flow confirms payment.
func (s *Service) RecordPendingSubscription(ctx context.Context, userID, plan, preapprovalID string) error {
	now := time.Now().UTC()
	lic, err := s.findOne(ctx, bson.M{"license.userID": userID})
	if err != nil {
		return err
	}

	if lic != nil {
		_, err = s.Licenses.UpdateOne(ctx, bson.M{"_id": lic.ID}, bson.M{"$set": bson.M{
			"license.plan":          plan,
			"license.status":        StatusInactive,
			"license.preapprovalId": preapprovalID,
			"license.expiresAt":     now.Add(pendingExpiry),
			"license.updatedAt":     now,
		}})
		return err
	}

	_, err = s.Licenses.InsertOne(ctx, models.License{
		ID: primitive.NewObjectID(),
		Details: models.LicenseDetails{
			UserID:        userID,
			Plan:          plan,
			Status:        StatusInactive,
			PreapprovalID: preapprovalID,
			ExpiresAt:     now.Add(pendingExpiry),
			Devices:       []string{},
			Features:      map[string]bool{},
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	})
	return err
}

// Activate moves a license to active for a confirmed subscription: a fresh
// one-month expiry, the new preapprovalId and a token if none was assigned
// yet. A superseded subscription is cancelled remotely best-effort; its
// failure never blocks the activation.
func (s *Service) Activate(ctx context.Context, lic *models.License, preapprovalID string) (*models.License, error) {
	if old := lic.Details.PreapprovalID; old != "" && old != preapprovalID {
		if err := s.Billing.CancelPreapproval(ctx, old); err != nil {
			zap.S().Warnw("could not cancel superseded preapproval",
				"preapprovalId", old,
				"error", err,
			)
		}
	}

	now := time.Now().UTC()
	set := bson.M{
		"license.status":        StatusActive,
		"license.expiresAt":     now.AddDate(0, 1, 0),
		"license.preapprovalId": preapprovalID,
		"license.updatedAt":     now,
	}

	if lic.Details.Token == "" {
		for attempt := 0; attempt < maxTokenAttempts; attempt++ {
			set["license.token"] = GenerateToken()
			_, err := s.Licenses.UpdateOne(ctx, bson.M{"_id": lic.ID}, bson.M{"$set": set})
			if err != nil {
				if mongo.IsDuplicateKeyError(err) {
					continue
				}
				return nil, err
			}
			return s.findByID(ctx, lic.ID)
		}
		return nil, ErrTokenCollision
	}

	if _, err := s.Licenses.UpdateOne(ctx, bson.M{"_id": lic.ID}, bson.M{"$set": set}); err != nil {
		return nil, err
	}
	return s.findByID(ctx, lic.ID)
}

// Pause asks the billing provider to pause the subscription and mirrors the
// status locally once the remote call succeeds
func (s *Service) Pause(ctx context.Context, lic *models.License) (*models.License, error) {
	if lic.Details.PreapprovalID == "" {
		return nil, ErrNoSubscription
	}
	if err := s.Billing.PausePreapproval(ctx, lic.Details.PreapprovalID); err != nil {
		return nil, err
	}
	return s.mirrorStatus(ctx, lic.ID, StatusPaused)
}

// Cancel asks the billing provider to cancel the subscription and mirrors the
// status locally once the remote call succeeds. Cancellation is a status
// transition, the row is never deleted.
func (s *Service) Cancel(ctx context.Context, lic *models.License) (*models.License, error) {
	if lic.Details.PreapprovalID == "" {
		return nil, ErrNoSubscription
	}
	if err := s.Billing.CancelPreapproval(ctx, lic.Details.PreapprovalID); err != nil {
		return nil, err
	}
	return s.mirrorStatus(ctx, lic.ID, StatusCancelled)
}

// Resume asks the billing provider to re-authorize a paused subscription and
// mirrors the active status locally once the remote call succeeds
func (s *Service) Resume(ctx context.Context, lic *models.License) (*models.License, error) {
	if lic.Details.PreapprovalID == "" {
		return nil, ErrNoSubscription
	}
	if err := s.Billing.ResumePreapproval(ctx, lic.Details.PreapprovalID); err != nil {
		return nil, err
	}
	return s.mirrorStatus(ctx, lic.ID, StatusActive)
}

// mirrorStatus overwrites the local status with the remote truth. Used when
// the provider already holds the authoritative state (webhook, or after a
// successful remote status change).
func (s *Service) mirrorStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.License, error) {
	_, err := s.Licenses.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"license.status":    status,
		"license.updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return nil, err
	}
	return s.findByID(ctx, id)
}

// ReconcileFromRemote aligns the local license with a remote subscription
// snapshot. The target state is derived solely from the snapshot's status, so
// the routine is idempotent and safe to run out of order: replaying a stale
// snapshot applies that snapshot's state, never a delta. An unknown
// subscription or status is a silent no-op.
func (s *Service) ReconcileFromRemote(ctx context.Context, pre *billing.Preapproval) (*models.License, error) {
	var lic *models.License
	var err error

	if pre.ExternalReference != "" {
		lic, err = s.findOne(ctx, bson.M{"license.userID": pre.ExternalReference})
		if err != nil {
			return nil, err
		}
	}
	if lic == nil {
		lic, err = s.findOne(ctx, bson.M{"license.preapprovalId": pre.ID})
		if err != nil {
			return nil, err
		}
	}
	if lic == nil {
		// nothing to reconcile
		return nil, nil
	}

	switch pre.Status {
	case billing.PreapprovalAuthorized, billing.PreapprovalActive:
		return s.Activate(ctx, lic, pre.ID)
	case billing.PreapprovalPaused:
		return s.mirrorStatus(ctx, lic.ID, StatusPaused)
	case billing.PreapprovalCancelled:
		return s.mirrorStatus(ctx, lic.ID, StatusCancelled)
	default:
		return lic, nil
	}
}

// ConfirmReturn handles the user coming back from the provider checkout. For
// a confirmed subscription it activates the owner's license, creating it
// lazily when the purchase happened without a prior local record. Any other
// remote status leaves local state untouched.
func (s *Service) ConfirmReturn(ctx context.Context, pre *billing.Preapproval) (*models.License, error) {
	if pre.Status != billing.PreapprovalAuthorized && pre.Status != billing.PreapprovalActive {
		return nil, nil
	}
	if pre.ExternalReference == "" {
		return nil, nil
	}

	lic, err := s.findOne(ctx, bson.M{"license.userID": pre.ExternalReference})
	if err != nil {
		return nil, err
	}
	if lic != nil {
		return s.Activate(ctx, lic, pre.ID)
	}

	now := time.Now().UTC()
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		fresh := models.License{
			ID: primitive.NewObjectID(),
			Details: models.LicenseDetails{
				UserID:        pre.ExternalReference,
				Plan:          PlanSingle,
				Status:        StatusActive,
				Token:         GenerateToken(),
				PreapprovalID: pre.ID,
				ExpiresAt:     now.AddDate(0, 1, 0),
				Devices:       []string{},
				Features:      map[string]bool{},
				CreatedAt:     now,
				UpdatedAt:     now,
			},
		}
		_, err := s.Licenses.InsertOne(ctx, fresh)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return nil, err
		}
		return &fresh, nil
	}
	return nil, ErrTokenCollision
}

// RefreshFromRemote is the poll path: pull the remote subscription linked to
// the user's license and run the same reconciliation the webhook uses. A
// failed remote fetch leaves the local state untouched.
func (s *Service) RefreshFromRemote(ctx context.Context, userID string) (*models.License, error) {
	lic, err := s.findOne(ctx, bson.M{"license.userID": userID})
	if err != nil || lic == nil {
		return nil, err
	}
	if lic.Details.PreapprovalID == "" {
		return lic, nil
	}

	pre, err := s.Billing.GetPreapproval(ctx, lic.Details.PreapprovalID)
	if err != nil {
		zap.S().Warnw("could not fetch preapproval during refresh",
			"preapprovalId", lic.Details.PreapprovalID,
			"error", err,
		)
		return lic, nil
	}

	updated, err := s.ReconcileFromRemote(ctx, pre)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return lic, nil
	}
	return updated, nil
}

// AttachDevice binds a device to a license. Binding an already-bound device
// is a no-op success. The count-and-write is a single atomic update: the
// filter only matches while the device is absent and the slot at index cap-1
// is still empty, so two concurrent binds can never push the set past the
// cap.
func (s *Service) AttachDevice(ctx context.Context, lic *models.License, deviceID string) (*models.License, error) {
	max := LimitForPlan(lic.Details.Plan)
	for _, d := range lic.Details.Devices {
		if d == deviceID {
			return lic, nil
		}
	}

	filter := bson.M{
		"_id":             lic.ID,
		"license.devices": bson.M{"$ne": deviceID},
		fmt.Sprintf("license.devices.%d", max-1): bson.M{"$exists": false},
	}
	update := bson.M{
		"$addToSet": bson.M{"license.devices": deviceID},
		"$set":      bson.M{"license.updatedAt": time.Now().UTC()},
	}

	res, err := s.Licenses.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount() == 0 {
		// either a concurrent bind of the same device won, or the cap is hit
		cur, err := s.findByID(ctx, lic.ID)
		if err != nil {
			return nil, err
		}
		if cur != nil {
			for _, d := range cur.Details.Devices {
				if d == deviceID {
					return cur, nil
				}
			}
		}
		return nil, &DeviceLimitError{Max: max}
	}
	return s.findByID(ctx, lic.ID)
}

// DetachDevice removes a device binding. Removing an absent device is a
// no-op success.
func (s *Service) DetachDevice(ctx context.Context, lic *models.License, deviceID string) (*models.License, error) {
	_, err := s.Licenses.UpdateOne(ctx, bson.M{"_id": lic.ID}, bson.M{
		"$pull": bson.M{"license.devices": deviceID},
		"$set":  bson.M{"license.updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return nil, err
	}
	return s.findByID(ctx, lic.ID)
}

// Validate is the first-contact credential request from a device: it checks
// the license is usable, binds the device if a slot is free and mints a
// signed offline credential.
func (s *Service) Validate(ctx context.Context, token, deviceID string) (*models.CredentialResponse, error) {
	lic, err := s.usableLicense(ctx, token)
	if err != nil {
		return nil, err
	}
	lic, err = s.AttachDevice(ctx, lic, deviceID)
	if err != nil {
		return nil, err
	}
	return s.issueCredential(lic, deviceID)
}

// Refresh renews the offline credential for an already-bound device. It
// never binds: a token holder cannot consume device slots through refresh.
func (s *Service) Refresh(ctx context.Context, token, deviceID string) (*models.CredentialResponse, error) {
	lic, err := s.usableLicense(ctx, token)
	if err != nil {
		return nil, err
	}
	bound := false
	for _, d := range lic.Details.Devices {
		if d == deviceID {
			bound = true
			break
		}
	}
	if !bound {
		return nil, ErrDeviceNotBound
	}
	return s.issueCredential(lic, deviceID)
}

// usableLicense runs the shared validate/refresh pre-checks. A stored
// "active" with a past expiresAt is treated as expired even though the row
// has not been reconciled yet.
func (s *Service) usableLicense(ctx context.Context, token string) (*models.License, error) {
	lic, err := s.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if lic == nil {
		return nil, ErrLicenseNotFound
	}
	if lic.Details.Status != StatusActive {
		return nil, &NotActiveError{Status: lic.Details.Status}
	}
	if !lic.Details.ExpiresAt.IsZero() && lic.Details.ExpiresAt.Before(time.Now().UTC()) {
		return nil, ErrLicenseExpired
	}
	return lic, nil
}

func (s *Service) issueCredential(lic *models.License, deviceID string) (*models.CredentialResponse, error) {
	max := LimitForPlan(lic.Details.Plan)
	ttlSec := int64(s.OfflineTTL / time.Second)

	features := map[string]bool{}
	for k, v := range lic.Details.Features {
		features[k] = v
	}
	features["sync"] = true

	now := time.Now().UTC()
	claims := CredentialClaims{
		UserID:        lic.Details.UserID,
		LicenseID:     lic.ID.Hex(),
		Token:         lic.Details.Token,
		Plan:          lic.Details.Plan,
		Status:        lic.Details.Status,
		DeviceID:      deviceID,
		MaxDevices:    max,
		Features:      features,
		OfflineTTLSec: ttlSec,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.OfflineTTL)),
		},
	}

	jws, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	devices := lic.Details.Devices
	if devices == nil {
		devices = []string{}
	}
	return &models.CredentialResponse{
		LicenseJWS: jws,
		License: models.LicenseSummary{
			ID:        lic.ID.Hex(),
			Plan:      lic.Details.Plan,
			Status:    lic.Details.Status,
			ExpiresAt: lic.Details.ExpiresAt,
			Devices:   devices,
		},
		OfflineTTLSec: ttlSec,
	}, nil
}
