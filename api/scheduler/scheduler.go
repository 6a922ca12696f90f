package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/ventasimple/license-api/config"
	"github.com/ventasimple/license-api/databases"
	"github.com/ventasimple/license-api/licensing"
	"github.com/ventasimple/license-api/models"
)

// Scheduler handles the periodic expiry reminder emails. It only ever reads
// license rows and sends mail; license transitions stay request-triggered.
type Scheduler struct {
	cron *cron.Cron
	LDB  databases.LicenseDatabase
	UDB  databases.UserDatabase
	conf *config.Config
}

// NewScheduler creates a new scheduler instance
func NewScheduler(lDB databases.LicenseDatabase, uDB databases.UserDatabase, conf *config.Config) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		LDB:  lDB,
		UDB:  uDB,
		conf: conf,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Send expiry reminders daily at noon UTC
	_, err := s.cron.AddFunc("0 12 * * *", s.sendExpiryReminders)
	if err != nil {
		zap.S().Errorw("failed to register expiry reminder job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("License reminder scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("License reminder scheduler stopped")
}

// sendExpiryReminders mails the owners of active licenses that enter the
// warning window in the next 7 days
func (s *Scheduler) sendExpiryReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now().UTC()
	weekFromNow := now.Add(7 * 24 * time.Hour)

	zap.S().Info("Running license expiry reminder job")

	filter := bson.M{
		"license.status": licensing.StatusActive,
		"license.expiresAt": bson.M{
			"$gt": now,
			"$lt": weekFromNow,
		},
	}

	expiring, err := s.LDB.Find(ctx, filter)
	if err != nil {
		zap.S().Errorw("failed to find expiring licenses", "error", err)
		return
	}

	sent := 0
	for _, lic := range expiring {
		if s.sendReminderEmail(ctx, lic) {
			sent++
		}
	}

	zap.S().Infow("License expiry reminder job complete",
		"expiring", len(expiring),
		"remindersSent", sent,
	)
}

func (s *Scheduler) sendReminderEmail(ctx context.Context, lic models.License) bool {
	email := s.getUserEmail(ctx, lic.Details.UserID)
	if email == "" {
		return false
	}

	daysLeft := licensing.DaysLeft(lic.Details.ExpiresAt, time.Now().UTC())
	subject := "Your Venta Simple license expires soon"
	plainText := fmt.Sprintf("Your %s license expires in %d days. Renew your subscription to keep syncing.", lic.Details.Plan, daysLeft)
	htmlContent := fmt.Sprintf("<p>Your <b>%s</b> license expires in <b>%d</b> days.</p><p>Renew your subscription to keep syncing.</p>", lic.Details.Plan, daysLeft)

	if err := s.sendEmail(email, subject, htmlContent, plainText); err != nil {
		zap.S().Errorw("failed to send expiry reminder email", "error", err, "licenseId", lic.ID.Hex())
		return false
	}

	zap.S().Infow("Sent license expiry reminder email", "licenseId", lic.ID.Hex())
	return true
}

func (s *Scheduler) getUserEmail(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}
	user, err := s.UDB.FindOne(ctx, bson.M{"_id": userID})
	if err != nil {
		zap.S().Errorw("failed to get user for reminder", "error", err, "userId", userID)
		return ""
	}
	return user.Details.Email
}

func (s *Scheduler) sendEmail(toEmail, subject, htmlContent, plainText string) error {
	from := mail.NewEmail("Venta Simple", s.conf.ReminderFrom)
	to := mail.NewEmail(toEmail, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(s.conf.SendgridAPIKey)
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}
	return nil
}
