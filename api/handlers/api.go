package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ventasimple/license-api/api"
	"github.com/ventasimple/license-api/api/scheduler"
	"github.com/ventasimple/license-api/billing"
	"github.com/ventasimple/license-api/config"
	"github.com/ventasimple/license-api/databases"
	"github.com/ventasimple/license-api/licensing"
	"github.com/ventasimple/license-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router   *mux.Router
	Config   config.Config
	dbHelper databases.DatabaseHelper
	service  *licensing.Service
	billing  billing.Client
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	u := User{DB: databases.NewUserDatabase(a.dbHelper)}
	l := License{Service: a.service}
	sub := Subscription{Service: a.service, Billing: a.billing, UDB: databases.NewUserDatabase(a.dbHelper), Config: a.Config}
	cred := Credential{Service: a.service}
	wh := Webhook{Service: a.service, Billing: a.billing}
	stats := Stats{DB: databases.NewSaleDatabase(a.dbHelper)}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/user/create-user", http.HandlerFunc(u.UserCreateHandler)).Methods("POST")

	apiCreate.Handle("/license", api.Middleware(http.HandlerFunc(l.LicenseHandler))).Methods("GET")
	apiCreate.Handle("/license/refresh", api.Middleware(http.HandlerFunc(l.LicenseRefreshHandler))).Methods("GET")
	apiCreate.Handle("/license/devices/attach", api.Middleware(http.HandlerFunc(l.AttachDeviceHandler))).Methods("POST")
	apiCreate.Handle("/license/devices/detach", api.Middleware(http.HandlerFunc(l.DetachDeviceHandler))).Methods("POST")

	apiCreate.Handle("/subscribe", api.Middleware(http.HandlerFunc(sub.SubscribeHandler))).Methods("POST")
	apiCreate.Handle("/subscription/cancel", api.Middleware(http.HandlerFunc(sub.CancelSubscriptionHandler))).Methods("POST")
	apiCreate.Handle("/subscription/pause", api.Middleware(http.HandlerFunc(sub.PauseSubscriptionHandler))).Methods("POST")
	apiCreate.Handle("/subscription/resume", api.Middleware(http.HandlerFunc(sub.ResumeSubscriptionHandler))).Methods("POST")
	apiCreate.Handle("/subscription/change-method", api.Middleware(http.HandlerFunc(sub.ChangeMethodHandler))).Methods("POST")

	apiCreate.Handle("/stats/sales-series", api.Middleware(http.HandlerFunc(stats.SalesSeriesHandler))).Methods("GET")

	// public surface for the desktop client and the billing provider
	r.HandleFunc("/public/license/validate", cred.ValidateLicenseHandler).Methods("POST")
	r.HandleFunc("/public/license/refresh", cred.RefreshLicenseHandler).Methods("POST")
	r.HandleFunc("/webhook", wh.WebhookHandler).Methods("POST")
	r.HandleFunc("/return", sub.ReturnHandler).Methods("GET")
	r.HandleFunc("/license/status", l.LicenseStatusHandler).Methods("GET")
	r.HandleFunc("/.well-known/venta-simple-license-pubkey", cred.PublicKeyHandler).Methods("GET")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	// fail fast on missing keys/secrets, never serve unsigned credentials
	if err := a.Config.Validate(); err != nil {
		zap.S().With(err).Error("invalid configuration")
		return err
	}

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("license-api has connected to the database")

	licenseDB := databases.NewLicenseDatabase(a.dbHelper)
	ctx, cancel := api.WithQueryTimeout(nil)
	defer cancel()
	if err = licenseDB.EnsureIndexes(ctx); err != nil {
		zap.S().With(err).Error("failed to create license indexes")
		return err
	}

	signer, err := licensing.NewSigner(&a.Config)
	if err != nil {
		zap.S().With(err).Error("failed to load license signing keys")
		return err
	}

	a.billing = billing.New(&a.Config)
	a.service = licensing.NewService(licenseDB, a.billing, signer, a.Config.OfflineTTL)

	// expiry reminder emails; never mutates license rows
	if a.Config.SendgridAPIKey != "" {
		s := scheduler.NewScheduler(licenseDB, databases.NewUserDatabase(a.dbHelper), &a.Config)
		s.Start()
	} else {
		zap.S().Info("SENDGRID_API_KEY not set, expiry reminders disabled")
	}

	// initialize api router
	a.initializeRoutes()
	return nil

}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
