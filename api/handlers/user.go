package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ventasimple/license-api/api"
	"github.com/ventasimple/license-api/config"
	"github.com/ventasimple/license-api/databases"
	"github.com/ventasimple/license-api/models"
)

// User exported for testing purposes
type User struct {
	DB databases.UserDatabase
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserCreateHandler registers a new dashboard user
func (u User) UserCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		config.ErrorStatus("email and password are required", http.StatusBadRequest, w, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := u.DB.Find(ctx, bson.M{"user.email": email})
	if err == nil && len(existing) > 0 {
		config.ErrorStatus("email already registered", http.StatusConflict, w, nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := time.Now().UTC()
	newUser := models.User{
		ID: primitive.NewObjectID().Hex(),
		Details: models.UserDetails{
			Email:     email,
			Password:  string(hash),
			Role:      "client",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	if _, err := u.DB.InsertOne(ctx, newUser); err != nil {
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("new user registered", "id", newUser.ID, "email", email)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"id":    newUser.ID,
		"email": email,
		"role":  newUser.Details.Role,
	})
}
