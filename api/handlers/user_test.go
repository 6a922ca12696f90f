package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/ventasimple/license-api/api/handlers"
	"github.com/ventasimple/license-api/databases/mocks"
	"github.com/ventasimple/license-api/models"
)

func TestUserCreateHandler(t *testing.T) {
	db := &mocks.UserDatabase{}

	db.On("Find", mock.Anything, bson.M{"user.email": "new@example.com"}).Return(nil, nil)
	db.On("InsertOne", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		if u.Details.Email != "new@example.com" || u.Details.Role != "client" {
			return false
		}
		// the password must be stored hashed, never verbatim
		return bcrypt.CompareHashAndPassword([]byte(u.Details.Password), []byte("hunter22")) == nil
	})).Return(nil, nil)

	u := handlers.User{DB: db}
	body := `{"email":"New@Example.com ","password":"hunter22"}`
	req := httptest.NewRequest("POST", "/api/v1/user/create-user", strings.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(u.UserCreateHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "new@example.com", resp["email"])
	assert.Equal(t, "client", resp["role"])
	assert.NotEmpty(t, resp["id"])
}

func TestUserCreateHandlerMissingFields(t *testing.T) {
	u := handlers.User{DB: &mocks.UserDatabase{}}
	req := httptest.NewRequest("POST", "/api/v1/user/create-user", strings.NewReader(`{"email":"a@b.com"}`))
	rr := httptest.NewRecorder()

	http.HandlerFunc(u.UserCreateHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUserCreateHandlerDuplicateEmail(t *testing.T) {
	db := &mocks.UserDatabase{}

	db.On("Find", mock.Anything, bson.M{"user.email": "taken@example.com"}).Return([]models.User{
		{ID: "existing", Details: models.UserDetails{Email: "taken@example.com"}},
	}, nil)

	u := handlers.User{DB: db}
	body := `{"email":"taken@example.com","password":"hunter22"}`
	req := httptest.NewRequest("POST", "/api/v1/user/create-user", strings.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(u.UserCreateHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	db.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}
