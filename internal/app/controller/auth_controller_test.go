package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/app/repository"
	"github.com/vintagebeauty/storefront-backend/internal/app/service"
	"github.com/vintagebeauty/storefront-backend/internal/db"
	apperrors "github.com/vintagebeauty/storefront-backend/internal/errors"
	"github.com/vintagebeauty/storefront-backend/internal/middleware"
	"github.com/vintagebeauty/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func setupAuthControllerTest(t *testing.T) (*gin.Engine, service.AuthService) {
	gin.SetMode(gin.TestMode)

	testDB := setupTestDB(t)
	authService := service.NewAuthService(
		repository.NewUserRepository(testDB),
		testJWTSecret,
		15*time.Minute,
		7*24*time.Hour,
	)

	ctrl := NewAuthController(authService)
	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)

	router := gin.New()
	router.POST("/register", ctrl.Register)
	router.POST("/login", ctrl.Login)
	router.POST("/logout", authMiddleware.Authenticate(), ctrl.Logout)
	router.GET("/me", authMiddleware.Authenticate(), ctrl.GetMe)
	router.PUT("/me", authMiddleware.Authenticate(), ctrl.UpdateMe)

	return router, authService
}

func performJSON(router http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}

func tokenFor(t *testing.T, userID uint, role model.UserRole) string {
	t.Helper()
	tokens, err := util.GenerateTokenPair(userID, "someone@example.com", string(role), testJWTSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	return tokens.AccessToken
}

func TestAuthController_Register(t *testing.T) {
	router, authService := setupAuthControllerTest(t)

	_, _, err := authService.Register(context.Background(), service.RegisterInput{
		Email:    "taken@example.com",
		Password: "password123",
		Name:     "First",
	})
	require.NoError(t, err)

	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "Success",
			body: service.RegisterInput{
				Email:    "new@example.com",
				Password: "password123",
				Name:     "Test User",
				Phone:    "+91 98765 43210",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Invalid email",
			body: service.RegisterInput{
				Email:    "invalid-email",
				Password: "password123",
				Name:     "Test User",
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apperrors.ValidationInvalidInput,
		},
		{
			name: "Duplicate email",
			body: service.RegisterInput{
				Email:    "TAKEN@example.com",
				Password: "password456",
				Name:     "Another User",
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   apperrors.AuthEmailAlreadyExists,
		},
		{
			name:           "Malformed JSON",
			body:           `{"email":`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apperrors.ValidationInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(router, http.MethodPost, "/register", tt.body, "")

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			response := decodeBody(t, w)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, response["error"])
				return
			}
			assert.NotNil(t, response["tokens"])
			user := response["user"].(map[string]interface{})
			assert.Equal(t, "new@example.com", user["email"])
			assert.Equal(t, "user", user["role"])
			assert.NotContains(t, user, "password_hash")
		})
	}
}

func TestAuthController_Register_ReportsFields(t *testing.T) {
	router, _ := setupAuthControllerTest(t)

	w := performJSON(router, http.MethodPost, "/register", service.RegisterInput{
		Email:    "short@example.com",
		Password: "short",
	}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	fields := decodeBody(t, w)["fields"].(map[string]interface{})
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "name")
}

func TestAuthController_Login(t *testing.T) {
	router, authService := setupAuthControllerTest(t)

	_, _, err := authService.Register(context.Background(), service.RegisterInput{
		Email:    "test@example.com",
		Password: "password123",
		Name:     "Test User",
	})
	require.NoError(t, err)

	tests := []struct {
		name           string
		body           LoginRequest
		expectedStatus int
	}{
		{
			name:           "Success",
			body:           LoginRequest{Email: "test@example.com", Password: "password123"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Wrong password",
			body:           LoginRequest{Email: "test@example.com", Password: "wrongpassword"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Unknown email",
			body:           LoginRequest{Email: "nobody@example.com", Password: "password123"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Missing password",
			body:           LoginRequest{Email: "test@example.com"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(router, http.MethodPost, "/login", tt.body, "")
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			if tt.expectedStatus == http.StatusUnauthorized {
				assert.Equal(t, apperrors.AuthInvalidCredentials, decodeBody(t, w)["error"])
			}
		})
	}
}

func TestAuthController_MeAndLogout(t *testing.T) {
	router, authService := setupAuthControllerTest(t)

	_, tokens, err := authService.Register(context.Background(), service.RegisterInput{
		Email:    "test@example.com",
		Password: "password123",
		Name:     "Test User",
	})
	require.NoError(t, err)

	w := performJSON(router, http.MethodGet, "/me", nil, tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	user := decodeBody(t, w)["user"].(map[string]interface{})
	assert.Equal(t, "Test User", user["name"])

	w = performJSON(router, http.MethodPut, "/me", UpdateProfileRequest{Phone: "+91 90000 00000"}, tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	user = decodeBody(t, w)["user"].(map[string]interface{})
	assert.Equal(t, "Test User", user["name"])
	assert.Equal(t, "+91 90000 00000", user["phone"])

	w = performJSON(router, http.MethodPost, "/logout", nil, tokens.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performJSON(router, http.MethodGet, "/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthController_Me_DeletedUser(t *testing.T) {
	router, _ := setupAuthControllerTest(t)

	w := performJSON(router, http.MethodGet, "/me", nil, tokenFor(t, 999, model.RoleUser))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
