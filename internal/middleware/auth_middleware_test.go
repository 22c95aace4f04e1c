package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetlink/charter-booking-backend/internal/models"
	"github.com/jetlink/charter-booking-backend/pkg/jwt"
)

func setupRouter(jwtService *jwt.Service, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handlers := append([]gin.HandlerFunc{AuthMiddleware(jwtService)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		userCtx, _ := GetUserContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userCtx.UserID})
	})

	router.GET("/protected", handlers...)
	return router
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := jwt.NewService("test-secret")
	userID := uuid.New()

	t.Run("Valid Token", func(t *testing.T) {
		token, err := jwtService.GenerateToken(userID, "Ada", []string{RoleCustomer}, "premium", time.Hour)
		require.NoError(t, err)

		router := setupRouter(jwtService)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Missing Header", func(t *testing.T) {
		router := setupRouter(jwtService)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "MISSING_AUTH_HEADER")
	})

	t.Run("Bad Format", func(t *testing.T) {
		router := setupRouter(jwtService)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
	})

	t.Run("Expired Token", func(t *testing.T) {
		token, err := jwtService.GenerateToken(userID, "Ada", []string{RoleCustomer}, "", -time.Minute)
		require.NoError(t, err)

		router := setupRouter(jwtService)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
	})

	t.Run("Tier Claim In Context", func(t *testing.T) {
		token, err := jwtService.GenerateToken(userID, "Ada", []string{RoleCustomer}, "standard", time.Hour)
		require.NoError(t, err)

		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.GET("/tier", AuthMiddleware(jwtService), func(c *gin.Context) {
			userCtx, ok := GetUserContext(c)
			require.True(t, ok)
			assert.Equal(t, models.TierStandard, userCtx.MembershipTier)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tier", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	jwtService := jwt.NewService("test-secret")

	t.Run("Role Present", func(t *testing.T) {
		token, err := jwtService.GenerateToken(uuid.New(), "Op", []string{RoleOperator}, "", time.Hour)
		require.NoError(t, err)

		router := setupRouter(jwtService, RequireRole(RoleOperator))
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Role Missing", func(t *testing.T) {
		token, err := jwtService.GenerateToken(uuid.New(), "Ada", []string{RoleCustomer}, "", time.Hour)
		require.NoError(t, err)

		router := setupRouter(jwtService, RequireRole(RoleOperator))
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "INSUFFICIENT_PERMISSIONS")
	})

	t.Run("Admin Passes Any Of", func(t *testing.T) {
		token, err := jwtService.GenerateToken(uuid.New(), "Root", []string{RoleAdmin}, "", time.Hour)
		require.NoError(t, err)

		router := setupRouter(jwtService, RequireRole(RoleOperator, RoleAdmin))
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
