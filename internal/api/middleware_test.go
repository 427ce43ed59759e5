package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hybridx/training-app/internal/domain"
	"hybridx/training-app/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testJWTSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func mintToken(t *testing.T, userID primitive.ObjectID, role domain.Role, expiresIn time.Duration) string {
	t.Helper()
	claims := jwtClaims{
		UserID: userID.Hex(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func protectedRouter(extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(testJWTSecret)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/protected", handlers...)
	return router
}

func doGet(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	router := protectedRouter()
	userID := primitive.NewObjectID()

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, doGet(router, "").Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, doGet(router, "Token abc").Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token := mintToken(t, userID, domain.RoleAthlete, -time.Minute)
		w := doGet(router, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "expired")
	})

	t.Run("valid token", func(t *testing.T) {
		token := mintToken(t, userID, domain.RoleAthlete, time.Hour)
		assert.Equal(t, http.StatusOK, doGet(router, "Bearer "+token).Code)
	})
}

func TestRoleMiddleware(t *testing.T) {
	router := protectedRouter(RoleMiddleware(domain.RoleAdmin))

	athlete := mintToken(t, primitive.NewObjectID(), domain.RoleAthlete, time.Hour)
	assert.Equal(t, http.StatusForbidden, doGet(router, "Bearer "+athlete).Code)

	admin := mintToken(t, primitive.NewObjectID(), domain.RoleAdmin, time.Hour)
	assert.Equal(t, http.StatusOK, doGet(router, "Bearer "+admin).Code)
}

// statusOnlySubscriptionService serves a fixed status; the middleware only
// ever calls Status.
type statusOnlySubscriptionService struct {
	service.SubscriptionService

	status domain.SubscriptionStatus
	err    error
}

func (s *statusOnlySubscriptionService) Status(_ context.Context, _ primitive.ObjectID) (*service.SubscriptionState, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.SubscriptionState{Status: s.status}, nil
}

func TestSubscriptionMiddleware(t *testing.T) {
	token := mintToken(t, primitive.NewObjectID(), domain.RoleAthlete, time.Hour)

	tests := []struct {
		name     string
		status   domain.SubscriptionStatus
		err      error
		wantCode int
	}{
		{name: "active passes", status: domain.SubscriptionActive, wantCode: http.StatusOK},
		{name: "trial passes", status: domain.SubscriptionTrial, wantCode: http.StatusOK},
		{name: "expired blocked", status: domain.SubscriptionExpired, wantCode: http.StatusPaymentRequired},
		{name: "paused blocked", status: domain.SubscriptionPaused, wantCode: http.StatusPaymentRequired},
		{name: "canceled blocked", status: domain.SubscriptionCanceled, wantCode: http.StatusPaymentRequired},
		{name: "deleted user", err: service.ErrUserNotFound, wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs := &statusOnlySubscriptionService{status: tt.status, err: tt.err}
			router := protectedRouter(SubscriptionMiddleware(subs))
			assert.Equal(t, tt.wantCode, doGet(router, "Bearer "+token).Code)
		})
	}
}
