package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/calendar-ai-api/internal/models"
	"github.com/noah-isme/calendar-ai-api/internal/repository"
	"github.com/noah-isme/calendar-ai-api/internal/service"
)

func newAuthServiceForTest(t *testing.T) *service.AuthService {
	t.Helper()
	repo, err := repository.NewFileUserRepository(t.TempDir())
	require.NoError(t, err)
	return service.NewAuthService(repo, nil, nil, service.AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "calendar-ai-api",
	})
}

func newProtectedRouter(authSvc *service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWT(authSvc))
	r.GET("/protected", func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	return r
}

func TestJWTAcceptsValidToken(t *testing.T) {
	authSvc := newAuthServiceForTest(t)
	res, err := authSvc.Register(context.Background(), models.RegisterRequest{
		Name:     "Alex",
		Email:    "alex@example.com",
		Password: "sup3rsecret",
	})
	require.NoError(t, err)

	r := newProtectedRouter(authSvc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+res.AccessToken)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), res.User.ID)
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	r := newProtectedRouter(newAuthServiceForTest(t))

	cases := map[string]string{
		"missing":    "",
		"not bearer": "Basic abc123",
		"garbage":    "Bearer not.a.token",
		"no token":   "Bearer",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
