package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"estate_crm/internal/entities"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// staticTokens accepts "broker" and "supervisor" as tokens for user 7 and 1,
// plus "pending", "blocked" and "inactive" brokers 8, 9 and 10
type staticTokens struct{}

var staticAccounts = map[int]*entities.User{
	1:  {ID: 1, Role: entities.RoleSupervisor, Status: entities.UserStatusActive},
	7:  {ID: 7, Role: entities.RoleBroker, Status: entities.UserStatusActive},
	8:  {ID: 8, Role: entities.RoleBroker, Status: entities.UserStatusPending},
	9:  {ID: 9, Role: entities.RoleBroker, Status: entities.UserStatusBlocked},
	10: {ID: 10, Role: entities.RoleBroker, Status: entities.UserStatusInactive},
}

func (staticTokens) ParseToken(token string) (int, string, error) {
	switch token {
	case "broker":
		return 7, entities.RoleBroker, nil
	case "supervisor":
		return 1, entities.RoleSupervisor, nil
	case "pending":
		return 8, entities.RoleBroker, nil
	case "blocked":
		return 9, entities.RoleBroker, nil
	case "inactive":
		return 10, entities.RoleBroker, nil
	case "deleted":
		return 99, entities.RoleBroker, nil
	}
	return 0, "", entities.ErrInvalidCredentials
}

func (staticTokens) Profile(_ context.Context, userID int) (*entities.User, error) {
	u, ok := staticAccounts[userID]
	if !ok {
		return nil, entities.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func newTestRouter(m *Middleware, handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestTracing())
	r.Use(m.CORSMiddleware())
	whoami := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt(ctxUserID), "role": c.GetString(ctxRole)})
	}
	r.GET("/me", append(handlers, whoami)...)
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	m := NewMiddleware(staticTokens{}, staticTokens{})
	r := newTestRouter(m, m.AuthRequired())

	w := do(r, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/me", "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/me", "broker")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"role":"broker"}`, w.Body.String())
}

func TestRoleRequired(t *testing.T) {
	m := NewMiddleware(staticTokens{}, staticTokens{})
	r := newTestRouter(m, m.AuthRequired(), m.RoleRequired(entities.RoleSupervisor))

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/me", "broker").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/me", "supervisor").Code)
}

func TestActiveAccount(t *testing.T) {
	m := NewMiddleware(staticTokens{}, staticTokens{})
	r := newTestRouter(m, m.AuthRequired(), m.ActiveAccount())

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/me", "broker").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/me", "supervisor").Code)

	tests := []struct {
		token  string
		status int
		err    error
	}{
		{"pending", http.StatusForbidden, entities.ErrAccountPending},
		{"blocked", http.StatusForbidden, entities.ErrAccountBlocked},
		{"inactive", http.StatusForbidden, entities.ErrAccountInactive},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			w := do(r, http.MethodGet, "/me", tt.token)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.err.Error())
		})
	}

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "deleted").Code)
}

func TestActiveAccountPendingRoutes(t *testing.T) {
	m := NewMiddleware(staticTokens{}, staticTokens{})
	r := newTestRouter(m, m.AuthRequired(), m.ActiveAccount("/me"))
	r.GET("/elsewhere", m.AuthRequired(), m.ActiveAccount("/me"), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/me", "pending").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/elsewhere", "pending").Code)

	// Only pending accounts get the exception
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/me", "blocked").Code)
}

func TestActiveAccountUsesStoredRole(t *testing.T) {
	m := NewMiddleware(staticTokens{}, staticTokens{})
	staticAccounts[7].Role = entities.RoleSupervisor
	t.Cleanup(func() { staticAccounts[7].Role = entities.RoleBroker })
	r := newTestRouter(m, m.AuthRequired(), m.ActiveAccount())

	w := do(r, http.MethodGet, "/me", "broker")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"role":"supervisor"}`, w.Body.String())
}

func TestRateLimitPerUser(t *testing.T) {
	m := NewMiddleware(staticTokens{}, staticTokens{})
	r := newTestRouter(m, m.AuthRequired(), m.RateLimitPerUser(rate.Limit(0.5), 2))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/me", "broker").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/me", "broker").Code)

	w := do(r, http.MethodGet, "/me", "broker")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))

	// Limits are per user
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/me", "supervisor").Code)
}

func TestCleanupLimitersDropsIdleUsers(t *testing.T) {
	m := NewMiddleware(staticTokens{}, staticTokens{})
	m.rateLimiters[3] = &limiterEntry{limiter: rate.NewLimiter(1, 1), lastSeen: time.Now().Add(-time.Hour)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.CleanupLimiters(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.rateLimiters) == 0
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 1, retryAfter(10))
	assert.Equal(t, 4, retryAfter(0.25))
	assert.Equal(t, 1, retryAfter(0))
	assert.Equal(t, 1, retryAfter(rate.Inf))
}

func TestCORSPreflight(t *testing.T) {
	m := NewMiddleware(staticTokens{}, staticTokens{})
	r := newTestRouter(m, m.AuthRequired())
	r.OPTIONS("/me", func(c *gin.Context) {})

	w := do(r, http.MethodOptions, "/me", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestRequestTracingRequestID(t *testing.T) {
	m := NewMiddleware(staticTokens{}, staticTokens{})
	r := newTestRouter(m)

	w := do(r, http.MethodGet, "/me", "")
	_, err := ksuid.Parse(w.Header().Get("X-Request-ID"))
	assert.NoError(t, err)

	id := ksuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-Request-ID", id)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, id, w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-Request-ID", "not-a-ksuid")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-ksuid", w.Header().Get("X-Request-ID"))
}

func TestRecoveryHidesPanic(t *testing.T) {
	r := gin.New()
	r.Use(RequestTracing(), Recovery())
	r.GET("/boom", func(c *gin.Context) { panic(errors.New("db exploded")) })

	w := do(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db exploded")
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
