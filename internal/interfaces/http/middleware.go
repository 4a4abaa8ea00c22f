package http

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"estate_crm/internal/entities"
	"estate_crm/internal/infrastructure"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Context keys set by AuthRequired and RequestTracing
const (
	ctxUserID    = "user_id"
	ctxRole      = "role"
	ctxRequestID = "request_id"
)

// TokenParser validates a bearer token
type TokenParser interface {
	ParseToken(token string) (int, string, error)
}

// AccountLookup loads the stored account behind a token
type AccountLookup interface {
	Profile(ctx context.Context, userID int) (*entities.User, error)
}

type Middleware struct {
	tokens       TokenParser
	accounts     AccountLookup
	rateLimiters map[int]*limiterEntry
	mu           sync.Mutex
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMiddleware(tokens TokenParser, accounts AccountLookup) *Middleware {
	return &Middleware{
		tokens:       tokens,
		accounts:     accounts,
		rateLimiters: make(map[int]*limiterEntry),
	}
}

func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, role, err := m.tokens.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxRole, role)
		trace.SpanFromContext(c.Request.Context()).SetAttributes(
			attribute.Int("user.id", userID),
			attribute.String("user.role", role),
		)
		c.Next()
	}
}

// ActiveAccount lets through only callers whose stored account is active, so a
// block or deactivation applies to tokens already issued. Pending brokers may
// still reach the given route patterns. The stored role replaces the token's.
// Must follow AuthRequired.
func (m *Middleware) ActiveAccount(pendingRoutes ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(pendingRoutes))
	for _, route := range pendingRoutes {
		allowed[route] = true
	}
	return func(c *gin.Context) {
		user, err := m.accounts.Profile(c.Request.Context(), c.GetInt(ctxUserID))
		if errors.Is(err, entities.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account not found"})
			return
		}
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}

		if err := user.AccessError(); err != nil {
			if !errors.Is(err, entities.ErrAccountPending) || !allowed[c.FullPath()] {
				c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
				return
			}
		}

		c.Set(ctxRole, user.Role)
		c.Next()
	}
}

// RoleRequired allows only the given roles (must follow AuthRequired)
func (m *Middleware) RoleRequired(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

// RateLimitPerUser limits requests per authenticated user (must follow AuthRequired)
func (m *Middleware) RateLimitPerUser(r rate.Limit, b int) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt(ctxUserID)
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User identity not found for rate limiting"})
			return
		}

		m.mu.Lock()
		entry, exists := m.rateLimiters[userID]
		if !exists {
			entry = &limiterEntry{limiter: rate.NewLimiter(r, b)}
			m.rateLimiters[userID] = entry
		}
		entry.lastSeen = time.Now()
		m.mu.Unlock()

		if !entry.limiter.Allow() {
			c.Header("Retry-After", strconv.Itoa(retryAfter(r)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		c.Next()
	}
}

// retryAfter is the whole seconds until a limiter of rate r frees a token
func retryAfter(r rate.Limit) int {
	if r <= 0 || r == rate.Inf {
		return 1
	}
	return int(math.Ceil(1 / float64(r)))
}

// CleanupLimiters drops limiters of users idle longer than ttl until ctx ends
func (m *Middleware) CleanupLimiters(ctx context.Context, ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-ttl)
			m.mu.Lock()
			for id, entry := range m.rateLimiters {
				if entry.lastSeen.Before(cutoff) {
					delete(m.rateLimiters, id)
				}
			}
			m.mu.Unlock()
		}
	}
}

// CORSMiddleware allows Cross-Origin requests
func (m *Middleware) CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SecurityHeaders adds security headers to prevent common attacks
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Writer.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self'")
		c.Next()
	}
}

// RequestSizeLimiter limits request body size
func RequestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// RequestTracing opens a server span per request, tags it with a ksuid request
// id echoed in X-Request-ID, and logs the outcome
func RequestTracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if _, err := ksuid.Parse(requestID); err != nil {
			requestID = ksuid.New().String()
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		ctx, span := infrastructure.StartSpan(c.Request.Context(), fmt.Sprintf("%s %s", c.Request.Method, route),
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.String("http.user_agent", c.Request.UserAgent()),
			attribute.String("request.id", requestID),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Set(ctxRequestID, requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.Int64("http.response_time_ms", latency.Milliseconds()),
		)
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		event := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Int("user_id", c.GetInt(ctxUserID)).
			Msg("request")
	}
}

// Recovery turns a handler panic into a 500 and records it on the span
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err := fmt.Errorf("panic: %v", recovered)
		infrastructure.SpanError(c.Request.Context(), err)
		log.Error().Err(err).Str("request_id", c.GetString(ctxRequestID)).Msg("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}
