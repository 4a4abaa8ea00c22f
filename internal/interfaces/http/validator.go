package http

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"estate_crm/internal/usecases"

	"github.com/gin-gonic/gin"
)

// Input validation constants
const (
	MaxConfigKeyLength = 64
	MaxConfigValLength = 4000
	MaxMessageLength   = 2000
	MaxSearchLength    = 200
	MaxPageSize        = 200
)

var configKeyRegex = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidConfigKey checks if a config key is safe
func ValidConfigKey(s string) bool {
	return s != "" && len(s) <= MaxConfigKeyLength && configKeyRegex.MatchString(s)
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.TrimSpace(s)
}

// TruncateString cuts s to at most maxLen bytes without splitting a rune
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen]
}

// paramID reads a positive integer path parameter
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt reads an optional non-negative integer query parameter
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// queryFloat reads an optional non-negative number query parameter
func queryFloat(c *gin.Context, name string) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// actor returns the authenticated caller
func actor(c *gin.Context) usecases.Actor {
	return usecases.Actor{ID: c.GetInt(ctxUserID), Role: c.GetString(ctxRole)}
}
