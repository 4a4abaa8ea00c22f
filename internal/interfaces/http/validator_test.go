package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestValidConfigKey(t *testing.T) {
	assert.True(t, ValidConfigKey("welcome_message"))
	assert.True(t, ValidConfigKey("welcome_message_ar"))
	assert.False(t, ValidConfigKey(""))
	assert.False(t, ValidConfigKey("Welcome"))
	assert.False(t, ValidConfigKey("key; DROP TABLE"))
	assert.False(t, ValidConfigKey(strings.Repeat("a", MaxConfigKeyLength+1)))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hel\x00lo \n"))
	assert.Equal(t, "ab", SanitizeString("a\xffb"))
	assert.Equal(t, "مرحبا", SanitizeString(" مرحبا "))
}

func TestTruncateStringKeepsRunes(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 10))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))

	// Each Arabic letter is two bytes
	got := TruncateString("مرحبا", 5)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "مر", got)
}

func TestParamsAndQueries(t *testing.T) {
	r := gin.New()
	r.GET("/items/:id", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		limit, limitOK := queryInt(c, "limit")
		min, minOK := queryFloat(c, "min")
		c.JSON(http.StatusOK, gin.H{"id": id, "ok": ok, "limit": limit, "limit_ok": limitOK, "min": min, "min_ok": minOK})
	})

	tests := []struct {
		path string
		want string
	}{
		{"/items/4?limit=20&min=1.5", `{"id":4,"ok":true,"limit":20,"limit_ok":true,"min":1.5,"min_ok":true}`},
		{"/items/0", `{"id":0,"ok":false,"limit":0,"limit_ok":true,"min":0,"min_ok":true}`},
		{"/items/x?limit=-1&min=abc", `{"id":0,"ok":false,"limit":0,"limit_ok":false,"min":0,"min_ok":false}`},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.JSONEq(t, tt.want, w.Body.String(), tt.path)
	}
}
