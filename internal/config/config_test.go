package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cfg, err := Load("/nonexistent/.env")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 1024, cfg.EmbeddingDimension)
	assert.Equal(t, 75.0, cfg.InterviewPassScore)
	assert.False(t, cfg.WhatsAppEnabled)
	assert.Error(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("INTERVIEW_PASS_SCORE", "80")
	t.Setenv("WHATSAPP_ENABLED", "true")
	t.Setenv("EMBEDDING_WORKERS", "not-a-number")

	cfg, err := Load("/nonexistent/.env")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 80.0, cfg.InterviewPassScore)
	assert.True(t, cfg.WhatsAppEnabled)
	assert.Equal(t, 3, cfg.EmbeddingWorkers)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsWrongDimension(t *testing.T) {
	cfg := &Config{JWTSecret: "0123456789abcdef", DatabaseURL: "postgres://x", EmbeddingDimension: 1536, InterviewPassScore: 75}
	assert.ErrorContains(t, cfg.Validate(), "EMBEDDING_DIMENSION")
}
