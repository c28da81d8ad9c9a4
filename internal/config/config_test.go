package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "API_BASE_URL", "REALTIME_URL", "RECONNECT_ATTEMPTS", "RECONNECT_DELAY", "CHAT_DEDUP", "TOKEN_TTL", "ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, "ws://localhost:8080/ws", cfg.RealtimeURL)
	assert.Equal(t, 5, cfg.ReconnectAttempts)
	assert.Equal(t, time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.DedupMessages)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://learn.example.com/")
	t.Setenv("REALTIME_URL", "")
	t.Setenv("RECONNECT_ATTEMPTS", "3")
	t.Setenv("RECONNECT_DELAY", "250ms")
	t.Setenv("CHAT_DEDUP", "true")
	t.Setenv("ALLOWED_ORIGINS", " https://learn.example.com, ,http://localhost:5173")

	cfg := Load()

	assert.Equal(t, "https://learn.example.com", cfg.APIBaseURL)
	assert.Equal(t, "wss://learn.example.com/ws", cfg.RealtimeURL)
	assert.Equal(t, 3, cfg.ReconnectAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.ReconnectDelay)
	assert.True(t, cfg.DedupMessages)
	assert.Equal(t, []string{"https://learn.example.com", "http://localhost:5173"}, cfg.AllowedOrigins)
}
