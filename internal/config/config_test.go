package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHAT_PAGE_SIZE", "")
	t.Setenv("CHAT_TYPING_IDLE_MS", "")
	t.Setenv("STORAGE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Chat.PageSize)
	assert.Equal(t, int64(5*1024*1024), cfg.Chat.MaxImageBytes)
	assert.Equal(t, 1500*time.Millisecond, cfg.Chat.TypingIdle())
	assert.Equal(t, time.Second, cfg.Chat.TypingDebounce())
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, "chat-images", cfg.Storage.Bucket)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REALTIME_PORT", "9091")
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("CHAT_PAGE_SIZE", "50")
	t.Setenv("REDIS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, "0.0.0.0:9091", cfg.Realtime.Addr())
	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.Equal(t, 50, cfg.Chat.PageSize)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "primary")

	_, err := Load()
	require.Error(t, err)
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("CHAT_TYPING_DEBOUNCE_MS", "soon")
	assert.Equal(t, 1000, getEnvAsInt("CHAT_TYPING_DEBOUNCE_MS", 1000))

	t.Setenv("OPENAI_TEMPERATURE", "warm")
	assert.InDelta(t, 0.7, getEnvAsFloat("OPENAI_TEMPERATURE", 0.7), 1e-9)

	t.Setenv("POSTGRES_RUN_MIGRATIONS", "maybe")
	assert.True(t, getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true))
}

func TestLLMConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.LLM.Enabled())
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 20*time.Second, cfg.LLM.Timeout())

	t.Setenv("OPENAI_API_KEY", " sk-test ")
	t.Setenv("OPENAI_TEMPERATURE", "0.2")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.LLM.Enabled())
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-6)
}
