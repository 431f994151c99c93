package config

import (
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	addr, err := cfg.Server.Addr()
	require.NoError(t, err)
	assert.Equal(t, ":8080", addr)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionIdleTTL)
	assert.Equal(t, ProviderOpenAI, cfg.AI.TextProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.TextModel)
	assert.True(t, cfg.AI.Enabled())
	assert.Equal(t, "nova", cfg.Speech.Voice)
	assert.Equal(t, "whisper-1", cfg.Speech.STTModel)
	assert.Equal(t, 24*time.Hour, cfg.Media.Retention)
	assert.Nil(t, cfg.AI.Ark.Temperature)
	assert.False(t, cfg.AI.Ark.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("AI_TEXT_PROVIDER", "ark")
	t.Setenv("ARK_MODEL", "ep-123")
	t.Setenv("ARK_API_KEY", "ark-key")
	t.Setenv("ARK_TEMPERATURE", "0.4")
	t.Setenv("SPEECH_TTS_VOICE", "shimmer")
	t.Setenv("MEDIA_RETENTION", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	addr, err := cfg.Server.Addr()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", addr)
	assert.True(t, cfg.AI.Ark.Enabled())
	require.NotNil(t, cfg.AI.Ark.Temperature)
	assert.InDelta(t, 0.4, *cfg.AI.Ark.Temperature, 0.0001)
	assert.Equal(t, "shimmer", cfg.Speech.Voice)
	assert.Equal(t, 2*time.Hour, cfg.Media.Retention)
}

func TestValidateAggregatesErrors(t *testing.T) {
	t.Setenv("PORT", "80 80")
	t.Setenv("AI_TEXT_PROVIDER", "llama")
	t.Setenv("SPEECH_TTS_VOICE", "robot")
	t.Setenv("LOG_LEVEL", "chatty")

	_, err := Load()
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 4)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "AI_TEXT_PROVIDER")
	assert.Contains(t, err.Error(), "SPEECH_TTS_VOICE")
	assert.Contains(t, err.Error(), "log level")
}

func TestServerAddr(t *testing.T) {
	cases := map[string]string{
		"":       ":8080",
		"3000":   ":3000",
		":4000":  ":4000",
		" 5000 ": ":5000",
	}
	for in, want := range cases {
		got, err := ServerConfig{Port: in}.Addr()
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
