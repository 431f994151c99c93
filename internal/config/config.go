package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"

	"github.com/mindchain/mindmate/backend/internal/logger"
	"github.com/mindchain/mindmate/backend/internal/model/speech"
)

// Text generation providers.
const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
)

var imageSizes = []string{"256x256", "512x512", "1024x1024", "1792x1024", "1024x1792"}

var speechFormats = []string{"mp3", "opus", "aac", "flac", "wav", "pcm"}

// Config aggregates every setting of the service.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Speech SpeechConfig
	Media  MediaConfig
	Log    LogConfig
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, err := c.Server.Addr(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Server.SessionIdleTTL <= 0 {
		result = multierror.Append(result, errors.New("SESSION_IDLE_TTL must be positive"))
	}
	if !lo.Contains([]string{ProviderOpenAI, ProviderArk}, c.AI.TextProvider) {
		result = multierror.Append(result, fmt.Errorf("unsupported AI_TEXT_PROVIDER %q", c.AI.TextProvider))
	}
	if !lo.Contains(imageSizes, c.AI.ImageSize) {
		result = multierror.Append(result, fmt.Errorf("unsupported AI_IMAGE_SIZE %q", c.AI.ImageSize))
	}
	if c.AI.Timeout <= 0 {
		result = multierror.Append(result, errors.New("AI_TIMEOUT must be positive"))
	}
	if _, err := speech.ParseVoice(c.Speech.Voice); err != nil {
		result = multierror.Append(result, fmt.Errorf("SPEECH_TTS_VOICE: %w", err))
	}
	if !lo.Contains(speechFormats, c.Speech.Format) {
		result = multierror.Append(result, fmt.Errorf("unsupported SPEECH_TTS_FORMAT %q", c.Speech.Format))
	}
	if c.Speech.MaxRecordingBytes <= 0 {
		result = multierror.Append(result, errors.New("SPEECH_MAX_RECORDING_BYTES must be positive"))
	}
	if c.Media.Retention <= 0 {
		result = multierror.Append(result, errors.New("MEDIA_RETENTION must be positive"))
	}
	if strings.TrimSpace(c.Media.SweepSchedule) == "" {
		result = multierror.Append(result, errors.New("MEDIA_SWEEP_SCHEDULE is required"))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// ServerConfig describes the HTTP listener and session lifetime.
type ServerConfig struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
}

// Addr normalizes PORT into a listen address. ":8080" and
// "127.0.0.1:8080" are accepted as is.
func (c ServerConfig) Addr() (string, error) {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", c.Port)
	}
	if strings.Contains(port, ":") {
		return port, nil
	}
	return ":" + port, nil
}

// AIConfig describes the remote generation capabilities.
type AIConfig struct {
	TextProvider string        `env:"AI_TEXT_PROVIDER" envDefault:"openai"`
	APIKey       string        `env:"OPENAI_API_KEY"`
	BaseURL      string        `env:"OPENAI_BASE_URL"`
	TextModel    string        `env:"AI_TEXT_MODEL" envDefault:"gpt-4o-mini"`
	ImageModel   string        `env:"AI_IMAGE_MODEL" envDefault:"dall-e-3"`
	ImageSize    string        `env:"AI_IMAGE_SIZE" envDefault:"1024x1024"`
	HistoryLimit int           `env:"AI_HISTORY_LIMIT" envDefault:"10"`
	Timeout      time.Duration `env:"AI_TIMEOUT" envDefault:"60s"`
	Ark          ArkConfig
}

// Enabled reports whether the OpenAI-compatible endpoint is usable.
func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

// ArkConfig configures the alternative Ark text model.
type ArkConfig struct {
	APIKey      string   `env:"ARK_API_KEY"`
	AccessKey   string   `env:"ARK_ACCESS_KEY"`
	SecretKey   string   `env:"ARK_SECRET_KEY"`
	Model       string   `env:"ARK_MODEL"`
	BaseURL     string   `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region      string   `env:"ARK_REGION" envDefault:"cn-beijing"`
	Temperature *float32 `env:"ARK_TEMPERATURE"`
	TopP        *float32 `env:"ARK_TOP_P"`
	MaxTokens   *int     `env:"ARK_MAX_TOKENS"`
}

// Enabled reports whether the Ark credentials are complete.
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates an Ark chat model from the configuration.
func (c ArkConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, errors.New("ark credentials missing: set ARK_MODEL and ARK_API_KEY or ARK_ACCESS_KEY/ARK_SECRET_KEY")
	}
	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		TopP:        c.TopP,
	})
}

// SpeechConfig describes transcription and synthesis.
type SpeechConfig struct {
	Enabled           bool          `env:"SPEECH_ENABLED" envDefault:"true"`
	STTModel          string        `env:"SPEECH_STT_MODEL" envDefault:"whisper-1"`
	TTSModel          string        `env:"SPEECH_TTS_MODEL" envDefault:"tts-1"`
	Voice             string        `env:"SPEECH_TTS_VOICE" envDefault:"nova"`
	Format            string        `env:"SPEECH_TTS_FORMAT" envDefault:"mp3"`
	Language          string        `env:"SPEECH_LANGUAGE" envDefault:"en"`
	RecordingFormat   string        `env:"SPEECH_RECORDING_FORMAT" envDefault:"webm"`
	MaxRecordingBytes int           `env:"SPEECH_MAX_RECORDING_BYTES" envDefault:"26214400"`
	Timeout           time.Duration `env:"SPEECH_TIMEOUT" envDefault:"30s"`
}

// MediaConfig describes where generated audio is kept and for how long.
// An empty StorePath keeps media in memory.
type MediaConfig struct {
	StorePath     string        `env:"MEDIA_STORE_PATH"`
	Retention     time.Duration `env:"MEDIA_RETENTION" envDefault:"24h"`
	SweepSchedule string        `env:"MEDIA_SWEEP_SCHEDULE" envDefault:"@every 10m"`
}

type LogConfig struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	NoColor bool   `env:"LOG_NO_COLOR"`
}
