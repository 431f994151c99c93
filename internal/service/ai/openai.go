package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/mindchain/mindmate/backend/internal/config"
	"github.com/mindchain/mindmate/backend/internal/metrics"
)

// OpenAIClient talks to an OpenAI compatible endpoint for text, images,
// speech synthesis and transcription.
type OpenAIClient struct {
	client     *openai.Client
	textModel  string
	imageModel string
	imageSize  string
	sttModel   string
	ttsModel   string
	metrics    *metrics.Metrics
}

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(aiCfg config.AIConfig, speechCfg config.SpeechConfig, m *metrics.Metrics) (*OpenAIClient, error) {
	if !aiCfg.Enabled() {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}

	cfg := openai.DefaultConfig(aiCfg.APIKey)
	if aiCfg.BaseURL != "" {
		cfg.BaseURL = aiCfg.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: aiCfg.Timeout}

	return &OpenAIClient{
		client:     openai.NewClientWithConfig(cfg),
		textModel:  aiCfg.TextModel,
		imageModel: aiCfg.ImageModel,
		imageSize:  aiCfg.ImageSize,
		sttModel:   speechCfg.STTModel,
		ttsModel:   speechCfg.TTSModel,
		metrics:    m,
	}, nil
}

func (c *OpenAIClient) GenerateText(ctx context.Context, req TextRequest) (reply string, err error) {
	defer c.observe(metrics.CapabilityText, time.Now(), &err)

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.History {
		if role, ok := historyRole(m); ok && m.Content != "" {
			messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
		}
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.textModel,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	reply = strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrEmptyResponse
	}
	slog.DebugContext(ctx, "[ai] generated text", "model", c.textModel, "length", len(reply), "tokens", resp.Usage.TotalTokens)
	return reply, nil
}

func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string) (url string, err error) {
	defer c.observe(metrics.CapabilityImage, time.Now(), &err)

	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.imageModel,
		N:              1,
		Size:           c.imageSize,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", ErrEmptyResponse
	}
	return resp.Data[0].URL, nil
}

// SynthesizeSpeech returns encoded audio of text spoken with voice.
func (c *OpenAIClient) SynthesizeSpeech(ctx context.Context, text, voice, format string) (audio []byte, err error) {
	defer c.observe(metrics.CapabilitySpeech, time.Now(), &err)

	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.ttsModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormat(format),
	})
	if err != nil {
		return nil, fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	audio, err = io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyResponse
	}
	return audio, nil
}

// TranscribeAudio recognizes speech in audio encoded as format.
func (c *OpenAIClient) TranscribeAudio(ctx context.Context, audio []byte, format, language string) (text string, err error) {
	defer c.observe(metrics.CapabilityTranscription, time.Now(), &err)

	if format == "" {
		format = "webm"
	}
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.sttModel,
		FilePath: "recording." + format,
		Reader:   bytes.NewReader(audio),
		Language: language,
	})
	if err != nil {
		return "", fmt.Errorf("create transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (c *OpenAIClient) observe(capability string, started time.Time, err *error) {
	c.metrics.ObserveRemoteCall(capability, started, *err)
}
