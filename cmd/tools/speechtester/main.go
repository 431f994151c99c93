// Command speechtester exercises the remote capabilities one call at a time.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/mindchain/mindmate/backend/internal/analysis/emotion"
	"github.com/mindchain/mindmate/backend/internal/config"
	"github.com/mindchain/mindmate/backend/internal/logger"
	"github.com/mindchain/mindmate/backend/internal/model/persona"
	"github.com/mindchain/mindmate/backend/internal/service/ai"
	"github.com/mindchain/mindmate/backend/internal/service/speech"
)

func main() {
	slog.SetDefault(logger.New(os.Stderr, nil))

	if err := godotenv.Load(); err != nil {
		slog.Warn("could not load .env, using system environment", logger.Err(err))
	}

	mode := flag.String("mode", "", "one of: text, image, tts, asr")
	audioPath := flag.String("audio", "", "asr: input audio file")
	text := flag.String("text", "", "text, image, tts: input text")
	outputPath := flag.String("out", "", "tts: output file (default derived from the format)")
	format := flag.String("format", "", "asr: input format, defaults to the file extension")
	voice := flag.String("voice", "", "tts: voice or alias, defaults to SPEECH_TTS_VOICE")
	personaID := flag.String("persona", persona.DefaultID, "text: companion persona")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal("load configuration", err)
	}

	client, err := ai.NewOpenAIClient(cfg.AI, cfg.Speech, nil)
	if err != nil {
		fatal("init openai client", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "text":
		err = runText(ctx, client, *personaID, *text)
	case "image":
		err = runImage(ctx, client, *text)
	case "tts":
		err = runTTS(ctx, newSpeech(client, cfg), *text, *voice, cfg.Speech.Format, *outputPath)
	case "asr":
		err = runASR(ctx, newSpeech(client, cfg), *audioPath, *format)
	default:
		flag.Usage()
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		fatal(*mode, err)
	}
}

func fatal(what string, err error) {
	color.Red("%s failed: %v", what, err)
	os.Exit(1)
}

func newSpeech(client *ai.OpenAIClient, cfg *config.Config) *speech.Service {
	return speech.NewService(client, client, speech.Config{
		Voice:    speech.NormalizeVoiceAlias(cfg.Speech.Voice, ""),
		Format:   cfg.Speech.Format,
		Language: cfg.Speech.Language,
		Timeout:  cfg.Speech.Timeout,
	})
}

func runText(ctx context.Context, gen ai.TextGenerator, personaID, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("-text is required")
	}
	p, ok := persona.NewMemoryStore(persona.Seed()).FindByID(personaID)
	if !ok {
		return fmt.Errorf("unknown persona %q", personaID)
	}

	mood := emotion.Analyze(prompt)
	reply, err := gen.GenerateText(ctx, ai.TextRequest{
		System: ai.NewPersonaPromptManager().BuildSystemPrompt(p, mood),
		Prompt: prompt,
	})
	if err != nil {
		return err
	}
	color.Cyan("mood: %s (%d)", mood.Emotion, mood.Score)
	color.Green("%s: %s", p.Name, reply)
	return nil
}

func runImage(ctx context.Context, gen ai.ImageGenerator, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("-text is required")
	}
	url, err := gen.GenerateImage(ctx, ai.ImagePrompt(prompt))
	if err != nil {
		return err
	}
	color.Green("image: %s", url)
	return nil
}

func runTTS(ctx context.Context, svc *speech.Service, text, voice, format, outputPath string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("-text is required")
	}
	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), format)
	}

	started := time.Now()
	audio, err := svc.Synthesize(ctx, text, svc.ResolveVoice(voice))
	if err != nil {
		return err
	}
	data, err := audio.Decode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}

	color.Green("wrote %d bytes to %s in %s", len(data), outputPath, time.Since(started).Round(time.Millisecond))
	return nil
}

func runASR(ctx context.Context, svc *speech.Service, audioPath, format string) error {
	if audioPath == "" {
		return fmt.Errorf("-audio is required")
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", audioPath, err)
	}
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")
	}

	started := time.Now()
	transcript, err := svc.Transcribe(ctx, data, format)
	if err != nil {
		return err
	}
	color.Green("transcript (%s): %s", time.Since(started).Round(time.Millisecond), transcript)
	return nil
}
