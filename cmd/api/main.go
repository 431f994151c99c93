package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mindchain/mindmate/backend/internal/config"
	"github.com/mindchain/mindmate/backend/internal/handler"
	"github.com/mindchain/mindmate/backend/internal/janitor"
	"github.com/mindchain/mindmate/backend/internal/logger"
	"github.com/mindchain/mindmate/backend/internal/metrics"
	"github.com/mindchain/mindmate/backend/internal/model/persona"
	speechModel "github.com/mindchain/mindmate/backend/internal/model/speech"
	"github.com/mindchain/mindmate/backend/internal/service/ai"
	"github.com/mindchain/mindmate/backend/internal/service/chat"
	"github.com/mindchain/mindmate/backend/internal/service/speech"
	"github.com/mindchain/mindmate/backend/internal/store/media"
	"github.com/mindchain/mindmate/backend/pkg/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, continuing with system environment variables only", logger.Err(err))
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", logger.Err(err))
		os.Exit(1)
	}

	level, _ := logger.ParseLevel(cfg.Log.Level)
	slog.SetDefault(logger.New(os.Stdout, &logger.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		AddSource:  true,
		NoColor:    cfg.Log.NoColor,
	}))

	if err := run(ctx, cfg); err != nil {
		slog.Error("mindmate stopped with error", logger.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.New()
	personaStore := persona.NewMemoryStore(persona.Seed())
	prompts := ai.NewPersonaPromptManager()

	var (
		text   ai.TextGenerator
		images ai.ImageGenerator
	)
	var openaiClient *ai.OpenAIClient
	if cfg.AI.Enabled() {
		client, err := ai.NewOpenAIClient(cfg.AI, cfg.Speech, m)
		if err != nil {
			return fmt.Errorf("init openai client: %w", err)
		}
		openaiClient = client
		text, images = client, client
		slog.Info("OpenAI client initialized", "textModel", cfg.AI.TextModel, "imageModel", cfg.AI.ImageModel)
	} else {
		slog.Warn("OPENAI_API_KEY not set, skipping text, image and speech capabilities")
	}

	if cfg.AI.TextProvider == config.ProviderArk {
		arkClient, err := ai.NewArkTextClient(ctx, cfg.AI.Ark, m)
		if err != nil {
			return fmt.Errorf("init ark client: %w", err)
		}
		text = arkClient
		slog.Info("Ark text client initialized", "model", cfg.AI.Ark.Model)
	}

	var speechSvc *speech.Service
	if cfg.Speech.Enabled && openaiClient != nil {
		voice, _ := speechModel.ParseVoice(cfg.Speech.Voice)
		speechSvc = speech.NewService(openaiClient, openaiClient, speech.Config{
			Voice:    voice,
			Format:   cfg.Speech.Format,
			Language: cfg.Speech.Language,
			Timeout:  cfg.Speech.Timeout,
		})
		slog.Info("speech service initialized", "voice", voice, "format", cfg.Speech.Format)
	} else {
		slog.Warn("speech service disabled")
	}

	mediaStore, err := openMediaStore(cfg.Media)
	if err != nil {
		return err
	}
	defer mediaStore.Close()

	deps := chat.Dependencies{
		Personas: personaStore,
		Text:     text,
		Images:   images,
		Media:    media.NewLibrary(mediaStore),
		Prompts:  prompts,
		Metrics:  m,
	}
	if speechSvc != nil {
		deps.Speech = speechSvc
	}
	chatService := chat.NewService(deps, chat.Config{
		HistoryLimit:      cfg.AI.HistoryLimit,
		SpeechTimeout:     cfg.Speech.Timeout,
		MaxRecordingBytes: cfg.Speech.MaxRecordingBytes,
		RecordingFormat:   cfg.Speech.RecordingFormat,
	})
	defer chatService.Close()

	router := handler.NewRouter(handler.Dependencies{
		Personas: personaStore,
		Chat:     chatService,
		Speech:   speechSvc,
		Text:     text,
		Images:   images,
		Prompts:  prompts,
		Media:    mediaStore,
		Metrics:  m,
	})

	addr, err := cfg.Server.Addr()
	if err != nil {
		return err
	}

	return service.Group{
		newHTTPServer(addr, router),
		janitor.New(janitor.Config{
			Schedule:       cfg.Media.SweepSchedule,
			MediaRetention: cfg.Media.Retention,
			SessionTTL:     cfg.Server.SessionIdleTTL,
		}, mediaStore, chatService, m),
	}.Run(ctx)
}

func openMediaStore(cfg config.MediaConfig) (media.Store, error) {
	if cfg.StorePath == "" {
		slog.Info("media kept in memory")
		return media.NewMemoryStore(), nil
	}
	store, err := media.OpenBolt(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open media store: %w", err)
	}
	slog.Info("media store opened", "path", cfg.StorePath)
	return store, nil
}

type httpServer struct {
	srv *http.Server
}

func newHTTPServer(addr string, h http.Handler) *httpServer {
	return &httpServer{srv: &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}}
}

func (s *httpServer) Name() string { return "http" }

func (s *httpServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("MindMate backend listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
