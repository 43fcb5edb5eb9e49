package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice-assistant/config"
	"voice-assistant/internal/application"
	"voice-assistant/internal/infra"
	"voice-assistant/internal/infra/anyllm"
	"voice-assistant/internal/infra/audio"
	"voice-assistant/internal/infra/googlecloud"
	"voice-assistant/internal/infra/openai"
	"voice-assistant/internal/infra/pushover"
	"voice-assistant/internal/infra/trigger"
	"voice-assistant/internal/observe"
)

const defaultMetricsAddr = ":9090"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envPath := flag.String("env", "", "path to .env file with credentials (default ./.env if present)")
	flag.Parse()

	explicitConfig := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicitConfig = true
		}
	})

	if err := run(*configPath, explicitConfig, *envPath); err != nil {
		slog.Error("assistant error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, explicitConfig bool, envPath string) error {
	if err := config.LoadDotEnv(envPath); err != nil {
		return err
	}

	cfg, err := loadConfig(configPath, explicitConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Raw terminal mode needs CRLF line endings; logs move to stderr so
	// they stay apart from the key prompt.
	logOut, consoleOut := io.Writer(os.Stdout), io.Writer(os.Stdout)
	if cfg.Trigger.Source == "keypress" {
		logOut, consoleOut = trigger.RawOutput(os.Stderr), trigger.RawOutput(os.Stdout)
	}

	logger := setupLogger(cfg.Log, logOut)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	metrics, metricsHandler, shutdownMetrics, err := setupMetrics(cfg.Metrics)
	if err != nil {
		return fmt.Errorf("setting up metrics: %w", err)
	}
	defer shutdownMetrics(context.Background())

	retry := infra.NewRetryPolicy(cfg.Assistant.MaxAttempts)

	pipeline, err := buildPipeline(ctx, cfg, retry, logger)
	if err != nil {
		return err
	}
	defer audio.Shutdown()

	source, httpSource := createTrigger(cfg.Trigger, logger)

	if metricsHandler != nil {
		if httpSource != nil && cfg.Metrics.Addr == "" {
			httpSource.Handle("GET /metrics", metricsHandler)
		} else {
			addr := cfg.Metrics.Addr
			if addr == "" {
				addr = defaultMetricsAddr
			}
			stop := serveMetrics(addr, metricsHandler, logger)
			defer stop()
		}
	}

	turnCfg, err := turnConfig(cfg)
	if err != nil {
		return err
	}

	controller := application.NewTurnController(pipeline, turnCfg, buildNotifier(cfg.Pushover, consoleOut), metrics, logger)

	logger.Info("starting voice assistant",
		"mode", cfg.Assistant.Mode,
		"capture", cfg.Audio.Capture,
		"speech", cfg.Speech.Provider,
		"trigger", cfg.Trigger.Source,
	)

	if err := controller.Run(ctx, source); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// loadConfig falls back to the defaults when the default config file is
// absent. An explicitly named file must exist.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

func turnConfig(cfg *config.Config) (application.TurnConfig, error) {
	duration, err := cfg.Audio.CaptureDuration()
	if err != nil {
		return application.TurnConfig{}, err
	}
	timeout, err := cfg.Assistant.Timeout()
	if err != nil {
		return application.TurnConfig{}, err
	}

	var prompt string
	if cfg.Assistant.Mode == "assistant" {
		if prompt, err = cfg.Assistant.Prompt(); err != nil {
			return application.TurnConfig{}, err
		}
	}

	return application.TurnConfig{
		CaptureDuration: duration,
		RawPath:         cfg.Audio.RawPath,
		MonoPath:        cfg.Audio.MonoPath,
		OutputPath:      cfg.Audio.OutputPath,
		SystemPrompt:    prompt,
		StageTimeout:    timeout,
	}, nil
}

func buildPipeline(ctx context.Context, cfg *config.Config, retry infra.RetryPolicy, logger *slog.Logger) (application.Pipeline, error) {
	var p application.Pipeline

	switch cfg.Audio.Capture {
	case "file":
		p.Capture = audio.NewFileCapture(cfg.Audio.FileDir, logger)
	default:
		p.Capture = audio.NewMicrophoneCapture(cfg.Audio.Channels, logger)
	}

	p.Normalizer = audio.NewDownmixer(logger)

	creds := googlecloud.Credentials{
		CredentialsFile: cfg.Google.CredentialsFile,
		APIKey:          cfg.Google.APIKey,
		Endpoint:        cfg.Google.Endpoint,
	}

	switch cfg.Speech.Provider {
	case "whisper":
		if cfg.OpenAI.BaseURL != "" {
			p.Transcriber = openai.NewWhisperClientWithURL(cfg.OpenAI.APIKey, cfg.Speech.Language, cfg.OpenAI.BaseURL, retry)
		} else {
			p.Transcriber = openai.NewWhisperClient(cfg.OpenAI.APIKey, cfg.Speech.Language, retry)
		}
	default:
		speech, err := googlecloud.NewSpeechClient(ctx, creds, googlecloud.SpeechConfig{
			LanguageCode: cfg.Speech.Language,
			Model:        cfg.Speech.Model,
		}, retry, logger)
		if err != nil {
			return p, err
		}
		p.Transcriber = speech
	}

	if cfg.Assistant.Mode == "assistant" {
		generator, err := createGenerator(cfg, retry)
		if err != nil {
			return p, err
		}
		p.Generator = generator
	}

	tts, err := googlecloud.NewTextToSpeechClient(ctx, creds, googlecloud.VoiceConfig{
		LanguageCode: cfg.Voice.Language,
		Name:         cfg.Voice.Name,
		Gender:       cfg.Voice.Gender,
		SampleRate:   cfg.Voice.SampleRate,
	}, retry, logger)
	if err != nil {
		return p, err
	}
	p.Synthesizer = tts

	switch cfg.Audio.Player {
	case "command":
		player, err := audio.NewCommandPlayer(cfg.Audio.PlayerCommand, logger)
		if err != nil {
			return p, err
		}
		p.Player = player
	default:
		p.Player = audio.NewSpeakerPlayer(logger)
	}

	return p, nil
}

func createGenerator(cfg *config.Config, retry infra.RetryPolicy) (application.ResponseGenerator, error) {
	switch cfg.Assistant.Provider {
	case "anthropic", "gemini":
		apiKey, model := cfg.Anthropic.APIKey, cfg.Anthropic.Model
		if cfg.Assistant.Provider == "gemini" {
			apiKey, model = cfg.Gemini.APIKey, cfg.Gemini.Model
		}
		gen, err := anyllm.New(cfg.Assistant.Provider, apiKey, model, "", retry)
		if err != nil {
			return nil, err
		}
		return gen, nil
	default:
		client, err := openai.NewChatClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, retry)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func createTrigger(cfg config.TriggerConfig, logger *slog.Logger) (application.TriggerSource, *trigger.HTTP) {
	switch cfg.Source {
	case "keypress":
		return trigger.NewKeypress(os.Stdin, logger), nil
	case "http":
		h := trigger.NewHTTP(cfg.HTTPAddr, cfg.AuthToken, logger)
		return h, h
	default:
		return trigger.NewConsole(os.Stdin, os.Stdout), nil
	}
}

func buildNotifier(cfg config.PushoverConfig, out io.Writer) application.Notifier {
	console := &application.ConsoleNotifier{Out: out}
	if !cfg.Enabled {
		return console
	}
	return application.MultiNotifier{
		console,
		pushover.NewClient(cfg.Token, cfg.UserKey, cfg.Title),
	}
}

func setupMetrics(cfg config.MetricsConfig) (*observe.Metrics, http.Handler, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return nil, nil, noop, nil
	}

	mp, handler, err := observe.InitPrometheus()
	if err != nil {
		return nil, nil, noop, err
	}
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		return nil, nil, noop, err
	}
	return metrics, handler, mp.Shutdown, nil
}

func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", handler)

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}
}

func setupLogger(cfg config.LogConfig, out io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}
