package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/appunni/llm-ts-worker/internal/config"
	"github.com/appunni/llm-ts-worker/internal/engine"
	"github.com/appunni/llm-ts-worker/internal/httpapi"
	"github.com/appunni/llm-ts-worker/internal/registry"
	"github.com/appunni/llm-ts-worker/internal/runtime"
	"github.com/appunni/llm-ts-worker/internal/worker"
	"github.com/appunni/llm-ts-worker/pkg/types"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		cfgPath     string
		addr        string
		modelsDir   string
		presetsPath string
		defModel    string
		logLevel    string
		ctxSize     int
		threads     int
		corsEnable  bool
		corsOrigins []string
	)

	root := &cobra.Command{
		Use:           "llm-worker",
		Short:         "Streaming LLM inference worker over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.Config
			if cfgPath != "" {
				loaded, err := config.Load(cfgPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			// Flags and env take precedence over the config file.
			if cmd.Flags().Changed("addr") || cfg.Addr == "" {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("models-dir") || cfg.ModelsDir == "" {
				cfg.ModelsDir = modelsDir
			}
			if cmd.Flags().Changed("presets") || cfg.PresetsPath == "" {
				cfg.PresetsPath = presetsPath
			}
			if cmd.Flags().Changed("default-model") || cfg.DefaultModel == "" {
				cfg.DefaultModel = defModel
			}
			if cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("ctx-size") || cfg.CtxSize == 0 {
				cfg.CtxSize = ctxSize
			}
			if cmd.Flags().Changed("threads") || cfg.Threads == 0 {
				cfg.Threads = threads
			}
			if cmd.Flags().Changed("cors") {
				cfg.CORSEnabled = corsEnable
			}
			if cmd.Flags().Changed("cors-origins") {
				cfg.CORSOrigins = corsOrigins
			}
			return run(cfg)
		},
	}

	f := root.Flags()
	f.StringVarP(&cfgPath, "config", "c", os.Getenv("LLMWORKER_CONFIG"), "Config file (.yaml/.json/.toml)")
	f.StringVar(&addr, "addr", envOr("LLMWORKER_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	f.StringVar(&modelsDir, "models-dir", envOr("LLMWORKER_MODELS_DIR", "~/models/llm"), "Directory holding *.gguf model weights")
	f.StringVar(&presetsPath, "presets", os.Getenv("LLMWORKER_PRESETS"), "Optional preset overlay file (.yaml/.json/.toml)")
	f.StringVar(&defModel, "default-model", envOr("LLMWORKER_DEFAULT_MODEL", registry.DefaultModel), "Preset used when initialize omits a model")
	f.StringVar(&logLevel, "log-level", envOr("LLMWORKER_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	f.IntVar(&ctxSize, "ctx-size", 2048, "Model context window in tokens")
	f.IntVar(&threads, "threads", 0, "Inference threads (0 = runtime default)")
	f.BoolVar(&corsEnable, "cors", false, "Enable CORS for browser clients")
	f.StringSliceVar(&corsOrigins, "cors-origins", []string{"*"}, "Allowed CORS origins")

	if err := root.Execute(); err != nil {
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run(cfg config.Config) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Str("service", "llm-worker").Logger()

	reg := registry.New()
	if cfg.PresetsPath != "" {
		if err := reg.LoadFile(cfg.PresetsPath); err != nil {
			return err
		}
		log.Info().Str("path", cfg.PresetsPath).Msg("preset overlay loaded")
	}

	defaults := types.DefaultGenerationSettings()
	if cfg.Generation.DoSample != nil {
		defaults.DoSample = *cfg.Generation.DoSample
	}
	if cfg.Generation.Temperature > 0 {
		defaults.Temperature = cfg.Generation.Temperature
	}
	if cfg.Generation.TopP > 0 {
		defaults.TopP = cfg.Generation.TopP
	}
	if cfg.Generation.MaxNewTokens > 0 {
		defaults.MaxNewTokens = cfg.Generation.MaxNewTokens
	}
	if cfg.Generation.RepetitionPenalty > 0 {
		defaults.RepetitionPenalty = cfg.Generation.RepetitionPenalty
	}

	adapter := runtime.NewLlamaAdapter(expandHome(cfg.ModelsDir), cfg.CtxSize, cfg.Threads)
	eng := engine.New(engine.Config{
		Adapter:      adapter,
		Registry:     reg,
		Defaults:     defaults,
		DefaultModel: cfg.DefaultModel,
		Logger:       log,
	})
	defer eng.Close()
	w := worker.New(eng, log)

	// Base context canceled on shutdown so in-flight generations stop too.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetLogger(log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins)
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(w),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if avail, reason := adapter.Available(); !avail {
			log.Warn().Str("reason", reason).Msg("inference backend unavailable")
		}
		log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown incomplete")
	}
	return nil
}

// expandHome resolves a leading ~/ against $HOME.
func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + p[1:]
		}
	}
	return p
}
