package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/auth"
	"github.com/Ktiseos-Nyx/plural-chat/command"
	"github.com/Ktiseos-Nyx/plural-chat/contract"
	"github.com/Ktiseos-Nyx/plural-chat/infrastructure/grpc/server"
	"github.com/Ktiseos-Nyx/plural-chat/infrastructure/ws"
	"github.com/Ktiseos-Nyx/plural-chat/internal"
	"github.com/Ktiseos-Nyx/plural-chat/mention"
	"github.com/Ktiseos-Nyx/plural-chat/observability"
	"github.com/Ktiseos-Nyx/plural-chat/projection"
	"github.com/Ktiseos-Nyx/plural-chat/proxy"
	"github.com/Ktiseos-Nyx/plural-chat/repositories"
	"github.com/Ktiseos-Nyx/plural-chat/responder"
	"github.com/Ktiseos-Nyx/plural-chat/runtime"
	"github.com/Ktiseos-Nyx/plural-chat/runtime/workers"
	"github.com/Ktiseos-Nyx/plural-chat/search"
	"github.com/Ktiseos-Nyx/plural-chat/services"
	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Master terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a server failure.
// Deferred closes run before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env is fine, the environment may already be set
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	scope, err := runtime.ParseScope(config.BroadcastScope)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, repositories.InspectRecord)
	}

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	messages := repositories.NewMessageRepository(db, logger)
	personas := repositories.NewPersonaRepository(db)
	channels := repositories.NewChannelRepository(db)
	fronts := repositories.NewFrontRepository(db)
	index := search.NewIndex(blugeWriter, messages, logger)
	timeline := projection.NewTimeline(max(config.HistoryLimit, 50), messages)
	metrics := observability.NewMetrics()

	// 3. Commands
	dispatcher, err := command.NewBuilder().
		Register(command.Builtins(command.Deps{Personas: personas, Fronts: fronts, Searcher: index})...).
		Build(logger, metrics)
	if err != nil {
		return exitConfig, fmt.Errorf("command registry: %w", err)
	}

	// 4. Router
	registry := runtime.NewRegistry(config.SinkTimeout, logger, metrics)
	router := runtime.NewRouter(runtime.RouterConfig{
		Scope:            scope,
		MaxContentLength: config.MaxContentLength,
		Responders:       config.NumberOfResponders,
		TriggerQueue:     config.TriggerQueueSize,
		HistoryBuffer:    config.HistoryBufferSize,
		RestartInterval:  config.RestartInterval,
	}, runtime.RouterDeps{
		Commands:   dispatcher,
		Matcher:    proxy.NewMatcher(),
		Scanner:    mention.NewScanner(),
		Registry:   registry,
		Sequencer:  runtime.NewSequencer(logger),
		Messages:   messages,
		Personas:   personas,
		Channels:   channels,
		History:    []contract.MessageSink{timeline, index},
		Supervised: []contract.Worker{workers.NewProcessStatsWorker(logger, metrics, config.MetricInterval)},
	}, logger, metrics)

	// 5. Automated responders
	providers, err := buildProviders(ctx, config, responder.NewNameResolver(personas))
	if err != nil {
		return exitConfig, err
	}
	router.WithResponder(responder.NewResponder(providers, timeline, router, responder.Config{
		Timeout:      config.ProviderTimeout,
		HistoryLimit: config.HistoryLimit,
	}, logger, metrics))

	// 6. Transports
	chatService := services.NewChatService(router, registry, messages)
	wsConfig := ws.DefaultConfig()
	wsConfig.BufferSize = config.ConnectionBufferSize
	wsConfig.InboundRate = rate.Limit(config.InboundRate)
	wsConfig.InboundBurst = config.InboundBurst
	wsServer := ws.NewServer(logger, chatService, auth.NewAuthenticator(config.JwtSecret), wsConfig)

	mux := http.NewServeMux()
	wsServer.Register(mux)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GrpcPort)
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}
	health := server.NewHealthServer(logger)

	// 7. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		router.Start(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting HTTP server", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting gRPC health server", "address", grpcAddress)
		if err := health.Serve(listener); err != nil {
			return fmt.Errorf("gRPC server error: %w", err)
		}
		return nil
	})
	health.Ready()

	// 8. Graceful shutdown, triggered by a signal or by the first failing server
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")
		health.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown incomplete", "error", err)
		}
		router.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		return exitRuntime, err
	}
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

// buildProviders registers Ollama always, and each hosted provider whose API
// key is set.
func buildProviders(ctx context.Context, config internal.Config, names *responder.NameResolver) (responder.Providers, error) {
	ollama := responder.NewOllamaClient(config.OllamaURL)
	providers := responder.Providers{
		responder.ProviderOllama: responder.PromptProvider{Complete: ollama.Complete, Model: config.OllamaModel, Names: names},
	}
	if config.OpenAIAPIKey != "" {
		openai := responder.NewOpenAIClient(config.OpenAIAPIKey, config.OpenAIURL)
		providers[responder.ProviderOpenAI] = responder.PromptProvider{Complete: openai.Complete, Model: config.OpenAIModel, Names: names}
	}
	if config.ClaudeAPIKey != "" {
		claude := responder.NewClaudeClient(config.ClaudeAPIKey, config.ClaudeURL)
		providers[responder.ProviderClaude] = responder.PromptProvider{Complete: claude.Complete, Model: config.ClaudeModel, Names: names}
	}
	if config.GeminiAPIKey == "" {
		return providers, nil
	}
	gemini, err := responder.NewGeminiClient(ctx, config.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	providers[responder.ProviderGemini] = responder.PromptProvider{Complete: gemini.Complete, Model: config.GeminiModel, Names: names}
	return providers, nil
}
