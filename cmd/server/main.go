package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/corrgate/internal/auth"
	"github.com/corrgate/internal/broker"
	"github.com/corrgate/internal/config"
	"github.com/corrgate/internal/server"
	"github.com/corrgate/internal/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println(version.String())
		os.Exit(0)
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Logging.BuildLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush on exit
	zap.ReplaceGlobals(logger)

	logger.Info("starting corrgate",
		zap.String("version", version.Version),
		zap.String("git_commit", version.GitCommit),
		zap.String("build_time", version.BuildTime),
	)

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Server.Port),
		zap.String("correlation_header", cfg.Correlation.Header),
		zap.Bool("publishing_enabled", cfg.PublishingEnabled()),
	)

	var publisher server.Publisher
	if cfg.PublishingEnabled() {
		p, err := broker.NewPublisher(broker.PublisherConfig{
			ConfigMap: cfg.KafkaConfigMap(),
			Header:    cfg.Correlation.Header,
			Logger:    logger,
		})
		if err != nil {
			logger.Fatal("failed to create publisher", zap.Error(err))
		}
		defer p.Close()
		publisher = p

		logger.Info("kafka publisher created",
			zap.Strings("brokers", cfg.Kafka.Brokers),
		)
	}

	// Build the user map for basic auth.
	users := make(map[string]string)
	for _, u := range cfg.Auth.Users {
		users[u.Username] = u.Password
	}

	authenticator := auth.NewMultiAuth(users, cfg.Auth.Tokens)

	if authenticator.HasAuth() {
		if len(users) > 0 {
			logger.Info("basic auth enabled", zap.Int("users", len(users)))
		}
		if len(cfg.Auth.Tokens) > 0 {
			logger.Info("bearer auth enabled", zap.Int("tokens", len(cfg.Auth.Tokens)))
		}
	} else {
		logger.Warn("no authentication configured")
	}

	srv := server.New(server.Config{
		Port:              cfg.Server.Port,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeout) * time.Second,
		CorrelationHeader: cfg.Correlation.Header,
		RateLimit:         cfg.Server.RateLimit,
		RateBurst:         cfg.Server.RateBurst,
		Publisher:         publisher,
		Auth:              authenticator,
		Logger:            logger,
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := <-stop
	logger.Info("shutdown signal received", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped gracefully")
}

func getConfigPath() string {
	return os.Getenv("CONFIG_PATH")
}
