// Command ssetail prints the messages of a Server-Sent Events stream as
// JSON lines and keeps the connection in sync with its config file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/liquidnya/eventsource/internal/app"
	"github.com/liquidnya/eventsource/internal/config"
)

var (
	configFile = flag.String("config", "", "config file path")
	logLevel   = flag.String("log-level", "info", "log level")
	watch      = flag.Bool("watch", true, "reload the config file when it changes")
	streamURL  = flag.String("url", "", "stream url, overrides the config file")
)

func main() {
	flag.Parse()

	setupLogging(*logLevel)

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server, err := app.NewServer(ctx, cfg, slog.Default(), os.Stdout)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := server.Start(ctx); err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}

	var watcher *config.Watcher
	if *watch && *configFile != "" {
		watcher, err = config.NewWatcher(*configFile, &config.WatcherConfig{
			DebounceDuration: 500 * time.Millisecond,
			OnChange:         server.Reload,
		}, slog.Default())
		if err != nil {
			slog.Warn("config watcher disabled", "error", err)
		} else {
			watcher.Start()
		}
	}

	<-ctx.Done()

	if watcher != nil {
		watcher.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		slog.Error("failed to stop", "error", err)
		os.Exit(1)
	}
}

// loadConfig applies -url through the environment so that reloads keep it
func loadConfig() (*config.Config, error) {
	if *streamURL != "" {
		if err := os.Setenv(config.EnvPrefix+"_STREAM_URL", *streamURL); err != nil {
			return nil, fmt.Errorf("setting stream url: %w", err)
		}
	}
	return config.NewLoader(*configFile).Load()
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// setupLogging logs to stderr; stdout carries the messages
func setupLogging(level string) {
	lvl, ok := logLevels[strings.ToLower(level)]
	if !ok {
		lvl = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})))
}
