// cmd/governor/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tamzrod/xplane-lod-governor/internal/bridge"
	"github.com/tamzrod/xplane-lod-governor/internal/config"
	"github.com/tamzrod/xplane-lod-governor/internal/governor"
	"github.com/tamzrod/xplane-lod-governor/internal/status"
	"github.com/tamzrod/xplane-lod-governor/internal/telemetry"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: governor <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	config.Normalize(cfg)
	g := cfg.Governor

	logger := buildLogger(g.Log)
	logger = logger.With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	logger.Info("starting lod governor",
		"listen", fmt.Sprintf("%s:%d", g.Telemetry.ListenHost, g.Telemetry.ListenPort),
		"command", fmt.Sprintf("%s:%d", g.Command.Host, g.Command.Port),
		"enabled", g.Enabled,
	)

	// --------------------
	// Build the triad
	// --------------------

	recv := telemetry.NewReceiver()
	recv.Configure(g.Telemetry.Enabled, g.Telemetry.ListenHost, g.Telemetry.ListenPort)

	br := bridge.New(bridgeDir(g.Bridge))

	gov := governor.New(g, recv, br, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go gov.Run(ctx)

	// --------------------
	// HTTP projection (/metrics, /status)
	// --------------------

	var httpServer *http.Server
	if g.HTTP.Port > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
			body, err := status.Encode(gov.Status())
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(body)
		})

		httpServer = &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", g.HTTP.Port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		go func() {
			logger.Info("status server listening", "addr", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("status server failed", "err", err)
			}
		}()
	}

	// --------------------
	// Wait for shutdown
	// --------------------

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	cancel()

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status server shutdown error", "err", err)
		}
	}

	// Give the run loop a moment to deliver DISABLE before the socket
	// teardown below.
	time.Sleep(500 * time.Millisecond)
	recv.Stop(false)

	logger.Info("stopped")
}

// buildLogger wires slog to stdout or a rotating file.
func buildLogger(cfg config.LogConfig) *slog.Logger {
	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	}

	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

// bridgeDir resolves the shared file-channel directory, preferring the
// configured path over the platform default.
func bridgeDir(cfg config.BridgeConfig) string {
	if cfg.Dir != "" {
		return cfg.Dir
	}

	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "xplane-lod-governor", "bridge")
}
