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

	"github.com/use-agent/transwatch/api"
	"github.com/use-agent/transwatch/config"
	"github.com/use-agent/transwatch/models"
	"github.com/use-agent/transwatch/monitor"
)

const usage = `usage: transwatch [command]

commands:
  (none)   run one check and exit
  serve    start the HTTP trigger server
`

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	// ── 3. Build the runner (validates selectors) ───────────────────
	runner, err := monitor.NewFromConfig(cfg)
	if err != nil {
		slog.Error("failed to initialise monitor", "error", err)
		os.Exit(1)
	}

	switch cmd {
	case "":
		os.Exit(runOnce(cfg, runner))
	case "serve":
		serve(cfg, runner)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
}

// runOnce performs a single check. A failed run is logged and exits 0
// unless StrictExit is set.
func runOnce(cfg *config.Config, runner *monitor.Runner) int {
	slog.Info("transwatch check starting",
		"url", cfg.Scraper.TargetURL,
		"fetch_mode", cfg.Scraper.FetchMode,
		"webhook_configured", cfg.Webhook.URL != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := runner.Run(ctx)
	if err != nil {
		var ce *models.CheckError
		code := models.ErrCodeInternal
		if errors.As(err, &ce) {
			code = ce.Code
		}
		slog.Error("check failed", "run_id", report.RunID, "code", code, "error", err)
		if cfg.Monitor.StrictExit {
			return 1
		}
		return 0
	}

	slog.Info("check complete",
		"run_id", report.RunID,
		"is_there_a_job", report.Result.IsThereAJob,
		"notified", report.Notified,
		"elapsed", report.Duration.Round(time.Millisecond),
	)
	return 0
}

func serve(cfg *config.Config, runner *monitor.Runner) {
	slog.Info("transwatch starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
	)
	if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
		slog.Warn("auth is enabled but TRANSWATCH_API_KEYS is empty, every check request will be rejected")
	}

	// ── 4. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(runner, cfg, startTime)

	// ── 5. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 6. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// A check in flight holds a browser; give it the navigation budget to finish.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scraper.NavigationTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("transwatch stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
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
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
