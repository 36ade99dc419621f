// Command ledgerly runs the Ledgerly assistant server: the finance tool
// catalogue behind an HTTP health/metrics surface, optionally exposed as a
// Model Context Protocol server on stdio.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ledgerly-ai/ledgerly/internal/app"
	"github.com/ledgerly-ai/ledgerly/internal/config"
	"github.com/ledgerly-ai/ledgerly/internal/tool"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "ledgerly.yaml", "path to the YAML configuration file")
	mcpUser := flag.String("mcp-user", "", "serve the tool catalogue as an MCP server on stdio, acting for this user ID")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	// The watcher keeps serving the last good config across live edits.
	level := new(slog.LevelVar)
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			level.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.FinanceChanged {
			slog.Info("finance defaults changed; restart to apply to the tool catalogue",
				"tax_rate", d.NewFinance.DefaultTaxRate, "currency", d.NewFinance.Currency)
		}
		if d.InstructionsChanged {
			slog.Info("voice instructions changed; restart to apply to new sessions")
		}
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "ledgerly: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "ledgerly: %v\n", err)
		}
		return 1
	}
	defer watcher.Stop()
	cfg := watcher.Current()

	// ── Logger ────────────────────────────────────────────────────────────────
	level.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("ledgerly starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, version)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── MCP mode ──────────────────────────────────────────────────────────────
	// On stdio the process is a tool server for one user; the HTTP surface
	// stays off so stdout carries only protocol traffic.
	if *mcpUser != "" {
		srv := tool.NewMCPServer(application.Dispatcher(), *mcpUser, version)
		slog.Info("serving MCP on stdio", "user_id", *mcpUser)
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("mcp server error", "err", err)
			return 1
		}
		return shutdown(application)
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("shutdown signal received, stopping…")
	return shutdown(application)
}

func shutdown(application *app.App) int {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
