// Package app wires all Ledgerly subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves until the context ends, and Shutdown tears
// everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithDispatcher). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ledgerly-ai/ledgerly/internal/chat"
	"github.com/ledgerly-ai/ledgerly/internal/config"
	"github.com/ledgerly-ai/ledgerly/internal/health"
	"github.com/ledgerly-ai/ledgerly/internal/ledger"
	"github.com/ledgerly-ai/ledgerly/internal/observe"
	"github.com/ledgerly-ai/ledgerly/internal/tool"
	"github.com/ledgerly-ai/ledgerly/internal/voice"
)

// defaultShutdownGrace bounds graceful HTTP shutdown when the config does not
// set server.shutdown_grace.
const defaultShutdownGrace = 10 * time.Second

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	store      ledger.Store
	pool       *pgxpool.Pool
	registry   *tool.Registry
	dispatcher *tool.Dispatcher
	metrics    *observe.Metrics
	assistant  *chat.Assistant
	voiceAgent *voice.Agent

	httpSrv *http.Server

	// conversations holds one chat history per user.
	convMu        sync.Mutex
	conversations map[string]*chat.Conversation

	// otelShutdown flushes the telemetry providers.
	otelShutdown func(context.Context) error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a ledger store instead of opening one from config.
func WithStore(s ledger.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects a metrics instance instead of the provider-backed one.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together: telemetry, the
// ledger store, the tool registry and dispatcher, the chat assistant, the
// voice agent client, and the HTTP surface (health + metrics).
func New(ctx context.Context, cfg *config.Config, version string, opts ...Option) (*App, error) {
	a := &App{
		cfg:           cfg,
		conversations: make(map[string]*chat.Conversation),
	}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Telemetry ─────────────────────────────────────────────────────
	if a.metrics == nil {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName:    "ledgerly",
			ServiceVersion: version,
		})
		if err != nil {
			return nil, fmt.Errorf("app: init telemetry: %w", err)
		}
		a.otelShutdown = shutdown
		a.metrics = observe.DefaultMetrics()
	}

	// ── 2. Ledger store ──────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 3. Tools ─────────────────────────────────────────────────────────
	a.registry = tool.NewFinanceRegistry(a.store, tool.Defaults{
		TaxRate:  cfg.Finance.DefaultTaxRate,
		Currency: cfg.Finance.Currency,
	})
	a.dispatcher = tool.NewDispatcher(a.registry, tool.WithMetrics(a.metrics))

	// ── 4. Chat assistant ────────────────────────────────────────────────
	if cfg.LLM.APIKey != "" || cfg.LLM.BaseURL != "" {
		var chatOpts []chat.Option
		if cfg.LLM.BaseURL != "" {
			chatOpts = append(chatOpts, chat.WithBaseURL(cfg.LLM.BaseURL))
		}
		chatOpts = append(chatOpts, chat.WithTurnRecorder(a.metrics))
		asst, err := chat.New(cfg.LLM.APIKey, cfg.LLM.Model, a.dispatcher, chatOpts...)
		if err != nil {
			return nil, fmt.Errorf("app: init chat: %w", err)
		}
		a.assistant = asst
	}

	// ── 5. Voice agent ───────────────────────────────────────────────────
	if cfg.Voice.Enabled {
		var voiceOpts []voice.AgentOption
		if cfg.Voice.Instructions != "" {
			voiceOpts = append(voiceOpts, voice.WithInstructions(cfg.Voice.Instructions))
		} else {
			voiceOpts = append(voiceOpts, voice.WithInstructions(chat.DefaultSystemPrompt))
		}
		voiceOpts = append(voiceOpts, voice.WithMetrics(a.metrics))
		a.voiceAgent = voice.NewAgent(cfg.Voice.Endpoint, cfg.Voice.APIKey, voiceOpts...)
	}

	// ── 6. HTTP surface ──────────────────────────────────────────────────
	a.initHTTP()

	return a, nil
}

// initStore opens the configured store. With a Postgres DSN the document
// schema is migrated on startup; otherwise the in-memory store backs the
// session.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	if dsn := a.cfg.Database.PostgresDSN; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("ping postgres: %w", err)
		}
		store := ledger.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("migrate: %w", err)
		}
		a.pool = pool
		a.store = store
		slog.Info("ledger store ready", "backend", "postgres")
		return nil
	}
	a.store = ledger.NewMemStore()
	slog.Info("ledger store ready", "backend", "memory")
	return nil
}

func (a *App) initHTTP() {
	mux := http.NewServeMux()

	checkers := []health.Checker{}
	if a.pool != nil {
		pool := a.pool
		checkers = append(checkers, health.Checker{
			Name:  "database",
			Check: func(ctx context.Context) error { return pool.Ping(ctx) },
		})
	}
	health.New(checkers...).Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	a.httpSrv = &http.Server{
		Addr:    a.cfg.Server.ListenAddr,
		Handler: observe.Middleware(a.metrics)(mux),
	}
}

// ─── Serving ─────────────────────────────────────────────────────────────────

// Run serves HTTP until ctx is cancelled, then shuts the server down within
// the configured grace period.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.httpSrv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("http server listening", "addr", a.cfg.Server.ListenAddr)

	select {
	case err := <-errCh:
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
	}

	grace := a.cfg.Server.ShutdownGrace
	if grace <= 0 {
		grace = defaultShutdownGrace
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return a.httpSrv.Shutdown(shutdownCtx)
}

// ─── Chat ────────────────────────────────────────────────────────────────────

// ErrChatUnavailable is returned when no LLM is configured.
var ErrChatUnavailable = errors.New("app: chat is not configured")

// Chat sends one user turn through the text assistant, keeping per-user
// history across calls.
func (a *App) Chat(ctx context.Context, userID, text string) (string, error) {
	if a.assistant == nil {
		return "", ErrChatUnavailable
	}
	a.convMu.Lock()
	conv, ok := a.conversations[userID]
	if !ok {
		conv = a.assistant.NewConversation(userID)
		a.conversations[userID] = conv
	}
	a.convMu.Unlock()

	// Conversations are per-user sequential; the map lock is not held
	// during the model round trip.
	return conv.Send(ctx, text)
}

// Dispatcher exposes the tool dispatcher for the MCP and voice surfaces.
func (a *App) Dispatcher() *tool.Dispatcher { return a.dispatcher }

// Handler returns the HTTP surface (health, metrics) for tests and embedding.
func (a *App) Handler() http.Handler { return a.httpSrv.Handler }

// VoiceAgent returns the configured voice agent client, or nil when voice is
// disabled.
func (a *App) VoiceAgent() *voice.Agent { return a.voiceAgent }

// Metrics returns the application metrics instance.
func (a *App) Metrics() *observe.Metrics { return a.metrics }

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down remaining subsystems in reverse-init order. Safe to
// call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		if a.pool != nil {
			a.pool.Close()
		}
		if a.otelShutdown != nil {
			if err := a.otelShutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("app: telemetry shutdown: %w", err))
			}
		}
	})
	return errors.Join(errs...)
}
