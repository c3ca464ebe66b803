// Package app wires the system's components together and owns the
// process lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tutorboard/internal/api"
	"tutorboard/internal/config"
	"tutorboard/internal/llm"
	"tutorboard/internal/logger"
	"tutorboard/internal/session"
	"tutorboard/internal/store"
	"tutorboard/internal/websocket"
)

// Application coordinates all system components behind a single
// start/stop lifecycle. Initialization follows dependency order:
// Store → LLM → Registry → Machine → WebSocket → API → HTTP.
type Application struct {
	config     *config.Config
	log        *logger.Logger
	store      *store.RedisStore
	registry   *websocket.Registry
	machine    *session.Machine
	apiServer  *api.Server
	httpServer *http.Server
}

// NewApplication builds every component and the HTTP server around them.
// Nothing starts listening until Start is called.
func NewApplication(cfg *config.Config, log *logger.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := store.NewRedisStore(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	completer := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.CompletionTimeout, log)

	registry := websocket.NewRegistry(log)
	machine := session.NewMachine(st, completer, registry, log)
	wsHandler := websocket.NewHandler(registry, machine, log, cfg.WSPingInterval, cfg.WSReadTimeout)
	apiServer := api.NewServer(st, registry, log)

	if cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsCfg))

	apiServer.Register(engine)
	engine.GET("/ws/tutor/:user_id", wsHandler.HandleTutorSocket)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	return &Application{
		config:     cfg,
		log:        log,
		store:      st,
		registry:   registry,
		machine:    machine,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start begins serving. An unreachable Redis is logged but does not
// block startup: sessions degrade per operation instead.
func (app *Application) Start(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := app.store.Ping(pingCtx); err != nil {
		app.log.Warn("session store unreachable at startup, continuing degraded", "error", err)
	}

	app.log.Info("starting server", "addr", app.httpServer.Addr)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Verify the listener came up before declaring the app started.
	select {
	case err := <-serverErrCh:
		return err
	case <-time.After(100 * time.Millisecond):
		app.log.Info("server started")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts components down in reverse dependency order:
// HTTP → Store.
func (app *Application) Stop(ctx context.Context) error {
	app.log.Info("shutting down")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		app.log.Error("HTTP server shutdown error", "error", err)
	}
	if err := app.store.Close(); err != nil {
		app.log.Error("session store shutdown error", "error", err)
	}

	app.log.Info("shutdown complete")
	return nil
}

// Addr returns the address the HTTP server binds to.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
