package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/agentmux/internal/app"
	"github.com/hupe1980/agentmux/internal/httpapi"
	"github.com/hupe1980/agentmux/internal/meme"
	"github.com/hupe1980/agentmux/internal/publishing"
)

// ServeCmd starts the HTTP server.
// Usage: agentmux serve --addr :8080
type ServeCmd struct {
	Addr string `short:"a" long:"addr" description:"listen address (overrides server.addr)"`

	root *Options
}

// Execute implements flags.Commander.
func (c *ServeCmd) Execute(_ []string) (err error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, stop, err := c.root.start(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, stop()) }()

	cfg := a.Config
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := httpapi.NewRouter(a.Orchestrator, func(o *httpapi.Options) {
		o.Routes = httpapi.Routes{
			Chatbot:   app.ChatbotName,
			Publisher: publishing.PublisherName,
			Meme:      meme.AgentName,
		}
		o.Artifacts = a.Artifacts
		o.Transform = app.Uppercase
		o.RequestTimeout = cfg.Server.RequestTimeout
		o.Logger = a.Logger
	})

	srv := httpapi.NewServer(cfg.Server.Addr, router, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)

	errCh := make(chan error, 1)

	go func() {
		a.Logger.Info("http.server.listening", "addr", cfg.Server.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("http.server.shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	return srv.Shutdown(shutdownCtx)
}
