package main

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/agentmux/config"
	"github.com/hupe1980/agentmux/internal/app"
	"github.com/hupe1980/agentmux/logging"
	"github.com/hupe1980/agentmux/telemetry"
)

const serviceName = "agentmux"

// start loads the configuration and wires the service. The returned func
// releases stores and flushes telemetry.
func (o *Options) start(ctx context.Context) (*app.App, func() error, error) {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.NewSlogLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, o.stderr, cfg.Log.AddSource)

	shutdown, err := telemetry.Init(serviceName, Version, cfg.Telemetry)
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, nil, err
	}

	stop := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return errors.Join(a.Close(), shutdown(ctx))
	}

	return a, stop, nil
}
