package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/agentmux/internal/mcpserver"
)

// MCPCmd serves every agent and workflow as an MCP tool over stdio.
type MCPCmd struct {
	root *Options
}

// Execute implements flags.Commander.
func (c *MCPCmd) Execute(_ []string) (err error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, stop, err := c.root.start(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, stop()) }()

	s := mcpserver.New(a.Orchestrator, func(o *mcpserver.Options) {
		o.Name = serviceName
		o.Version = Version
		o.Logger = a.Logger
	})

	err = s.Serve(ctx, c.root.stdin, c.root.stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
