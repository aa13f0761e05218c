package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// DispatchCmd sends one message and prints the answer.
// Usage: agentmux dispatch --agent chatbot hello there
type DispatchCmd struct {
	Agent        string `short:"a" long:"agent" description:"agent (or workflow with --workflow) name" required:"true"`
	Conversation string `short:"c" long:"conversation" description:"conversation id for memory-backed agents"`
	Workflow     bool   `short:"w" long:"workflow" description:"run the named workflow instead of an agent"`

	root *Options
}

// Execute implements flags.Commander. Without arguments the text is read
// from stdin.
func (c *DispatchCmd) Execute(args []string) (err error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" && c.root.stdin != nil {
		b, err := io.ReadAll(c.root.stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}

		text = string(b)
	}

	a, stop, err := c.root.start(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, stop()) }()

	if d := a.Config.Server.RequestTimeout; d > 0 {
		var cancelTimeout context.CancelFunc

		ctx, cancelTimeout = context.WithTimeout(ctx, d)
		defer cancelTimeout()
	}

	if c.Workflow {
		res, err := a.Orchestrator.RunWorkflow(ctx, c.Agent, text)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(c.root.stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(res)
	}

	answer, err := a.Orchestrator.DispatchConversation(ctx, c.Agent, c.Conversation, text)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.root.stdout, answer)

	return err
}
