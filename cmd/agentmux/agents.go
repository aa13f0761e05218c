package main

import (
	"context"
	"encoding/json"
	"errors"

	"gopkg.in/yaml.v3"
)

// AgentsCmd prints the registered agents and workflows.
type AgentsCmd struct {
	Format string `long:"format" description:"output format" choice:"yaml" choice:"json" default:"yaml"`

	root *Options
}

// Execute implements flags.Commander.
func (c *AgentsCmd) Execute(_ []string) (err error) {
	a, stop, err := c.root.start(context.Background())
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, stop()) }()

	entries := a.Orchestrator.Entries()

	if c.Format == "json" {
		enc := json.NewEncoder(c.root.stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(entries)
	}

	enc := yaml.NewEncoder(c.root.stdout)
	if err := enc.Encode(entries); err != nil {
		return err
	}

	return enc.Close()
}
