package main

import (
	"io"

	"github.com/jessevdk/go-flags"
)

// Options is the root command. The struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	Config string `short:"f" long:"config" description:"service config YAML path"`

	Serve    ServeCmd    `command:"serve" description:"Start the HTTP server"`
	Dispatch DispatchCmd `command:"dispatch" description:"Send one message to an agent or workflow"`
	MCP      MCPCmd      `command:"mcp" description:"Serve agents and workflows as MCP tools over stdio"`
	Agents   AgentsCmd   `command:"agents" description:"List registered agents and workflows"`

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newOptions(stdin io.Reader, stdout, stderr io.Writer) *Options {
	o := &Options{stdin: stdin, stdout: stdout, stderr: stderr}

	o.Serve.root = o
	o.Dispatch.root = o
	o.MCP.root = o
	o.Agents.root = o

	return o
}

// run parses args and executes the selected command.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	parser := flags.NewParser(newOptions(stdin, stdout, stderr), flags.HelpFlag|flags.PassDoubleDash)
	_, err := parser.ParseArgs(args)

	return err
}
