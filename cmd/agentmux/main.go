// Command agentmux serves the agent orchestrator over HTTP or MCP and runs
// one-shot dispatches from the shell.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		var fe *flags.Error
		if errors.As(err, &fe) && fe.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, fe.Message)
			return
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
