// Package core provides the foundational domain types shared by every other
// agentmux package:
//
//   - Turns (role tagged conversation entries, including tool calls and results)
//   - The typed error taxonomy (Error, Code and the Err* sentinels)
//   - Call stack tracking used to bound nested agent and workflow invocations
//   - ToolContext, the scoped surface handed to tool implementations
//
// The package deliberately has no knowledge of model providers, transports or
// persistence. Those live in their own packages and depend on core, never the
// other way around.
package core
