// Package agent contains the model backed Agent: a named unit bundling a
// system instruction, a capability binding, the bound model, a fixed set of
// tools and an optional conversation memory.
//
// Generate runs the bounded generation loop from the flow package. Every
// call pushes an agent frame on the request's call stack so agents that call
// each other through tools are bounded by the maximum call depth.
//
// Agents hold no per-request state and are safe for concurrent use once
// constructed.
package agent
