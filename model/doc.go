// Package model defines the provider-agnostic abstractions for talking to
// language models inside agentmux.
//
// Core goals:
//   - One blocking Generate call per round; the generation loop owns iteration
//   - Normalize tool / function call representation (ToolDefinition, core.ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate deterministic fakes for tests (ScriptedModel)
//
// Providers (OpenAI-compatible endpoints such as Groq, Anthropic, Ollama)
// implement the Model interface in sub-packages so higher layers (agents,
// flows) stay decoupled from vendor SDKs. Provider failures are reported with
// the typed errors from package core (ProviderUnavailable, ProviderTimeout).
package model
