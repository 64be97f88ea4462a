// Package model defines the minimal text-completion contract the planning
// agents depend on, decoupling them from any concrete LLM provider. Vendor
// adapters live in the subpackages model/openai and model/anthropic.
package model

import "context"

// Request is a single-turn completion request.
type Request struct {
	System      string  // system instructions, optional
	Prompt      string  // user prompt
	Temperature float64 // sampling temperature
	MaxTokens   int64   // response token budget
}

// Completer produces a text completion for a request. Implementations must
// honor ctx cancellation.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Info describes a model implementation for logging and monitoring.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "groq", ...
}
