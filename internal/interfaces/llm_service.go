package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string `json:"role"`

	// Content contains the text content of the message
	Content string `json:"content"`
}

// ChatRequest is one completion request, optionally constrained to a JSON
// schema. When Schema is set the provider asks the backend for strict
// schema-conforming output; JSONMode instead requests any JSON object and
// is the fallback for backends that reject strict schemas.
type ChatRequest struct {
	// Model overrides the service's resolved model when non-empty
	Model string `json:"model,omitempty"`

	// Messages is the conversation to complete
	Messages []Message `json:"messages"`

	// Sampling controls
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Seed        *int    `json:"seed,omitempty"`

	// SchemaName labels the schema in strict mode requests
	SchemaName string `json:"schema_name,omitempty"`

	// Schema is the JSON schema the response must conform to
	Schema map[string]interface{} `json:"schema,omitempty"`

	// JSONMode requests a plain JSON object without schema enforcement
	JSONMode bool `json:"json_mode,omitempty"`
}

// ChatResponse is the completion returned by a provider
type ChatResponse struct {
	// Content is the raw text of the first choice
	Content string `json:"content"`

	// Model is the model that served the request
	Model string `json:"model"`

	// Token accounting, zero when the backend does not report it
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
}

// LLMService is a chat completion backend. Implementations cover hosted
// APIs (OpenAI, Gemini, Claude) and OpenAI-compatible local servers.
//
// Chat returns models.ErrStrictSchemaRejected (wrapped) when the backend
// refuses a strict schema request, so callers can retry with JSONMode.
type LLMService interface {
	// Provider names the backend family: "openai", "gemini", "claude", "local"
	Provider() string

	// Model returns the resolved default model for this service
	Model() string

	// SupportsStrictSchema reports whether the backend accepts strict
	// JSON schema response formats
	SupportsStrictSchema() bool

	// Chat performs one completion request
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
