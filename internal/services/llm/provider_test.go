package llm

import (
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/ternarybob/scriba/internal/interfaces"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		model    string
		provider string
	}{
		{"ollama/llama3.1:8b", ProviderLocal},
		{"Ollama/mistral", ProviderLocal},
		{"gpt-4o-mini", ProviderOpenAI},
		{"gpt-4o", ProviderOpenAI},
		{"o3-mini", ProviderOpenAI},
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"claude/claude-3-5-haiku", ProviderClaude},
		{"anthropic/claude-3-opus", ProviderClaude},
		{"gemini-2.0-flash", ProviderGemini},
		{"gemini/gemini-1.5-pro", ProviderGemini},
		{"google/gemini-2.5-pro", ProviderGemini},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.provider, DetectProvider(tt.model), "model %q", tt.model)
	}
}

func TestNormalizeModel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"claude/claude-3-5-haiku", "claude-3-5-haiku"},
		{"anthropic/claude-3-opus", "claude-3-opus"},
		{"gemini/gemini-1.5-pro", "gemini-1.5-pro"},
		{"google/gemini-2.5-pro", "gemini-2.5-pro"},
		{"ollama/llama3.1:8b", "ollama/llama3.1:8b"},
		{"gpt-4o-mini", "gpt-4o-mini"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeModel(tt.in))
	}
}

func TestCandidateModels(t *testing.T) {
	t.Run("empty preference uses the fallback chain", func(t *testing.T) {
		candidates := CandidateModels("")
		assert.Equal(t, []string{"ollama/llama3.1:8b", "gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"}, candidates)
	})

	t.Run("preferred model goes first without duplication", func(t *testing.T) {
		candidates := CandidateModels("gpt-4o")
		assert.Equal(t, []string{"gpt-4o", "ollama/llama3.1:8b", "gpt-4o-mini", "gpt-3.5-turbo"}, candidates)
	})

	t.Run("unknown preferred model extends the chain", func(t *testing.T) {
		candidates := CandidateModels("claude-sonnet-4-20250514")
		require.Len(t, candidates, 5)
		assert.Equal(t, "claude-sonnet-4-20250514", candidates[0])
	})
}

func TestIsStrictRejection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"bad request api error", &openai.APIError{HTTPStatusCode: 400, Message: "invalid schema"}, true},
		{"strict named in message", errors.New("response_format strict is not supported by this model"), true},
		{"status code in message", errors.New("error, status code: 400, message: bad request"), true},
		{"rate limit", errors.New("rate limit exceeded"), false},
		{"server error", &openai.APIError{HTTPStatusCode: 500, Message: "internal error"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isStrictRejection(tt.err))
		})
	}
}

func TestConvertMessagesToGemini(t *testing.T) {
	contents, system := convertMessagesToGemini([]interfaces.Message{
		{Role: "system", Content: "You extract structured data."},
		{Role: "user", Content: "Extract this document."},
		{Role: "assistant", Content: "{}"},
	})

	assert.Equal(t, "You extract structured data.", system)
	require.Len(t, contents, 2)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	require.Len(t, contents[0].Parts, 1)
	assert.Equal(t, "Extract this document.", contents[0].Parts[0].Text)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
}

func TestConvertMessagesToClaude(t *testing.T) {
	params, system := convertMessagesToClaude([]interfaces.Message{
		{Role: "system", Content: "You extract structured data."},
		{Role: "user", Content: "Extract this document."},
	})

	assert.Equal(t, "You extract structured data.", system)
	require.Len(t, params, 1)
	assert.Equal(t, "user", string(params[0].Role))
}

func TestConvertToGenaiSchema(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"numero", "total"},
		"properties": map[string]interface{}{
			"numero": map[string]interface{}{"type": "string", "description": "Document number"},
			"total":  map[string]interface{}{"type": "number"},
			"notas":  map[string]interface{}{"type": []interface{}{"string", "null"}},
			"lineas": map[string]interface{}{
				"type": []interface{}{"array", "null"},
				"items": map[string]interface{}{
					"type":       "object",
					"required":   []interface{}{"concepto"},
					"properties": map[string]interface{}{"concepto": map[string]interface{}{"type": "string"}},
				},
			},
		},
	}

	out := convertToGenaiSchema(schema)

	assert.Equal(t, genai.TypeObject, out.Type)
	assert.Equal(t, []string{"numero", "total"}, out.Required)
	require.Contains(t, out.Properties, "numero")
	assert.Equal(t, genai.TypeString, out.Properties["numero"].Type)
	assert.Equal(t, "Document number", out.Properties["numero"].Description)
	assert.Nil(t, out.Properties["numero"].Nullable)

	notas := out.Properties["notas"]
	assert.Equal(t, genai.TypeString, notas.Type)
	require.NotNil(t, notas.Nullable)
	assert.True(t, *notas.Nullable)

	lineas := out.Properties["lineas"]
	assert.Equal(t, genai.TypeArray, lineas.Type)
	require.NotNil(t, lineas.Nullable)
	require.NotNil(t, lineas.Items)
	assert.Equal(t, genai.TypeObject, lineas.Items.Type)
	assert.Equal(t, []string{"concepto"}, lineas.Items.Required)
}
