package llm

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// GeminiService implements the LLMService interface using Google's
// Gemini API. Gemini enforces response schemas natively, so strict
// extraction requests are honored without a fallback mode.
type GeminiService struct {
	logger  arbor.ILogger
	client  *genai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

var _ interfaces.LLMService = (*GeminiService)(nil)

func newGeminiService(cfg *common.Config, model string, logger arbor.ILogger) (interfaces.LLMService, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, models.WrapError(models.ErrorKindConfiguration, "Failed to create Gemini client", err)
	}

	service := &GeminiService{
		logger:  logger,
		client:  client,
		model:   model,
		timeout: cfg.LLMTimeout(),
		limiter: newPacer(cfg.LLMRateLimit()),
	}

	logger.Debug().
		Str("model", model).
		Msg("Gemini LLM service initialized")

	return service, nil
}

func (s *GeminiService) Provider() string { return ProviderGemini }

func (s *GeminiService) Model() string { return s.model }

func (s *GeminiService) SupportsStrictSchema() bool { return true }

func (s *GeminiService) Chat(ctx context.Context, req *interfaces.ChatRequest) (*interfaces.ChatResponse, error) {
	if err := waitPacer(ctx, s.limiter); err != nil {
		return nil, models.NewBackendError("Request pacing interrupted", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = s.model
	}
	model = NormalizeModel(model)

	contents, systemText := convertMessagesToGemini(req.Messages)

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}
	if req.Seed != nil {
		config.Seed = genai.Ptr(int32(*req.Seed))
	}
	if len(req.Schema) > 0 {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = convertToGenaiSchema(req.Schema)
	} else if req.JSONMode {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := s.client.Models.GenerateContent(timeoutCtx, model, contents, config)
	if err != nil {
		return nil, models.NewBackendError("Gemini generation failed", err)
	}

	response := &interfaces.ChatResponse{Model: model}
	if resp.UsageMetadata != nil {
		response.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		response.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		text := ""
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				text += part.Text
			}
		}
		if text != "" {
			response.Content = text
			break
		}
	}
	return response, nil
}

// convertMessagesToGemini maps chat messages onto Gemini content turns.
// System prompts are returned separately for the SystemInstruction slot.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string) {
	contents := make([]*genai.Content, 0, len(messages))
	systemText := ""
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if systemText != "" {
				systemText += "\n"
			}
			systemText += msg.Content
		case "assistant":
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
			})
		}
	}
	return contents, systemText
}

// convertToGenaiSchema converts a JSON schema map into the genai.Schema
// structure. Type unions such as ["string", "null"] become the base type
// with Nullable set, which is how Gemini models optional fields.
func convertToGenaiSchema(schema map[string]interface{}) *genai.Schema {
	result := &genai.Schema{}

	typeName, nullable := schemaTypeName(schema["type"])
	switch typeName {
	case "object":
		result.Type = genai.TypeObject
	case "array":
		result.Type = genai.TypeArray
	case "string":
		result.Type = genai.TypeString
	case "number":
		result.Type = genai.TypeNumber
	case "integer":
		result.Type = genai.TypeInteger
	case "boolean":
		result.Type = genai.TypeBoolean
	}
	if nullable {
		result.Nullable = genai.Ptr(true)
	}

	if desc, ok := schema["description"].(string); ok {
		result.Description = desc
	}
	if enum, ok := schema["enum"].([]interface{}); ok {
		for _, v := range enum {
			if s, ok := v.(string); ok {
				result.Enum = append(result.Enum, s)
			}
		}
	}
	if required, ok := schema["required"].([]interface{}); ok {
		for _, v := range required {
			if s, ok := v.(string); ok {
				result.Required = append(result.Required, s)
			}
		}
	}
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		result.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]interface{}); ok {
				result.Properties[name] = convertToGenaiSchema(propMap)
			}
		}
	}
	if items, ok := schema["items"].(map[string]interface{}); ok {
		result.Items = convertToGenaiSchema(items)
	}

	return result
}

// schemaTypeName resolves a JSON schema "type" value that may be either
// a plain string or a union list produced by the strict transform.
func schemaTypeName(value interface{}) (string, bool) {
	switch t := value.(type) {
	case string:
		return t, false
	case []interface{}:
		name := ""
		nullable := false
		for _, entry := range t {
			s, ok := entry.(string)
			if !ok {
				continue
			}
			if s == "null" {
				nullable = true
				continue
			}
			if name == "" {
				name = s
			}
		}
		return name, nullable
	}
	return "", false
}
