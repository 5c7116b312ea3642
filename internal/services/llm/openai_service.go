package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// OpenAIService implements the LLMService interface against the OpenAI API
// or any endpoint speaking its chat completion protocol.
type OpenAIService struct {
	logger  arbor.ILogger
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

var _ interfaces.LLMService = (*OpenAIService)(nil)

// schemaPayload adapts a schema map to the response format's marshaler
// contract.
type schemaPayload map[string]interface{}

func (p schemaPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(p))
}

func newOpenAIService(cfg *common.Config, model string, logger arbor.ILogger) (interfaces.LLMService, error) {
	clientConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAI.BaseURL
	}

	service := &OpenAIService{
		logger:  logger,
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: cfg.LLMTimeout(),
		limiter: newPacer(cfg.LLMRateLimit()),
	}

	logger.Debug().
		Str("model", model).
		Dur("timeout", service.timeout).
		Msg("OpenAI LLM service initialized")

	return service, nil
}

func (s *OpenAIService) Provider() string { return ProviderOpenAI }

func (s *OpenAIService) Model() string { return s.model }

func (s *OpenAIService) SupportsStrictSchema() bool { return true }

// Chat performs one completion request. A strict schema request the
// backend refuses comes back wrapping models.ErrStrictSchemaRejected so
// the caller can retry in plain JSON mode.
func (s *OpenAIService) Chat(ctx context.Context, req *interfaces.ChatRequest) (*interfaces.ChatResponse, error) {
	if err := waitPacer(ctx, s.limiter); err != nil {
		return nil, models.NewBackendError("Request pacing interrupted", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = s.model
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertMessagesToOpenAI(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.Seed != nil {
		chatReq.Seed = req.Seed
	}

	strict := len(req.Schema) > 0
	switch {
	case strict:
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.SchemaName,
				Schema: schemaPayload(req.Schema),
				Strict: true,
			},
		}
	case req.JSONMode:
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := s.client.CreateChatCompletion(timeoutCtx, chatReq)
	if err != nil {
		if strict && isStrictRejection(err) {
			return nil, models.WrapError(models.ErrorKindBackend,
				fmt.Sprintf("Strict schema mode rejected: %v", err),
				fmt.Errorf("%w: %v", models.ErrStrictSchemaRejected, err))
		}
		return nil, models.NewBackendError("Chat completion failed", err)
	}

	response := &interfaces.ChatResponse{
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) > 0 {
		response.Content = resp.Choices[0].Message.Content
	}
	return response, nil
}

func convertMessagesToOpenAI(messages []interfaces.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return out
}

// isStrictRejection reports whether the backend refused the strict schema
// response format: a 400-class API error or a message naming strict mode.
func isStrictRejection(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusBadRequest {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "strict") || strings.Contains(msg, "400")
}
