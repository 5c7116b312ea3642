package llm

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// ClaudeService implements the LLMService interface using Anthropic's
// Messages API. The API has no schema-constrained response format, so
// extraction relies on prompt instructions and the JSON parser.
type ClaudeService struct {
	logger  arbor.ILogger
	client  anthropic.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

var _ interfaces.LLMService = (*ClaudeService)(nil)

func newClaudeService(cfg *common.Config, model string, logger arbor.ILogger) (interfaces.LLMService, error) {
	service := &ClaudeService{
		logger:  logger,
		client:  anthropic.NewClient(option.WithAPIKey(cfg.Claude.APIKey)),
		model:   model,
		timeout: cfg.LLMTimeout(),
		limiter: newPacer(cfg.LLMRateLimit()),
	}

	logger.Debug().
		Str("model", model).
		Msg("Claude LLM service initialized")

	return service, nil
}

func (s *ClaudeService) Provider() string { return ProviderClaude }

func (s *ClaudeService) Model() string { return s.model }

func (s *ClaudeService) SupportsStrictSchema() bool { return false }

func (s *ClaudeService) Chat(ctx context.Context, req *interfaces.ChatRequest) (*interfaces.ChatResponse, error) {
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

	messages, system := convertMessagesToClaude(req.Messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(req.MaxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return nil, models.NewBackendError("Claude message request failed", err)
	}

	response := &interfaces.ChatResponse{
		Model:            model,
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.Content += block.Text
		}
	}
	return response, nil
}

// convertMessagesToClaude maps chat messages onto Anthropic message
// params. System prompts are returned separately for the system slot.
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string) {
	params := make([]anthropic.MessageParam, 0, len(messages))
	system := ""
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if system != "" {
				system += "\n"
			}
			system += msg.Content
		case "assistant":
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return params, system
}
