package llm

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// LocalService implements the LLMService interface against an
// OpenAI-compatible local server such as Ollama. Local backends do not
// accept strict schema response formats, so callers fall back to plain
// JSON object mode.
type LocalService struct {
	logger  arbor.ILogger
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

var _ interfaces.LLMService = (*LocalService)(nil)

func newLocalService(cfg *common.Config, model string, logger arbor.ILogger) (interfaces.LLMService, error) {
	baseURL := strings.TrimRight(cfg.Ollama.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}

	// Ollama ignores the key but the client requires one.
	clientConfig := openai.DefaultConfig("ollama")
	clientConfig.BaseURL = baseURL

	service := &LocalService{
		logger:  logger,
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: cfg.LLMTimeout(),
		limiter: newPacer(cfg.LLMRateLimit()),
	}

	logger.Debug().
		Str("model", model).
		Str("base_url", baseURL).
		Msg("Local LLM service initialized")

	return service, nil
}

func (s *LocalService) Provider() string { return ProviderLocal }

func (s *LocalService) Model() string { return s.model }

func (s *LocalService) SupportsStrictSchema() bool { return false }

// Chat performs one completion request against the local server. The
// "ollama/" routing prefix is stripped from the model name at the wire.
func (s *LocalService) Chat(ctx context.Context, req *interfaces.ChatRequest) (*interfaces.ChatResponse, error) {
	if err := waitPacer(ctx, s.limiter); err != nil {
		return nil, models.NewBackendError("Request pacing interrupted", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = s.model
	}
	model = strings.TrimPrefix(model, "ollama/")

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertMessagesToOpenAI(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode || len(req.Schema) > 0 {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := s.client.CreateChatCompletion(timeoutCtx, chatReq)
	if err != nil {
		return nil, models.NewBackendError("Local chat completion failed", err)
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
