package llm

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// NewLLMService resolves the first usable chat backend for the configured
// model preference and returns its service.
//
// Resolution walks the candidate chain (configured model, then the fallback
// list): local candidates need the local endpoint enabled, hosted
// candidates need their provider's API key. When nothing resolves the
// error is a configuration error naming the two easiest fixes.
func NewLLMService(cfg *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	if logger == nil {
		logger = common.GetLogger()
	}

	for _, model := range CandidateModels(cfg.LLM.Model) {
		switch DetectProvider(model) {
		case ProviderLocal:
			if cfg.LLM.DisableOllama {
				continue
			}
			return newLocalService(cfg, model, logger)

		case ProviderGemini:
			if cfg.Gemini.APIKey == "" {
				continue
			}
			return newGeminiService(cfg, NormalizeModel(model), logger)

		case ProviderClaude:
			if cfg.Claude.APIKey == "" {
				continue
			}
			return newClaudeService(cfg, NormalizeModel(model), logger)

		default:
			if cfg.OpenAI.APIKey == "" {
				continue
			}
			return newOpenAIService(cfg, model, logger)
		}
	}

	return nil, models.NewConfigurationError("No LLM providers configured. Enable Ollama locally or set OPENAI_API_KEY.")
}
