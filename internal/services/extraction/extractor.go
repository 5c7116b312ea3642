package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// extractAttempts bounds the completion/parse retry loop.
const extractAttempts = 3

// retryBaseDelay grows linearly per attempt: 0.6s after the first failure,
// 1.2s after the second.
const retryBaseDelay = 600 * time.Millisecond

// Service runs the schema-constrained completion loop against a chat
// backend and validates every response against the document type's record.
type Service struct {
	config *common.Config
	llm    interfaces.LLMService
	logger arbor.ILogger
}

var _ interfaces.ExtractionService = (*Service)(nil)

// NewService creates the extraction service bound to one chat backend.
func NewService(config *common.Config, llm interfaces.LLMService, logger arbor.ILogger) interfaces.ExtractionService {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{
		config: config,
		llm:    llm,
		logger: logger,
	}
}

// Extract performs up to three completion attempts and returns the first
// response that parses and validates as the document type's record. Strict
// schema mode is used when both the configuration and the backend allow
// it; a backend that rejects the strict schema is retried in plain JSON
// object mode within the same attempt.
func (s *Service) Extract(ctx context.Context, docConfig *models.DocumentTypeConfig, text string) (map[string]interface{}, error) {
	if docConfig == nil {
		return nil, models.NewValidationError("document type config is required")
	}

	text = docConfig.ApplyTextLimit(text)

	var strictSchema map[string]interface{}
	if s.config.LLM.JSONStrict && s.llm.SupportsStrictSchema() {
		strictSchema = TransformSchema(docConfig.Schema.JSONSchema())
	}

	messages := []interfaces.Message{
		{Role: "system", Content: docConfig.SystemPrompt},
		{Role: "user", Content: strings.ReplaceAll(docConfig.UserTemplate, "{text}", text)},
	}

	rawResponses := make([]string, 0, extractAttempts)
	var lastErr error

	for attempt := 0; attempt < extractAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, models.NewBackendError("Extraction cancelled", err)
		}

		content, err := s.complete(ctx, docConfig, messages, strictSchema)
		if err != nil {
			lastErr = err
			s.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Completion request failed")
			s.waitBeforeRetry(ctx, attempt)
			continue
		}
		rawResponses = append(rawResponses, content)

		if content == "" {
			lastErr = models.NewBackendError("Empty response", nil)
			s.waitBeforeRetry(ctx, attempt)
			continue
		}

		report, err := parseRecord(content, docConfig)
		if err == nil {
			return report, nil
		}
		lastErr = err
		s.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Str("doc_type", docConfig.DocType).
			Msg("Response failed validation")
		s.waitBeforeRetry(ctx, attempt)
	}

	s.writeDebugResponses(rawResponses)

	message := fmt.Sprintf("Failed after %d attempts: %v", len(rawResponses), lastErr)
	if len(rawResponses) > 0 {
		message += "\nLast response: " + headRunes(rawResponses[len(rawResponses)-1], 300)
	}
	return nil, models.WrapError(models.KindOf(lastErr), message, lastErr)
}

// complete performs one request, falling back to plain JSON object mode
// when the backend rejects the strict schema.
func (s *Service) complete(ctx context.Context, docConfig *models.DocumentTypeConfig, messages []interfaces.Message, strictSchema map[string]interface{}) (string, error) {
	req := &interfaces.ChatRequest{
		Messages:    messages,
		Temperature: s.config.LLM.Temperature,
		MaxTokens:   s.config.LLM.MaxOutputTokens,
	}
	if s.config.LLM.Seed >= 0 && s.llm.Provider() != "local" {
		seed := s.config.LLM.Seed
		req.Seed = &seed
	}

	if strictSchema != nil {
		req.SchemaName = docConfig.Schema.Name
		req.Schema = strictSchema
		resp, err := s.llm.Chat(ctx, req)
		if err == nil {
			return resp.Content, nil
		}
		if !errors.Is(err, models.ErrStrictSchemaRejected) {
			return "", err
		}
		s.logger.Warn().Str("model", s.llm.Model()).Msg("Strict mode failed, using json_object mode")
		req.SchemaName = ""
		req.Schema = nil
	}

	req.JSONMode = true
	resp, err := s.llm.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// waitBeforeRetry sleeps the linear backoff, unless this was the last
// attempt or ctx ends first.
func (s *Service) waitBeforeRetry(ctx context.Context, attempt int) {
	if attempt >= extractAttempts-1 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(retryBaseDelay * time.Duration(attempt+1)):
	}
}

// writeDebugResponses dumps the raw responses of a failed run for offline
// inspection when a debug directory is configured.
func (s *Service) writeDebugResponses(responses []string) {
	dir := s.config.Output.DebugDir
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to create debug directory")
		return
	}
	data, err := json.MarshalIndent(responses, "", "  ")
	if err != nil {
		return
	}
	path := filepath.Join(dir, "llm_responses.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to write debug responses")
	}
}

// headRunes returns at most n runes of s.
func headRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
