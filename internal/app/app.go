// -----------------------------------------------------------------------
// Last Modified: Friday, 21st August 2026 10:42:17 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/services/annotate"
	"github.com/ternarybob/scriba/internal/services/documents"
	"github.com/ternarybob/scriba/internal/services/extraction"
	"github.com/ternarybob/scriba/internal/services/llm"
	"github.com/ternarybob/scriba/internal/services/ocr"
	"github.com/ternarybob/scriba/internal/services/registry"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Document type registry
	Registry interfaces.DocumentRegistry

	// LLM service (OpenAI, Gemini, Claude, or local)
	LLMService interfaces.LLMService

	// Pipeline services
	OCRService        interfaces.OCRService
	ExtractionService interfaces.ExtractionService
	AnnotationService interfaces.AnnotationService

	// Document service (full pipeline entrypoint)
	DocumentService interfaces.DocumentService
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize document type registry
	app.Registry = registry.NewRegistry(logger)
	app.Logger.Debug().
		Int("doc_types", len(app.Registry.Types())).
		Msg("Document registry initialized")

	// Initialize LLM service from the configured model
	llmService, err := llm.NewLLMService(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	app.LLMService = llmService
	app.Logger.Debug().
		Str("provider", llmService.Provider()).
		Str("model", llmService.Model()).
		Msg("LLM service initialized")

	// Initialize OCR service
	app.OCRService = ocr.NewService(cfg, logger)
	app.Logger.Debug().
		Str("engine", cfg.OCR.Engine).
		Msg("OCR service initialized")

	// Initialize extraction service
	app.ExtractionService = extraction.NewService(cfg, llmService, logger)

	// Initialize annotation service
	app.AnnotationService = annotate.NewService(cfg, logger)

	// Initialize document service (depends on everything above)
	app.DocumentService = documents.NewService(
		cfg,
		app.Registry,
		app.OCRService,
		app.ExtractionService,
		app.AnnotationService,
		llmService,
		logger,
	)

	logger.Info().
		Str("model", llmService.Model()).
		Str("ocr_engine", cfg.OCR.Engine).
		Msg("Application initialization complete")

	return app, nil
}
