// -----------------------------------------------------------------------
// Last Modified: Friday, 21st August 2026 11:18:55 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package documents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
	"github.com/ternarybob/scriba/internal/services/matcher"
	"github.com/ternarybob/scriba/internal/services/registry"
)

// Service is the extraction pipeline entrypoint. One call runs OCR over
// the source file, extracts the typed record through the chat backend,
// matches record values back to OCR positions, and renders the annotated
// PDF.
type Service struct {
	config    *common.Config
	registry  interfaces.DocumentRegistry
	ocr       interfaces.OCRService
	extractor interfaces.ExtractionService
	annotator interfaces.AnnotationService
	llm       interfaces.LLMService
	logger    arbor.ILogger
}

var _ interfaces.DocumentService = (*Service)(nil)

func NewService(
	config *common.Config,
	docRegistry interfaces.DocumentRegistry,
	ocrService interfaces.OCRService,
	extractor interfaces.ExtractionService,
	annotator interfaces.AnnotationService,
	llm interfaces.LLMService,
	logger arbor.ILogger,
) interfaces.DocumentService {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{
		config:    config,
		registry:  docRegistry,
		ocr:       ocrService,
		extractor: extractor,
		annotator: annotator,
		llm:       llm,
		logger:    logger,
	}
}

// ExtractDocument runs the full pipeline over a PDF or image file.
func (s *Service) ExtractDocument(ctx context.Context, filePath, docType string) (*models.ExtractionResult, error) {
	if filePath == "" {
		return nil, models.NewValidationError("File does not exist or is invalid.")
	}
	if _, err := os.Stat(filePath); err != nil {
		return nil, models.NewValidationError("File does not exist or is invalid.")
	}
	if strings.TrimSpace(docType) == "" {
		return nil, models.NewValidationError("doc_type cannot be empty.")
	}
	if err := s.rejectLocalModels(); err != nil {
		return nil, err
	}

	docType = strings.TrimSpace(docType)
	docConfig, err := s.registry.GetConfig(docType)
	if err != nil {
		return nil, err
	}
	if docConfig.BuildLegend == nil {
		return nil, models.NewValidationError("Document type '%s' does not have legend generation configured", docType)
	}

	if err := s.validatePDF(filePath); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("doc_type", docType).
		Str("file", filepath.Base(filePath)).
		Msg("Extracting document")

	ocrResult, err := s.ocr.Run(ctx, filePath)
	if err != nil {
		return nil, wrapPipelineError(err)
	}

	text := strings.TrimSpace(ocrResult.Text)
	if text == "" {
		return nil, models.NewValidationError("No text could be extracted from the document.")
	}

	s.logger.Debug().
		Int("text_len", len(text)).
		Int("ocr_items", len(ocrResult.Items)).
		Msg("OCR complete")

	report, err := s.extractor.Extract(ctx, docConfig, text)
	if err != nil {
		return nil, wrapPipelineError(err)
	}

	fieldMapping := matcher.MapFields(docConfig.Schema, report, ocrResult.Items)

	legend := docConfig.BuildLegend(report)
	if s.config.Output.RedactOutput {
		if docConfig.Redact != nil {
			legend = docConfig.Redact(legend)
		} else {
			legend = registry.DefaultRedact(legend)
		}
	}

	annotated, err := s.annotator.Annotate(ctx, &interfaces.AnnotationRequest{
		FilePath:     filePath,
		Items:        ocrResult.Items,
		FieldMapping: fieldMapping,
		Legend:       legend,
		Metadata:     ocrResult.Metadata,
	})
	if err != nil {
		return nil, wrapPipelineError(err)
	}

	result := &models.ExtractionResult{
		RunID:        common.NewRunID(),
		DocType:      docType,
		Model:        s.llm.Model(),
		Report:       report,
		AnnotatedPDF: annotated,
		OCRMetadata:  ocrResult.Metadata,
	}

	s.logger.Info().
		Str("run_id", result.RunID).
		Int("fields", len(report)).
		Int("matched_items", len(fieldMapping)).
		Int("pdf_size", len(annotated)).
		Msg("Document extracted")

	return result, nil
}

// ExtractFromText extracts the typed record straight from text. No file is
// read and no annotation is rendered.
func (s *Service) ExtractFromText(ctx context.Context, text, docType string) (*models.ExtractionResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.NewValidationError("Text cannot be empty.")
	}
	if strings.TrimSpace(docType) == "" {
		return nil, models.NewValidationError("doc_type cannot be empty.")
	}
	if err := s.rejectLocalModels(); err != nil {
		return nil, err
	}

	docType = strings.TrimSpace(docType)
	docConfig, err := s.registry.GetConfig(docType)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("doc_type", docType).
		Int("text_len", len(text)).
		Msg("Extracting from text")

	report, err := s.extractor.Extract(ctx, docConfig, strings.TrimSpace(text))
	if err != nil {
		return nil, wrapPipelineError(err)
	}

	result := &models.ExtractionResult{
		RunID:   common.NewRunID(),
		DocType: docType,
		Model:   s.llm.Model(),
		Report:  report,
	}

	s.logger.Info().
		Str("run_id", result.RunID).
		Int("fields", len(report)).
		Msg("Text extracted")

	return result, nil
}

// rejectLocalModels keeps local chat backends out of document extraction,
// which depends on schema-constrained output the local runtimes do not
// honor reliably. The check runs before any OCR or LLM work.
func (s *Service) rejectLocalModels() error {
	hint := strings.TrimSpace(s.config.LLM.Model)
	if strings.HasPrefix(hint, "ollama/") || strings.HasPrefix(s.llm.Model(), "ollama/") {
		return models.NewConfigurationError("Ollama models are not available for document extraction. Please use an OpenAI model (e.g., 'gpt-4o-mini', 'gpt-4o').")
	}
	return nil
}

// validatePDF rejects structurally broken PDFs before the OCR pass and
// enforces the configured page cap.
func (s *Service) validatePDF(filePath string) error {
	if !strings.EqualFold(filepath.Ext(filePath), ".pdf") {
		return nil
	}
	if err := api.ValidateFile(filePath, nil); err != nil {
		return models.NewValidationError("Invalid PDF structure: %v", err)
	}
	if limit := s.config.OCR.MaxPages; limit > 0 {
		pages, err := api.PageCountFile(filePath)
		if err != nil {
			return models.NewValidationError("Failed to read PDF page count: %v", err)
		}
		if pages > limit {
			return models.NewValidationError("Document has %d pages, exceeding the configured limit of %d", pages, limit)
		}
	}
	return nil
}

// wrapPipelineError surfaces validation and configuration problems
// verbatim and reports everything else as a pipeline failure with the
// cause attached.
func wrapPipelineError(err error) error {
	kind := models.KindOf(err)
	if kind == models.ErrorKindValidation || kind == models.ErrorKindConfiguration {
		return err
	}
	return models.WrapError(kind, fmt.Sprintf("Extraction failed: %v", err), err)
}
