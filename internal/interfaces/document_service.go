package interfaces

import (
	"context"

	"github.com/ternarybob/scriba/internal/models"
)

// DocumentService is the extraction pipeline entrypoint: OCR, LLM
// extraction, field matching, and annotation behind one call.
type DocumentService interface {
	// ExtractDocument runs the full pipeline over a source file and
	// returns the extracted record plus the annotated PDF
	ExtractDocument(ctx context.Context, filePath, docType string) (*models.ExtractionResult, error)

	// ExtractFromText skips OCR and extracts directly from text; the
	// result carries no annotated PDF
	ExtractFromText(ctx context.Context, text, docType string) (*models.ExtractionResult, error)
}

// DocumentRegistry resolves document type keys to their extraction
// configuration.
type DocumentRegistry interface {
	// GetConfig returns the configuration registered under docType
	GetConfig(docType string) (*models.DocumentTypeConfig, error)

	// Types lists the registered document type keys
	Types() []string
}
