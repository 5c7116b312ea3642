package interfaces

import (
	"context"

	"github.com/ternarybob/scriba/internal/models"
)

// ExtractionService runs the schema-constrained completion loop for one
// document type over already-extracted text and returns the validated
// record in JSON object form.
type ExtractionService interface {
	Extract(ctx context.Context, config *models.DocumentTypeConfig, text string) (map[string]interface{}, error)
}
