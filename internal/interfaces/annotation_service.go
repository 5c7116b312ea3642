package interfaces

import (
	"context"

	"github.com/ternarybob/scriba/internal/models"
)

// AnnotationRequest carries everything needed to render a source document
// with field boxes and a legend panel.
type AnnotationRequest struct {
	// FilePath is the original source document (PDF or image)
	FilePath string

	// Items are the positioned OCR items for the document
	Items []models.OcrItem

	// FieldMapping assigns OCR item indexes to extracted field names;
	// mapped items get a field tag drawn above their box
	FieldMapping map[int]string

	// Legend lines rendered on the side panel of the first page
	Legend []string

	// Metadata carries authoritative page pixel dimensions when known
	Metadata *models.OcrMetadata

	// DPI used to rasterize PDF pages; zero selects the service default
	DPI int
}

// AnnotationService renders annotated output documents as PDF bytes.
type AnnotationService interface {
	Annotate(ctx context.Context, req *AnnotationRequest) ([]byte, error)
}
