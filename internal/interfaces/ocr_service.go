package interfaces

import (
	"context"

	"github.com/ternarybob/scriba/internal/models"
)

// OCREngine recognizes text on a single page image. Implementations wrap
// word-level backends (tesseract, rapidocr); each recognized word carries
// a validated bounding box in image pixel coordinates.
type OCREngine interface {
	// Name identifies the engine in result metadata
	Name() string

	// Config reports the engine settings recorded in result metadata
	Config() map[string]interface{}

	// RecognizeImage runs OCR over one encoded image (PNG, JPEG, TIFF,
	// BMP) and returns the page text plus positioned words
	RecognizeImage(ctx context.Context, image []byte) (*models.OcrPage, error)
}

// OCRService turns a source document (PDF or image file) into the
// canonical OCR result: plain text, markdown, positioned items, and
// engine metadata.
type OCRService interface {
	Run(ctx context.Context, filePath string) (*models.OcrResult, error)
}
