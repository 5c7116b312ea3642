package ocr

import (
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// Engine names resolvable through the factory. Docling is not a word
// engine; Run routes it to the document-level flow before the factory is
// consulted.
const (
	EngineTesseract = "tesseract"
	EngineRapidOCR  = "rapidocr"
	EngineDocling   = "docling"
)

// buildEngine resolves a word-level OCR engine by name. Empty names
// default to rapidocr; unknown names fail immediately rather than falling
// back silently.
func buildEngine(name string, cfg *common.Config, logger arbor.ILogger) (interfaces.OCREngine, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = EngineRapidOCR
	}
	switch name {
	case EngineTesseract:
		return newTesseractEngine(cfg, logger), nil
	case EngineRapidOCR:
		return newRapidOCREngine(cfg, logger), nil
	}
	return nil, models.NewConfigurationError("Unknown OCR engine: %s. Supported engines: 'tesseract', 'rapidocr'", name)
}

// parseLangs splits the comma-separated language setting, dropping empty
// entries. An empty setting falls back to English.
func parseLangs(setting string) []string {
	langs := make([]string, 0, 3)
	for _, lang := range strings.Split(setting, ",") {
		if trimmed := strings.TrimSpace(lang); trimmed != "" {
			langs = append(langs, trimmed)
		}
	}
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return langs
}
