package ocr

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// TesseractEngine recognizes words with a local Tesseract installation.
// Clients are not safe for concurrent use, so each page gets its own.
type TesseractEngine struct {
	logger arbor.ILogger
	langs  []string
	oem    int
	psm    int
	dpi    int
}

var _ interfaces.OCREngine = (*TesseractEngine)(nil)

func newTesseractEngine(cfg *common.Config, logger arbor.ILogger) *TesseractEngine {
	return &TesseractEngine{
		logger: logger,
		langs:  parseLangs(cfg.OCR.Langs),
		oem:    cfg.OCR.TesseractOEM,
		psm:    cfg.OCR.TesseractPSM,
		dpi:    cfg.OCR.DPI,
	}
}

func (e *TesseractEngine) Name() string { return EngineTesseract }

func (e *TesseractEngine) Config() map[string]interface{} {
	return map[string]interface{}{
		"langs":         e.langs,
		"tesseract_oem": e.oem,
		"tesseract_psm": e.psm,
	}
}

func (e *TesseractEngine) RecognizeImage(ctx context.Context, img []byte) (*models.OcrPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewBackendError("Recognition cancelled", err)
	}
	start := time.Now()

	width, height, err := imageDims(img)
	if err != nil {
		return nil, models.NewValidationError("Failed to decode page image: %v", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(img); err != nil {
		return nil, models.NewBackendError("Tesseract rejected the page image", err)
	}
	if err := client.SetLanguage(e.langs...); err != nil {
		return nil, models.NewBackendError("Tesseract language setup failed", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(e.psm)); err != nil {
		return nil, models.NewBackendError("Tesseract page segmentation setup failed", err)
	}
	if e.dpi > 0 {
		if err := client.SetVariable("user_defined_dpi", strconv.Itoa(e.dpi)); err != nil {
			return nil, models.NewBackendError("Tesseract DPI setup failed", err)
		}
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, models.NewBackendError("Tesseract word recognition failed", err)
	}

	words := make([]models.OcrWord, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		bbox := [4]int{box.Box.Min.X, box.Box.Min.Y, box.Box.Max.X, box.Box.Max.Y}
		if err := models.ValidateBBox(bbox, width, height); err != nil {
			return nil, err
		}
		words = append(words, models.OcrWord{Text: text, BBox: bbox, Confidence: box.Confidence})
	}

	// Whole-image pass reads more reliably than joining word tokens.
	text, err := client.Text()
	if err != nil {
		return nil, models.NewBackendError("Tesseract text recognition failed", err)
	}

	return &models.OcrPage{
		Text:       text,
		Words:      words,
		Width:      width,
		Height:     height,
		RuntimeSec: time.Since(start).Seconds(),
	}, nil
}
