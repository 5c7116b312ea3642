package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

const rapidOCRTimeout = 120 * time.Second

// RapidOCREngine recognizes text through a RapidOCR serving endpoint.
// The server takes an image upload and returns recognized spans as
// quadrilateral polygons with scores; an unreachable endpoint fails on
// first use, not at construction.
type RapidOCREngine struct {
	logger  arbor.ILogger
	client  *http.Client
	baseURL string
	langs   []string
}

var _ interfaces.OCREngine = (*RapidOCREngine)(nil)

// rapidOCRSpan is one recognized span in the serving response. Scores
// arrive as strings from some server versions, so they decode leniently.
type rapidOCRSpan struct {
	RecTxt  string          `json:"rec_txt"`
	DtBoxes [][]float64     `json:"dt_boxes"`
	Score   json.RawMessage `json:"score"`
}

func newRapidOCREngine(cfg *common.Config, logger arbor.ILogger) *RapidOCREngine {
	return &RapidOCREngine{
		logger:  logger,
		client:  &http.Client{Timeout: rapidOCRTimeout},
		baseURL: strings.TrimRight(cfg.OCR.RapidOCRURL, "/"),
		langs:   parseLangs(cfg.OCR.Langs),
	}
}

func (e *RapidOCREngine) Name() string { return EngineRapidOCR }

func (e *RapidOCREngine) Config() map[string]interface{} {
	return map[string]interface{}{
		"langs": e.langs,
	}
}

func (e *RapidOCREngine) RecognizeImage(ctx context.Context, img []byte) (*models.OcrPage, error) {
	start := time.Now()

	width, height, err := imageDims(img)
	if err != nil {
		return nil, models.NewValidationError("Failed to decode page image: %v", err)
	}

	spans, err := e.post(ctx, img)
	if err != nil {
		return nil, err
	}

	words := make([]models.OcrWord, 0, len(spans))
	texts := make([]string, 0, len(spans))
	for _, span := range spans {
		text := strings.TrimSpace(span.RecTxt)
		if text == "" {
			continue
		}
		bbox, ok := polygonBBox(span.DtBoxes)
		if !ok {
			continue
		}
		if err := models.ValidateBBox(bbox, width, height); err != nil {
			return nil, err
		}
		words = append(words, models.OcrWord{Text: text, BBox: bbox, Confidence: parseScore(span.Score)})
		texts = append(texts, text)
	}

	// The server returns line-level spans, so newlines restore the layout.
	return &models.OcrPage{
		Text:       strings.Join(texts, "\n"),
		Words:      words,
		Width:      width,
		Height:     height,
		RuntimeSec: time.Since(start).Seconds(),
	}, nil
}

func (e *RapidOCREngine) post(ctx context.Context, img []byte) ([]rapidOCRSpan, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image_file", "page.png")
	if err != nil {
		return nil, models.NewBackendError("Failed to build OCR request", err)
	}
	if _, err := part.Write(img); err != nil {
		return nil, models.NewBackendError("Failed to build OCR request", err)
	}
	if err := writer.Close(); err != nil {
		return nil, models.NewBackendError("Failed to build OCR request", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/ocr", &body)
	if err != nil {
		return nil, models.NewBackendError("Failed to build OCR request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, models.NewBackendError("RapidOCR request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewBackendError("Failed to read RapidOCR response", err)
	}
	if resp.StatusCode != http.StatusOK {
		e.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("response", string(payload)).
			Msg("RapidOCR server returned error")
		return nil, models.NewBackendError(fmt.Sprintf("RapidOCR returned status %d", resp.StatusCode), nil)
	}

	var indexed map[string]rapidOCRSpan
	if err := json.Unmarshal(payload, &indexed); err != nil {
		return nil, models.NewBackendError("RapidOCR response is not valid JSON", err)
	}

	// Span keys are stringified indexes; restore detection order.
	keys := make([]int, 0, len(indexed))
	byIndex := make(map[int]rapidOCRSpan, len(indexed))
	for key, span := range indexed {
		idx, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		keys = append(keys, idx)
		byIndex[idx] = span
	}
	sort.Ints(keys)

	spans := make([]rapidOCRSpan, 0, len(keys))
	for _, idx := range keys {
		spans = append(spans, byIndex[idx])
	}
	return spans, nil
}

// polygonBBox collapses a quadrilateral polygon into the axis-aligned
// (x0, y0, x1, y1) box the word contract requires.
func polygonBBox(points [][]float64) ([4]int, bool) {
	first := true
	var minX, minY, maxX, maxY float64
	for _, p := range points {
		if len(p) < 2 {
			continue
		}
		if first {
			minX, minY, maxX, maxY = p[0], p[1], p[0], p[1]
			first = false
			continue
		}
		minX = math.Min(minX, p[0])
		minY = math.Min(minY, p[1])
		maxX = math.Max(maxX, p[0])
		maxY = math.Max(maxY, p[1])
	}
	if first {
		return [4]int{}, false
	}
	return [4]int{int(minX), int(minY), int(maxX), int(maxY)}, true
}

// parseScore reads a confidence that may be a number or a quoted string.
func parseScore(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return 0
}
