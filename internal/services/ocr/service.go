package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/gen2brain/go-fitz"
	"github.com/ternarybob/arbor"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// Service turns a source document into the canonical OCR result. Word
// engines see one rasterized image per page; the docling strategy hands
// the whole file to the layout service instead.
type Service struct {
	config *common.Config
	logger arbor.ILogger
}

var _ interfaces.OCRService = (*Service)(nil)

func NewService(config *common.Config, logger arbor.ILogger) interfaces.OCRService {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{config: config, logger: logger}
}

func (s *Service) Run(ctx context.Context, filePath string) (*models.OcrResult, error) {
	engineName := strings.ToLower(strings.TrimSpace(s.config.OCR.Engine))
	if engineName == "" {
		engineName = EngineRapidOCR
	}

	s.logger.Info().
		Str("engine", engineName).
		Str("file", filepath.Base(filePath)).
		Msg("Running OCR")

	if engineName == EngineDocling {
		if err := s.enforcePageCap(filePath); err != nil {
			return nil, err
		}
		return newDoclingClient(s.config, s.logger).Convert(ctx, filePath)
	}
	return s.runWordEngine(ctx, engineName, filePath)
}

func (s *Service) runWordEngine(ctx context.Context, engineName, filePath string) (*models.OcrResult, error) {
	engine, err := buildEngine(engineName, s.config, s.logger)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	var pageImages [][]byte
	if isPDFPath(filePath) {
		pageImages, err = s.rasterizePDF(filePath)
	} else {
		pageImages, err = loadSingleImage(filePath)
	}
	if err != nil {
		return nil, err
	}

	pages := make([]*models.OcrPage, 0, len(pageImages))
	for idx, img := range pageImages {
		select {
		case <-ctx.Done():
			return nil, models.NewBackendError("OCR cancelled", ctx.Err())
		default:
		}

		page, err := engine.RecognizeImage(ctx, img)
		if err != nil {
			return nil, err
		}
		page.PageIndex = idx
		pages = append(pages, page)

		s.logger.Debug().
			Int("page", idx).
			Int("words", len(page.Words)).
			Msg("Page recognized")
	}

	return assembleResult(engine, pages, time.Since(start).Seconds()), nil
}

// rasterizePDF renders each PDF page to a PNG at the configured DPI.
func (s *Service) rasterizePDF(filePath string) ([][]byte, error) {
	doc, err := fitz.New(filePath)
	if err != nil {
		return nil, models.NewValidationError("File does not exist or is invalid.")
	}
	defer doc.Close()

	numPages := doc.NumPage()
	if limit := s.config.OCR.MaxPages; limit > 0 && numPages > limit {
		return nil, models.NewValidationError("Document has %d pages, exceeding the configured limit of %d", numPages, limit)
	}

	dpi := s.config.OCR.DPI
	if dpi <= 0 {
		dpi = 300
	}

	images := make([][]byte, 0, numPages)
	for i := 0; i < numPages; i++ {
		img, err := doc.ImageDPI(i, float64(dpi))
		if err != nil {
			return nil, models.NewValidationError("Failed to render page %d: %v", i+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, models.NewRenderingError("Failed to encode page %d: %v", i+1, err)
		}
		images = append(images, buf.Bytes())
	}
	return images, nil
}

// enforcePageCap applies the configured page limit to PDF inputs headed
// for the layout service, which otherwise converts the whole file.
func (s *Service) enforcePageCap(filePath string) error {
	if s.config.OCR.MaxPages <= 0 || !isPDFPath(filePath) {
		return nil
	}
	doc, err := fitz.New(filePath)
	if err != nil {
		return models.NewValidationError("File does not exist or is invalid.")
	}
	defer doc.Close()
	if n := doc.NumPage(); n > s.config.OCR.MaxPages {
		return models.NewValidationError("Document has %d pages, exceeding the configured limit of %d", n, s.config.OCR.MaxPages)
	}
	return nil
}

func loadSingleImage(filePath string) ([][]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, models.NewValidationError("File does not exist or is invalid.")
	}
	return [][]byte{data}, nil
}

// assembleResult flattens per-page recognitions into the pipeline-level
// aggregate: words become 1-based page items with dual-key top-left boxes.
func assembleResult(engine interfaces.OCREngine, pages []*models.OcrPage, runtimeSec float64) *models.OcrResult {
	texts := make([]string, 0, len(pages))
	items := make([]models.OcrItem, 0)
	pageInfos := make([]models.OcrPageInfo, 0, len(pages))

	for _, page := range pages {
		texts = append(texts, page.Text)
		pageInfos = append(pageInfos, models.OcrPageInfo{
			PageIndex:  page.PageIndex,
			Width:      page.Width,
			Height:     page.Height,
			RuntimeSec: page.RuntimeSec,
		})
		for _, word := range page.Words {
			items = append(items, models.OcrItem{
				PageNo: page.PageIndex + 1,
				Text:   word.Text,
				BBox: models.BoundingBox{
					Left:        float64(word.BBox[0]),
					Top:         float64(word.BBox[1]),
					Right:       float64(word.BBox[2]),
					Bottom:      float64(word.BBox[3]),
					CoordOrigin: models.CoordOriginTopLeft,
					DualKey:     true,
				},
			})
		}
	}

	fullText := strings.Join(texts, "\n\n")

	return &models.OcrResult{
		Text:     fullText,
		Markdown: fullText,
		Items:    items,
		Metadata: &models.OcrMetadata{OCR: models.OcrRunInfo{
			Engine:       engine.Name(),
			EngineConfig: engine.Config(),
			RuntimeSec:   runtimeSec,
			Pages:        pageInfos,
		}},
	}
}

func isPDFPath(filePath string) bool {
	return strings.EqualFold(filepath.Ext(filePath), ".pdf")
}

func imageDims(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
