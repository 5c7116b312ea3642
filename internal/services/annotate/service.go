package annotate

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/ternarybob/arbor"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

const defaultAnnotationDPI = 300

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
}

// Service renders an annotated PDF copy of a source document: a green box
// over every positioned OCR item, a yellow tag over items matched to an
// extracted field, and a legend panel on the first page.
type Service struct {
	config *common.Config
	logger arbor.ILogger
}

var _ interfaces.AnnotationService = (*Service)(nil)

func NewService(config *common.Config, logger arbor.ILogger) interfaces.AnnotationService {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{config: config, logger: logger}
}

func (s *Service) Annotate(ctx context.Context, req *interfaces.AnnotationRequest) ([]byte, error) {
	s.logger.Info().
		Str("file", filepath.Base(req.FilePath)).
		Int("items", len(req.Items)).
		Int("tagged_fields", len(req.FieldMapping)).
		Msg("Rendering annotated document")

	if imageExtensions[strings.ToLower(filepath.Ext(req.FilePath))] {
		return s.annotateImage(ctx, req)
	}
	return s.annotatePDF(ctx, req)
}

// annotateImage draws straight onto the decoded image. Boxes are already
// in image pixel coordinates unless the recognition raster differed.
func (s *Service) annotateImage(ctx context.Context, req *interfaces.AnnotationRequest) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, models.NewBackendError("Annotation cancelled", ctx.Err())
	default:
	}

	data, err := os.ReadFile(req.FilePath)
	if err != nil {
		return nil, models.NewValidationError("File does not exist or is invalid.")
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.NewValidationError("Failed to decode source image: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
	imgW, imgH := img.Bounds().Dx(), img.Bounds().Dy()

	ocrDim, hasDims := req.Metadata.PageDims()[0]

	textFace := newFace(9)
	tagFace := newFace(8)
	drawn := 0
	for idx, item := range req.Items {
		if pageNo := item.PageNo; pageNo != 0 && pageNo != 1 {
			continue
		}
		text := strings.TrimSpace(item.Text)
		if text == "" || item.BBox.IsZero() {
			continue
		}

		left, top, right, bottom := projectImageItem(item.BBox, ocrDim, hasDims, imgW, imgH)
		box, ok := clipBBox(left, top, right, bottom, imgW, imgH)
		if !ok {
			continue
		}

		drawBoxAnnotations(img, box, text, req.FieldMapping[idx], textFace, tagFace)
		drawn++
	}

	if len(req.Legend) > 0 {
		overlayLegend(img, req.Legend)
	}

	s.logger.Debug().Int("boxes", drawn).Msg("Image annotated")

	return assemblePDF([]*image.RGBA{img}, s.imageDPI(req))
}

// pdfDPI resolves the rasterization resolution for PDF sources.
func (s *Service) pdfDPI(req *interfaces.AnnotationRequest) int {
	if req.DPI > 0 {
		return req.DPI
	}
	if s.config.Annotation.DPI > 0 {
		return s.config.Annotation.DPI
	}
	return defaultAnnotationDPI
}

// imageDPI resolves the output resolution for image sources, which carry
// no point geometry of their own. The page is sized against the word
// engine raster scale so coordinates line up with the recognition pass.
func (s *Service) imageDPI(req *interfaces.AnnotationRequest) int {
	if req.DPI > 0 {
		return req.DPI
	}
	if s.config.OCR.ImagesScale > 0 {
		return int(math.Round(72.0 * s.config.OCR.ImagesScale))
	}
	return defaultAnnotationDPI
}
