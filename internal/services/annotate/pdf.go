package annotate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/go-pdf/fpdf"

	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

type indexedItem struct {
	index int
	item  models.OcrItem
}

// annotatePDF rasterizes each page, projects the page's OCR boxes onto the
// raster, draws them, and reassembles the pages into a new PDF. When the
// recognition pass reported pixel dimensions for a page, the page renders
// at the zoom that reproduces that raster; otherwise coordinates go through
// the point-space heuristics in projectPointsToRaster.
func (s *Service) annotatePDF(ctx context.Context, req *interfaces.AnnotationRequest) ([]byte, error) {
	doc, err := fitz.New(req.FilePath)
	if err != nil {
		return nil, models.NewValidationError("File does not exist or is invalid.")
	}
	defer doc.Close()

	byPage := make(map[int][]indexedItem)
	for idx, item := range req.Items {
		pageNo := item.PageNo
		if pageNo == 0 {
			pageNo = 1
		}
		byPage[pageNo] = append(byPage[pageNo], indexedItem{index: idx, item: item})
	}

	pageDims := req.Metadata.PageDims()
	dpi := s.pdfDPI(req)

	pages := make([]*image.RGBA, 0, doc.NumPage())
	for pageIdx := 0; pageIdx < doc.NumPage(); pageIdx++ {
		select {
		case <-ctx.Done():
			return nil, models.NewBackendError("Annotation cancelled", ctx.Err())
		default:
		}

		bound, err := doc.Bound(pageIdx)
		if err != nil {
			return nil, models.NewRenderingError("Failed to read page %d geometry: %v", pageIdx+1, err)
		}
		pageWPt := float64(bound.Dx())
		pageHPt := float64(bound.Dy())

		ocrDim, hasDims := pageDims[pageIdx]
		renderDPI := float64(dpi)
		if hasDims && pageWPt > 0 && pageHPt > 0 {
			zoom := (float64(ocrDim[0])/pageWPt + float64(ocrDim[1])/pageHPt) / 2.0
			renderDPI = zoom * 72.0
		}

		img, err := doc.ImageDPI(pageIdx, renderDPI)
		if err != nil {
			return nil, models.NewRenderingError("Failed to render page %d: %v", pageIdx+1, err)
		}
		imgW, imgH := img.Bounds().Dx(), img.Bounds().Dy()

		textFace := newFace(9)
		tagFace := newFace(8)
		drawn := 0
		for _, entry := range byPage[pageIdx+1] {
			text := strings.TrimSpace(entry.item.Text)
			if text == "" || entry.item.BBox.IsZero() {
				continue
			}

			var left, top, right, bottom float64
			if hasDims {
				left, top, right, bottom = scaleBox(entry.item.BBox, float64(imgW)/float64(ocrDim[0]), float64(imgH)/float64(ocrDim[1]))
			} else {
				left, top, right, bottom = projectPointsToRaster(entry.item.BBox, pageWPt, pageHPt, float64(imgW)/pageWPt, float64(imgH)/pageHPt)
			}

			box, ok := clipBBox(left, top, right, bottom, imgW, imgH)
			if !ok {
				continue
			}

			drawBoxAnnotations(img, box, text, req.FieldMapping[entry.index], textFace, tagFace)
			drawn++
		}

		if pageIdx == 0 && len(req.Legend) > 0 {
			overlayLegend(img, req.Legend)
		}

		s.logger.Debug().
			Int("page", pageIdx).
			Int("boxes", drawn).
			Float64("render_dpi", renderDPI).
			Msg("Page annotated")

		pages = append(pages, img)
	}

	return assemblePDF(pages, dpi)
}

// assemblePDF lays each annotated raster out 1:1 on a page sized for the
// render DPI.
func assemblePDF(pages []*image.RGBA, dpi int) ([]byte, error) {
	if len(pages) == 0 {
		return nil, models.NewRenderingError("No pages were rendered for annotation")
	}
	if dpi <= 0 {
		dpi = defaultAnnotationDPI
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           pageSize(pages[0], dpi),
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	for i, page := range pages {
		size := pageSize(page, dpi)
		pdf.AddPageFormat("P", size)

		var buf bytes.Buffer
		if err := png.Encode(&buf, page); err != nil {
			return nil, models.NewRenderingError("Failed to encode annotated page %d: %v", i+1, err)
		}

		name := fmt.Sprintf("annotated-page-%d", i)
		options := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, options, &buf)
		pdf.ImageOptions(name, 0, 0, size.Wd, size.Ht, false, options, 0, "")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, models.NewRenderingError("Failed to write annotated PDF: %v", err)
	}
	return out.Bytes(), nil
}

func pageSize(img *image.RGBA, dpi int) fpdf.SizeType {
	scale := 72.0 / float64(dpi)
	return fpdf.SizeType{
		Wd: float64(img.Bounds().Dx()) * scale,
		Ht: float64(img.Bounds().Dy()) * scale,
	}
}
