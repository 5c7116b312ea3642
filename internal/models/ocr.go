package models

import (
	"encoding/json"
	"fmt"
)

// Coordinate origin tags carried by OCR bounding boxes. Word engines report
// top-left pixel coordinates; layout engines report bottom-left PDF points.
const (
	CoordOriginTopLeft    = "TOPLEFT"
	CoordOriginBottomLeft = "BOTTOMLEFT"
)

// OcrWord is a single recognized token with its axis-aligned bounding box
// in page pixel coordinates (x0, y0, x1, y1).
type OcrWord struct {
	Text       string  `json:"text"`
	BBox       [4]int  `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

// OcrPage holds the recognition result for one rendered page or image.
// PageIndex is zero-based; consumers convert to 1-based page_no.
type OcrPage struct {
	PageIndex  int       `json:"page_index"`
	Text       string    `json:"text"`
	Words      []OcrWord `json:"words"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	RuntimeSec float64   `json:"runtime_sec"`
}

// ValidateBBox enforces the canonical bounding box contract before an
// OcrWord may be constructed: ordered coordinates inside the page bounds.
func ValidateBBox(bbox [4]int, width, height int) error {
	x0, y0, x1, y1 := bbox[0], bbox[1], bbox[2], bbox[3]

	if x0 > x1 {
		return NewValidationError("bbox x0 (%d) must be <= x1 (%d), got %v", x0, x1, bbox)
	}
	if y0 > y1 {
		return NewValidationError("bbox y0 (%d) must be <= y1 (%d), got %v", y0, y1, bbox)
	}
	if x0 < 0 {
		return NewValidationError("bbox x0 (%d) must be >= 0, got %v", x0, bbox)
	}
	if y0 < 0 {
		return NewValidationError("bbox y0 (%d) must be >= 0, got %v", y0, bbox)
	}
	if x1 > width {
		return NewValidationError("bbox x1 (%d) must be <= image width (%d), got %v", x1, width, bbox)
	}
	if y1 > height {
		return NewValidationError("bbox y1 (%d) must be <= image height (%d), got %v", y1, height, bbox)
	}
	return nil
}

// BoundingBox is the exchange form of an OCR box. Different engines report
// different key sets (l/t/r/b vs x0/y0/x1/y1) and coordinate origins; the
// JSON codec accepts both and the renderer branches on CoordOrigin.
type BoundingBox struct {
	Left        float64
	Top         float64
	Right       float64
	Bottom      float64
	CoordOrigin string
	// DualKey marks boxes produced by word engines, which serialize with
	// both key sets for downstream consumers.
	DualKey bool
}

type boundingBoxJSON struct {
	L           *float64 `json:"l,omitempty"`
	T           *float64 `json:"t,omitempty"`
	R           *float64 `json:"r,omitempty"`
	B           *float64 `json:"b,omitempty"`
	X0          *float64 `json:"x0,omitempty"`
	Y0          *float64 `json:"y0,omitempty"`
	X1          *float64 `json:"x1,omitempty"`
	Y1          *float64 `json:"y1,omitempty"`
	CoordOrigin string   `json:"coord_origin,omitempty"`
}

// pickCoord resolves a coordinate from the preferred key, falling through to
// the alternate key when the preferred one is absent or zero.
func pickCoord(preferred, alternate *float64) float64 {
	if preferred != nil && *preferred != 0 {
		return *preferred
	}
	if alternate != nil {
		return *alternate
	}
	if preferred != nil {
		return *preferred
	}
	return 0
}

func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var raw boundingBoxJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Left = pickCoord(raw.L, raw.X0)
	b.Top = pickCoord(raw.T, raw.Y0)
	b.Right = pickCoord(raw.R, raw.X1)
	b.Bottom = pickCoord(raw.B, raw.Y1)
	b.CoordOrigin = raw.CoordOrigin
	b.DualKey = raw.L != nil && raw.X0 != nil
	return nil
}

func (b BoundingBox) MarshalJSON() ([]byte, error) {
	raw := boundingBoxJSON{
		L: &b.Left, T: &b.Top, R: &b.Right, B: &b.Bottom,
		CoordOrigin: b.CoordOrigin,
	}
	if b.DualKey {
		raw.X0, raw.Y0, raw.X1, raw.Y1 = &b.Left, &b.Top, &b.Right, &b.Bottom
	}
	return json.Marshal(raw)
}

// IsZero reports whether the box carries no usable coordinates
func (b BoundingBox) IsZero() bool {
	return b.Left == 0 && b.Top == 0 && b.Right == 0 && b.Bottom == 0
}

// OcrItem is one recognized text span in the pipeline's canonical exchange
// format: 1-based page number, text, and bounding box.
type OcrItem struct {
	PageNo int         `json:"page_no"`
	Text   string      `json:"text"`
	BBox   BoundingBox `json:"bbox"`
}

// OcrResult is the pipeline-level OCR aggregate for one document.
type OcrResult struct {
	Text     string       `json:"text"`
	Markdown string       `json:"markdown"`
	Items    []OcrItem    `json:"ocr_items"`
	Metadata *OcrMetadata `json:"metadata,omitempty"`
}

// OcrMetadata wraps the engine run description under an "ocr" key.
type OcrMetadata struct {
	OCR OcrRunInfo `json:"ocr"`
}

// OcrRunInfo describes the engine run that produced a result.
type OcrRunInfo struct {
	Engine       string                 `json:"engine"`
	EngineConfig map[string]interface{} `json:"engine_config"`
	RuntimeSec   float64                `json:"runtime_sec"`
	Pages        []OcrPageInfo          `json:"pages"`
}

// OcrPageInfo carries authoritative per-page pixel dimensions when the
// engine can supply them; renderers prefer these over DPI heuristics.
type OcrPageInfo struct {
	PageIndex  int     `json:"page_index"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	RuntimeSec float64 `json:"runtime_sec"`
}

// PageDims returns the known pixel dimensions keyed by 0-based page index,
// skipping pages whose dimensions the engine could not report.
func (m *OcrMetadata) PageDims() map[int][2]int {
	dims := make(map[int][2]int)
	if m == nil {
		return dims
	}
	for _, p := range m.OCR.Pages {
		if p.Width > 0 && p.Height > 0 {
			dims[p.PageIndex] = [2]int{p.Width, p.Height}
		}
	}
	return dims
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%g,%g,%g,%g)", b.Left, b.Top, b.Right, b.Bottom)
}
