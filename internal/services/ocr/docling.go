package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/models"
)

const doclingTimeout = 300 * time.Second

// DoclingClient converts documents through a docling-serve endpoint.
// Unlike the word engines it performs whole-document layout analysis;
// its text items can span multiple fields and get split into field-sized
// chunks before they are useful for rendering.
type DoclingClient struct {
	logger      arbor.ILogger
	client      *http.Client
	baseURL     string
	langs       []string
	imagesScale float64
}

type doclingProv struct {
	PageNo int                `json:"page_no"`
	BBox   models.BoundingBox `json:"bbox"`
}

type doclingText struct {
	Text string        `json:"text"`
	Orig string        `json:"orig"`
	Prov []doclingProv `json:"prov"`
}

type doclingDocument struct {
	Texts []doclingText `json:"texts"`
}

type doclingConvertResponse struct {
	Document struct {
		JSONContent *doclingDocument `json:"json_content"`
		MDContent   string           `json:"md_content"`
		TextContent string           `json:"text_content"`
	} `json:"document"`
}

func newDoclingClient(cfg *common.Config, logger arbor.ILogger) *DoclingClient {
	return &DoclingClient{
		logger:      logger,
		client:      &http.Client{Timeout: doclingTimeout},
		baseURL:     strings.TrimRight(cfg.OCR.DoclingURL, "/"),
		langs:       parseLangs(cfg.OCR.Langs),
		imagesScale: cfg.OCR.ImagesScale,
	}
}

// Convert runs the whole document through the layout service and
// assembles the canonical OCR result from its provenance-tagged items.
func (d *DoclingClient) Convert(ctx context.Context, filePath string) (*models.OcrResult, error) {
	start := time.Now()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, models.NewValidationError("File does not exist or is invalid.")
	}

	converted, err := d.post(ctx, filepath.Base(filePath), data)
	if err != nil {
		return nil, err
	}

	items := make([]models.OcrItem, 0)
	pageDims := make(map[int][2]int)

	if doc := converted.Document.JSONContent; doc != nil {
		for _, textItem := range doc.Texts {
			content := textItem.Text
			if content == "" {
				content = textItem.Orig
			}
			if content == "" {
				continue
			}
			for _, prov := range textItem.Prov {
				if prov.PageNo == 0 {
					continue
				}

				// Docling reports PDF points without page geometry, so
				// dimensions are estimated from the first box per page.
				if !prov.BBox.IsZero() {
					if _, seen := pageDims[prov.PageNo-1]; !seen {
						if prov.BBox.Right > 0 && prov.BBox.Bottom > 0 {
							pageDims[prov.PageNo-1] = [2]int{
								int(prov.BBox.Right * 1.1),
								int(prov.BBox.Bottom * 1.1),
							}
						}
					}
				}

				item := models.OcrItem{
					PageNo: prov.PageNo,
					Text:   strings.TrimSpace(content),
					BBox:   prov.BBox,
				}
				items = append(items, splitLargeItem(item)...)
			}
		}
	}

	pages := make([]models.OcrPageInfo, 0, len(pageDims))
	for idx, dims := range pageDims {
		pages = append(pages, models.OcrPageInfo{PageIndex: idx, Width: dims[0], Height: dims[1]})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageIndex < pages[j].PageIndex })

	return &models.OcrResult{
		Text:     converted.Document.TextContent,
		Markdown: converted.Document.MDContent,
		Items:    items,
		Metadata: &models.OcrMetadata{OCR: models.OcrRunInfo{
			Engine: EngineDocling,
			EngineConfig: map[string]interface{}{
				"langs":        d.langs,
				"images_scale": d.imagesScale,
			},
			RuntimeSec: time.Since(start).Seconds(),
			Pages:      pages,
		}},
	}, nil
}

func (d *DoclingClient) post(ctx context.Context, name string, data []byte) (*doclingConvertResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("files", name)
	if err != nil {
		return nil, models.NewBackendError("Failed to build conversion request", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, models.NewBackendError("Failed to build conversion request", err)
	}
	fields := map[string]string{
		"do_ocr":   "true",
		"ocr_lang": strings.Join(d.langs, ","),
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, models.NewBackendError("Failed to build conversion request", err)
		}
	}
	for _, format := range []string{"json", "md", "text"} {
		if err := writer.WriteField("to_formats", format); err != nil {
			return nil, models.NewBackendError("Failed to build conversion request", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, models.NewBackendError("Failed to build conversion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.baseURL+"/v1alpha/convert/file", &body)
	if err != nil {
		return nil, models.NewBackendError("Failed to build conversion request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, models.NewBackendError("Docling request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewBackendError("Failed to read Docling response", err)
	}
	if resp.StatusCode != http.StatusOK {
		d.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("response", string(payload)).
			Msg("Docling server returned error")
		return nil, models.NewBackendError(fmt.Sprintf("Docling returned status %d", resp.StatusCode), nil)
	}

	var converted doclingConvertResponse
	if err := json.Unmarshal(payload, &converted); err != nil {
		return nil, models.NewBackendError("Docling response is not valid JSON", err)
	}
	return &converted, nil
}
