package ocr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/models"
)

const doclingReply = `{
	"document": {
		"json_content": {
			"texts": [
				{
					"text": "Numero: ALB-1",
					"prov": [{"page_no": 1, "bbox": {"l": 10, "t": 700, "r": 200, "b": 680, "coord_origin": "BOTTOMLEFT"}}]
				},
				{
					"text": "",
					"orig": "Fallback line",
					"prov": [{"page_no": 1, "bbox": {"l": 10, "t": 660, "r": 150, "b": 640, "coord_origin": "BOTTOMLEFT"}}]
				},
				{
					"text": "Sin procedencia",
					"prov": []
				}
			]
		},
		"md_content": "# Documento",
		"text_content": "Numero: ALB-1\nFallback line"
	}
}`

func TestDoclingConvert(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1alpha/convert/file", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(50<<20))
		_, header, err := r.FormFile("files")
		require.NoError(t, err)
		assert.Equal(t, "sample.pdf", header.Filename)
		assert.Equal(t, "true", r.FormValue("do_ocr"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, doclingReply)
	}))
	defer server.Close()

	filePath := filepath.Join(t.TempDir(), "sample.pdf")
	require.NoError(t, os.WriteFile(filePath, []byte("%PDF-1.4 stub"), 0644))

	cfg := common.NewDefaultConfig()
	cfg.OCR.DoclingURL = server.URL
	client := newDoclingClient(cfg, arbor.NewLogger())

	result, err := client.Convert(context.Background(), filePath)

	require.NoError(t, err)
	assert.Equal(t, "Numero: ALB-1\nFallback line", result.Text)
	assert.Equal(t, "# Documento", result.Markdown)

	require.Len(t, result.Items, 2)
	assert.Equal(t, "Numero: ALB-1", result.Items[0].Text)
	assert.Equal(t, 1, result.Items[0].PageNo)
	assert.Equal(t, 10.0, result.Items[0].BBox.Left)
	assert.Equal(t, 700.0, result.Items[0].BBox.Top)
	assert.Equal(t, models.CoordOriginBottomLeft, result.Items[0].BBox.CoordOrigin)
	assert.Equal(t, "Fallback line", result.Items[1].Text)

	require.NotNil(t, result.Metadata)
	assert.Equal(t, "docling", result.Metadata.OCR.Engine)
	require.Len(t, result.Metadata.OCR.Pages, 1)
	// Dimensions estimated from the first box on the page.
	assert.Equal(t, 220, result.Metadata.OCR.Pages[0].Width)
	assert.Equal(t, 748, result.Metadata.OCR.Pages[0].Height)
}

func TestDoclingConvertMissingFile(t *testing.T) {
	cfg := common.NewDefaultConfig()
	client := newDoclingClient(cfg, arbor.NewLogger())

	_, err := client.Convert(context.Background(), "/tmp/does-not-exist-xyz.pdf")

	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrorKindValidation))
}

func TestDoclingConvertServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "conversion failed", http.StatusBadGateway)
	}))
	defer server.Close()

	filePath := filepath.Join(t.TempDir(), "sample.pdf")
	require.NoError(t, os.WriteFile(filePath, []byte("%PDF-1.4 stub"), 0644))

	cfg := common.NewDefaultConfig()
	cfg.OCR.DoclingURL = server.URL
	client := newDoclingClient(cfg, arbor.NewLogger())

	_, err := client.Convert(context.Background(), filePath)

	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrorKindBackend))
}
