package documents

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
	"github.com/ternarybob/scriba/internal/services/extraction"
	"github.com/ternarybob/scriba/internal/services/registry"
)

type stubOCR struct {
	result *models.OcrResult
	err    error
	calls  int
}

func (s *stubOCR) Run(ctx context.Context, filePath string) (*models.OcrResult, error) {
	s.calls++
	return s.result, s.err
}

type stubLLM struct {
	model    string
	response string
	lastReq  *interfaces.ChatRequest
	calls    int
}

func (s *stubLLM) Provider() string { return "openai" }

func (s *stubLLM) Model() string { return s.model }

func (s *stubLLM) SupportsStrictSchema() bool { return false }

func (s *stubLLM) Chat(ctx context.Context, req *interfaces.ChatRequest) (*interfaces.ChatResponse, error) {
	s.calls++
	s.lastReq = req
	return &interfaces.ChatResponse{Content: s.response, Model: s.model}, nil
}

type stubAnnotator struct {
	request *interfaces.AnnotationRequest
	output  []byte
	calls   int
}

func (s *stubAnnotator) Annotate(ctx context.Context, req *interfaces.AnnotationRequest) ([]byte, error) {
	s.calls++
	s.request = req
	return s.output, nil
}

const deliveryNoteResponse = `{
	"numero_albaran": "ALB-001",
	"fecha_albaran": "2025-01-15",
	"nombre_empresa": "Acme",
	"productos": [{"producto": "Cemento", "cantidad": 2}],
	"base_imponible": 100.00,
	"total_albaran": 121.00
}`

func deliveryNoteOCR() *models.OcrResult {
	return &models.OcrResult{
		Text: "Numero: ALB-001\nFecha: 2025-01-15\nEmpresa: Acme\nBase: 100.00\nTotal: 121.00",
		Items: []models.OcrItem{
			{PageNo: 1, Text: "Numero: ALB-001", BBox: models.BoundingBox{Left: 10, Top: 10, Right: 200, Bottom: 30, CoordOrigin: models.CoordOriginTopLeft}},
			{PageNo: 1, Text: "Total: 121.00", BBox: models.BoundingBox{Left: 10, Top: 40, Right: 160, Bottom: 60, CoordOrigin: models.CoordOriginTopLeft}},
		},
		Metadata: &models.OcrMetadata{OCR: models.OcrRunInfo{
			Engine: "tesseract",
			Pages:  []models.OcrPageInfo{{PageIndex: 0, Width: 2550, Height: 3300}},
		}},
	}
}

func newPipeline(cfg *common.Config, ocr *stubOCR, llm *stubLLM, annotator *stubAnnotator) interfaces.DocumentService {
	logger := arbor.NewLogger()
	extractor := extraction.NewService(cfg, llm, logger)
	return NewService(cfg, registry.NewRegistry(logger), ocr, extractor, annotator, llm, logger)
}

func writeSourceFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("source bytes"), 0o644))
	return path
}

func TestExtractDocumentDeliveryNote(t *testing.T) {
	cfg := common.NewDefaultConfig()
	ocr := &stubOCR{result: deliveryNoteOCR()}
	llm := &stubLLM{model: "gpt-4o-mini", response: deliveryNoteResponse}
	annotator := &stubAnnotator{output: []byte("%PDF-stub")}
	service := newPipeline(cfg, ocr, llm, annotator)

	result, err := service.ExtractDocument(context.Background(), writeSourceFile(t, "albaran.png"), "deliverynote")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.RunID, "run_"))
	assert.Equal(t, "deliverynote", result.DocType)
	assert.Equal(t, "gpt-4o-mini", result.Model)
	assert.Equal(t, []byte("%PDF-stub"), result.AnnotatedPDF)
	require.NotNil(t, result.OCRMetadata)

	assert.Equal(t, "ALB-001", result.Report["numero_albaran"])
	assert.Equal(t, "Acme", result.Report["nombre_empresa"])
	assert.Equal(t, 100.0, result.Report["base_imponible"])
	assert.Equal(t, 121.0, result.Report["total_albaran"])
	assert.Equal(t, "EUR", result.Report["moneda"])

	// The prompt carried the OCR text and ran in JSON object mode.
	require.NotNil(t, llm.lastReq)
	assert.True(t, llm.lastReq.JSONMode)
	require.Len(t, llm.lastReq.Messages, 2)
	assert.Contains(t, llm.lastReq.Messages[1].Content, "ALB-001")

	// Matched items flow into the annotation request along with the legend.
	require.NotNil(t, annotator.request)
	assert.Equal(t, map[int]string{0: "numero_albaran", 1: "total_albaran"}, annotator.request.FieldMapping)
	require.NotEmpty(t, annotator.request.Legend)
	assert.Equal(t, "Delivery Note: ALB-001", annotator.request.Legend[0])
	assert.Contains(t, annotator.request.Legend, "Base: 100.00 EUR")
	assert.Contains(t, annotator.request.Legend, "Total: 121.00 EUR")
	assert.Len(t, annotator.request.Items, 2)
}

func TestExtractDocumentRejectsLocalModels(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.LLM.Model = "ollama/llama3.1:8b"
	ocr := &stubOCR{result: deliveryNoteOCR()}
	llm := &stubLLM{model: "ollama/llama3.1:8b", response: deliveryNoteResponse}
	annotator := &stubAnnotator{output: []byte("%PDF-stub")}
	service := newPipeline(cfg, ocr, llm, annotator)

	_, err := service.ExtractDocument(context.Background(), writeSourceFile(t, "albaran.pdf"), "deliverynote")

	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrorKindConfiguration))
	assert.Equal(t, "Ollama models are not available for document extraction. Please use an OpenAI model (e.g., 'gpt-4o-mini', 'gpt-4o').", err.Error())

	// Rejected before any OCR or LLM work.
	assert.Zero(t, ocr.calls)
	assert.Zero(t, llm.calls)
	assert.Zero(t, annotator.calls)
}

func TestExtractDocumentMissingFile(t *testing.T) {
	service := newPipeline(common.NewDefaultConfig(), &stubOCR{}, &stubLLM{model: "gpt-4o-mini"}, &stubAnnotator{})

	_, err := service.ExtractDocument(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), "deliverynote")

	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrorKindValidation))
	assert.Equal(t, "File does not exist or is invalid.", err.Error())
}

func TestExtractDocumentEmptyDocType(t *testing.T) {
	service := newPipeline(common.NewDefaultConfig(), &stubOCR{}, &stubLLM{model: "gpt-4o-mini"}, &stubAnnotator{})

	_, err := service.ExtractDocument(context.Background(), writeSourceFile(t, "scan.png"), "   ")

	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrorKindValidation))
	assert.Equal(t, "doc_type cannot be empty.", err.Error())
}

func TestExtractDocumentUnknownDocType(t *testing.T) {
	service := newPipeline(common.NewDefaultConfig(), &stubOCR{}, &stubLLM{model: "gpt-4o-mini"}, &stubAnnotator{})

	_, err := service.ExtractDocument(context.Background(), writeSourceFile(t, "scan.png"), "invoice")

	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrorKindValidation))
	assert.Contains(t, err.Error(), "Unknown doc_type: invoice")
}

func TestExtractDocumentEmptyOCRText(t *testing.T) {
	ocr := &stubOCR{result: &models.OcrResult{Text: "   \n  "}}
	llm := &stubLLM{model: "gpt-4o-mini", response: deliveryNoteResponse}
	service := newPipeline(common.NewDefaultConfig(), ocr, llm, &stubAnnotator{})

	_, err := service.ExtractDocument(context.Background(), writeSourceFile(t, "scan.png"), "deliverynote")

	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrorKindValidation))
	assert.Equal(t, "No text could be extracted from the document.", err.Error())
	assert.Zero(t, llm.calls)
}

func TestExtractDocumentWrapsBackendFailures(t *testing.T) {
	ocr := &stubOCR{err: models.NewBackendError("OCR service unavailable", nil)}
	service := newPipeline(common.NewDefaultConfig(), ocr, &stubLLM{model: "gpt-4o-mini"}, &stubAnnotator{})

	_, err := service.ExtractDocument(context.Background(), writeSourceFile(t, "scan.png"), "deliverynote")

	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrorKindBackend))
	assert.Equal(t, "Extraction failed: OCR service unavailable", err.Error())
}

func TestExtractDocumentKeepsValidationMessagesVerbatim(t *testing.T) {
	ocr := &stubOCR{err: models.NewValidationError("Document has 12 pages, exceeding the configured limit of 10")}
	service := newPipeline(common.NewDefaultConfig(), ocr, &stubLLM{model: "gpt-4o-mini"}, &stubAnnotator{})

	_, err := service.ExtractDocument(context.Background(), writeSourceFile(t, "scan.png"), "deliverynote")

	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrorKindValidation))
	assert.Equal(t, "Document has 12 pages, exceeding the configured limit of 10", err.Error())
}

func TestExtractDocumentRejectsCorruptPDF(t *testing.T) {
	service := newPipeline(common.NewDefaultConfig(), &stubOCR{}, &stubLLM{model: "gpt-4o-mini"}, &stubAnnotator{})

	_, err := service.ExtractDocument(context.Background(), writeSourceFile(t, "broken.pdf"), "deliverynote")

	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrorKindValidation))
	assert.Contains(t, err.Error(), "Invalid PDF structure")
}

func TestExtractDocumentRedactsLegend(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Output.RedactOutput = true
	response := strings.Replace(deliveryNoteResponse, `"nombre_empresa": "Acme",`, `"nombre_empresa": "Acme", "nif_cif": "B12345678",`, 1)
	ocr := &stubOCR{result: deliveryNoteOCR()}
	llm := &stubLLM{model: "gpt-4o-mini", response: response}
	annotator := &stubAnnotator{output: []byte("%PDF-stub")}
	service := newPipeline(cfg, ocr, llm, annotator)

	_, err := service.ExtractDocument(context.Background(), writeSourceFile(t, "albaran.png"), "deliverynote")

	require.NoError(t, err)
	require.NotNil(t, annotator.request)
	assert.Contains(t, annotator.request.Legend, "NIF/CIF: ••REDACTED-TAXID••")
}

func TestExtractFromText(t *testing.T) {
	llm := &stubLLM{model: "gpt-4o-mini", response: deliveryNoteResponse}
	ocr := &stubOCR{}
	annotator := &stubAnnotator{}
	service := newPipeline(common.NewDefaultConfig(), ocr, llm, annotator)

	result, err := service.ExtractFromText(context.Background(), "Albaran ALB-001 de Acme, total 121.00 EUR", "deliverynote")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.RunID, "run_"))
	assert.Equal(t, "ALB-001", result.Report["numero_albaran"])
	assert.Nil(t, result.AnnotatedPDF)
	assert.Nil(t, result.OCRMetadata)
	assert.Zero(t, ocr.calls)
	assert.Zero(t, annotator.calls)
}

func TestExtractFromTextEmptyText(t *testing.T) {
	service := newPipeline(common.NewDefaultConfig(), &stubOCR{}, &stubLLM{model: "gpt-4o-mini"}, &stubAnnotator{})

	_, err := service.ExtractFromText(context.Background(), "   ", "deliverynote")

	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrorKindValidation))
	assert.Equal(t, "Text cannot be empty.", err.Error())
}

func TestExtractFromTextRejectsLocalModels(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.LLM.Model = "ollama/mistral"
	llm := &stubLLM{model: "ollama/mistral"}
	service := newPipeline(cfg, &stubOCR{}, llm, &stubAnnotator{})

	_, err := service.ExtractFromText(context.Background(), "texto de prueba", "deliverynote")

	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrorKindConfiguration))
	assert.Zero(t, llm.calls)
}
