package models

// ExtractionResult is the pipeline output for one document: the extracted
// record plus the annotated rendering of the source file.
type ExtractionResult struct {
	// RunID identifies this pipeline run: run_{uuid}
	RunID string `json:"run_id"`

	// DocType is the registry key the document was extracted as
	DocType string `json:"doc_type"`

	// Model is the LLM that produced the record
	Model string `json:"model"`

	// Report is the extracted record in JSON object form
	Report map[string]interface{} `json:"report"`

	// AnnotatedPDF is the rendered source with field boxes and legend
	AnnotatedPDF []byte `json:"-"`

	// OCRMetadata describes the OCR engine run, when one happened
	OCRMetadata *OcrMetadata `json:"ocr_metadata,omitempty"`
}
