package registry

import (
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// Prompts per document type. The {text} placeholder is filled with the
// OCR output at extraction time.
const (
	deliveryNoteSystemPrompt = "Extract structured information from delivery note text. " +
		"Return ONLY a JSON object matching the schema, no markdown or explanations."
	deliveryNoteUserTemplate = "Extract information from this delivery note document:\n\n{text}\n\n" +
		"Return a flat JSON object with fields at root level (not nested). " +
		"Fields should include: numero_albaran, fecha_albaran, nombre_empresa, " +
		"productos (array), base_imponible, total_albaran, etc."

	bankSystemPrompt = "Extraes campos de un extracto bancario español. " +
		"Devuelve SOLO JSON válido para el esquema."
	bankUserTemplate = "Extrae información de este extracto bancario:\n\n{text}\n\n" +
		"Devuelve campos: banco, titular, iban, periodo_desde, periodo_hasta, " +
		"moneda, lineas (lista de transacciones con fecha, concepto, importe " +
		"(negativo para gastos, positivo para ingresos), saldo opcional), " +
		"saldo_inicial, saldo_final. Si un campo no está, pon null."

	payrollSystemPrompt = "Extraes campos de una nómina española. Devuelve SOLO JSON válido para el esquema."
	payrollUserTemplate = "Extrae información de esta nómina:\n\n{text}\n\n" +
		"Devuelve campos: empresa_nif, empleado_dni, periodo (YYYY-MM), categoria, " +
		"iban, devengos (lista con concepto e importe), deducciones (lista con " +
		"concepto e importe), bruto, total_deducciones, neto. " +
		"Si un campo no está, pon null."
)

// Statement and payroll text is capped before prompting; delivery notes
// are short enough to send whole.
const bankPayrollTextLimit = 40000

// Registry maps document type keys to their extraction configuration.
type Registry struct {
	logger  arbor.ILogger
	configs map[string]*models.DocumentTypeConfig
	order   []string
}

var _ interfaces.DocumentRegistry = (*Registry)(nil)

// NewRegistry creates the registry with the built-in document types.
func NewRegistry(logger arbor.ILogger) interfaces.DocumentRegistry {
	r := &Registry{
		logger:  logger,
		configs: make(map[string]*models.DocumentTypeConfig),
	}

	r.register(&models.DocumentTypeConfig{
		DocType:      "deliverynote",
		Schema:       models.AlbaranSchema(),
		SystemPrompt: deliveryNoteSystemPrompt,
		UserTemplate: deliveryNoteUserTemplate,
		NewRecord:    func() interface{} { return models.NewAlbaranReport() },
		BuildLegend:  makeAlbaranLegend,
		Redact:       DefaultRedact,
	})
	r.register(&models.DocumentTypeConfig{
		DocType:      "bank",
		Schema:       models.BankStatementSchema(),
		SystemPrompt: bankSystemPrompt,
		UserTemplate: bankUserTemplate,
		TextLimit:    bankPayrollTextLimit,
		NewRecord:    func() interface{} { return models.NewBankStatement() },
		BuildLegend:  makeBankLegend,
		Redact:       DefaultRedact,
	})
	r.register(&models.DocumentTypeConfig{
		DocType:      "payroll",
		Schema:       models.PayrollSchema(),
		SystemPrompt: payrollSystemPrompt,
		UserTemplate: payrollUserTemplate,
		TextLimit:    bankPayrollTextLimit,
		NewRecord:    func() interface{} { return models.NewPayrollReport() },
		BuildLegend:  makePayrollLegend,
		Redact:       RedactPayroll,
	})

	return r
}

func (r *Registry) register(config *models.DocumentTypeConfig) {
	r.configs[config.DocType] = config
	r.order = append(r.order, config.DocType)
}

// GetConfig returns the configuration registered under docType.
func (r *Registry) GetConfig(docType string) (*models.DocumentTypeConfig, error) {
	config, ok := r.configs[docType]
	if !ok {
		return nil, models.NewValidationError("Unknown doc_type: %s. Available types: %s",
			docType, strings.Join(r.order, ", "))
	}
	return config, nil
}

// Types lists the registered document type keys in registration order.
func (r *Registry) Types() []string {
	types := make([]string, len(r.order))
	copy(types, r.order)
	return types
}
