package models

import "github.com/go-playground/validator/v10"

// Devengo is one earning component of the employee's gross salary.
type Devengo struct {
	Concepto string  `json:"concepto" validate:"required"`
	Importe  float64 `json:"importe"`
}

// Deduccion is one deduction from the employee's gross salary.
type Deduccion struct {
	Concepto string  `json:"concepto" validate:"required"`
	Importe  float64 `json:"importe"`
}

// PayrollReport is the full extraction record for a Spanish payroll
// document (nómina): employer and employee identity, earnings,
// deductions, and totals.
type PayrollReport struct {
	EmpresaNif       *string     `json:"empresa_nif,omitempty"`
	EmpleadoDni      *string     `json:"empleado_dni,omitempty"`
	Periodo          *string     `json:"periodo,omitempty"` // YYYY-MM
	Categoria        *string     `json:"categoria,omitempty"`
	Iban             *string     `json:"iban,omitempty"`
	Devengos         []Devengo   `json:"devengos" validate:"dive"`
	Deducciones      []Deduccion `json:"deducciones" validate:"dive"`
	Bruto            *float64    `json:"bruto,omitempty"`
	TotalDeducciones *float64    `json:"total_deducciones,omitempty"`
	Neto             *float64    `json:"neto,omitempty"`
}

// NewPayrollReport returns a report with field defaults applied.
func NewPayrollReport() *PayrollReport {
	return &PayrollReport{Devengos: []Devengo{}, Deducciones: []Deduccion{}}
}

// Validate validates the report using go-playground/validator.
func (r *PayrollReport) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ToMap converts the report to its JSON object form.
func (r *PayrollReport) ToMap() (map[string]interface{}, error) {
	return toMap(r)
}

// ConceptLineSchema describes one concept/amount line, shared by earnings
// and deductions.
func ConceptLineSchema(name, conceptDesc, amountDesc string) *ObjectSchema {
	return &ObjectSchema{
		Name: name,
		Fields: []FieldSpec{
			{Name: "concepto", Type: FieldTypeString, Required: true, Description: conceptDesc},
			{Name: "importe", Type: FieldTypeNumber, Required: true, Description: amountDesc},
		},
	}
}

// PayrollSchema describes the payroll record for extraction prompts.
func PayrollSchema() *ObjectSchema {
	return &ObjectSchema{
		Name: "PayrollReport",
		Fields: []FieldSpec{
			{Name: "empresa_nif", Type: FieldTypeString, Description: "Employer tax ID (NIF/CIF)"},
			{Name: "empleado_dni", Type: FieldTypeString, Description: "Employee DNI/NIE"},
			{Name: "periodo", Type: FieldTypeString, Description: "Pay period, format YYYY-MM"},
			{Name: "categoria", Type: FieldTypeString, Description: "Employee category/position"},
			{Name: "iban", Type: FieldTypeString, Description: "Bank account IBAN"},
			{Name: "devengos", Type: FieldTypeArray, Default: []interface{}{}, Items: ConceptLineSchema("Devengo", "Earning description", "Earning amount"), Description: "Earnings list"},
			{Name: "deducciones", Type: FieldTypeArray, Default: []interface{}{}, Items: ConceptLineSchema("Deduccion", "Deduction description", "Deduction amount"), Description: "Deductions list"},
			{Name: "bruto", Type: FieldTypeNumber, Description: "Gross salary"},
			{Name: "total_deducciones", Type: FieldTypeNumber, Description: "Total deductions"},
			{Name: "neto", Type: FieldTypeNumber, Description: "Net salary"},
		},
	}
}
