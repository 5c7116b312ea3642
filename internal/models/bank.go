package models

import "github.com/go-playground/validator/v10"

// BankLine is a single transaction entry in a bank statement. Amounts are
// negative for expenses and positive for income.
type BankLine struct {
	Fecha    string   `json:"fecha" validate:"required"` // YYYY-MM-DD
	Concepto string   `json:"concepto" validate:"required"`
	Importe  float64  `json:"importe"`
	Saldo    *float64 `json:"saldo,omitempty"`
}

// BankStatement is the full extraction record for a bank statement:
// account identity, statement period, and the transaction lines.
type BankStatement struct {
	Banco        *string    `json:"banco,omitempty"`
	Titular      *string    `json:"titular,omitempty"`
	Iban         *string    `json:"iban,omitempty"`
	PeriodoDesde *string    `json:"periodo_desde,omitempty"`
	PeriodoHasta *string    `json:"periodo_hasta,omitempty"`
	Moneda       string     `json:"moneda"` // defaults to EUR
	Lineas       []BankLine `json:"lineas" validate:"dive"`
	SaldoInicial *float64   `json:"saldo_inicial,omitempty"`
	SaldoFinal   *float64   `json:"saldo_final,omitempty"`
}

// NewBankStatement returns a statement with field defaults applied.
func NewBankStatement() *BankStatement {
	return &BankStatement{Moneda: "EUR", Lineas: []BankLine{}}
}

// Validate validates the statement using go-playground/validator.
func (r *BankStatement) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ToMap converts the statement to its JSON object form.
func (r *BankStatement) ToMap() (map[string]interface{}, error) {
	return toMap(r)
}

// BankLineSchema describes one transaction line for extraction prompts.
func BankLineSchema() *ObjectSchema {
	return &ObjectSchema{
		Name: "BankLine",
		Fields: []FieldSpec{
			{Name: "fecha", Type: FieldTypeString, Required: true, Description: "Transaction date, format YYYY-MM-DD"},
			{Name: "concepto", Type: FieldTypeString, Required: true, Description: "Transaction description"},
			{Name: "importe", Type: FieldTypeNumber, Required: true, Description: "Transaction amount (negative=expense, positive=income)"},
			{Name: "saldo", Type: FieldTypeNumber, Description: "Account balance after transaction"},
		},
	}
}

// BankStatementSchema describes the bank statement record for extraction
// prompts.
func BankStatementSchema() *ObjectSchema {
	return &ObjectSchema{
		Name: "BankStatement",
		Fields: []FieldSpec{
			{Name: "banco", Type: FieldTypeString, Description: "Bank name"},
			{Name: "titular", Type: FieldTypeString, Description: "Account holder name"},
			{Name: "iban", Type: FieldTypeString, Description: "Account IBAN"},
			{Name: "periodo_desde", Type: FieldTypeString, Description: "Statement period start, format YYYY-MM-DD"},
			{Name: "periodo_hasta", Type: FieldTypeString, Description: "Statement period end, format YYYY-MM-DD"},
			{Name: "moneda", Type: FieldTypeString, Default: "EUR", Description: "Currency code"},
			{Name: "lineas", Type: FieldTypeArray, Default: []interface{}{}, Items: BankLineSchema(), Description: "Transaction lines"},
			{Name: "saldo_inicial", Type: FieldTypeNumber, Description: "Opening balance"},
			{Name: "saldo_final", Type: FieldTypeNumber, Description: "Closing balance"},
		},
	}
}
