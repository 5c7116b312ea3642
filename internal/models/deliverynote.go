package models

import "github.com/go-playground/validator/v10"

// ProductoLinea is a single product or service line item in a delivery note.
// Only producto and cantidad are required; the rest depend on how much the
// supplier prints on the line.
type ProductoLinea struct {
	Producto       string   `json:"producto" validate:"required"`
	Descripcion    *string  `json:"descripcion,omitempty"`
	Cantidad       float64  `json:"cantidad"`
	Unidad         *string  `json:"unidad,omitempty"`
	PrecioUnitario *float64 `json:"precio_unitario,omitempty"`
	ImporteLinea   *float64 `json:"importe_linea,omitempty"`
}

// AlbaranReport is the full extraction record for a delivery note or
// invoice: document metadata, supplier identity, product lines, and the
// financial totals block.
type AlbaranReport struct {
	// Document data
	NumeroAlbaran   string  `json:"numero_albaran" validate:"required"`
	FechaAlbaran    string  `json:"fecha_albaran" validate:"required"` // YYYY-MM-DD
	CategoriaGasto  *string `json:"categoria_gasto,omitempty"`
	FechaRegistro   *string `json:"fecha_registro,omitempty"`
	Moneda          string  `json:"moneda"` // defaults to EUR
	Estado          *string `json:"estado,omitempty"`
	FicheroDatalake *string `json:"fichero_datalake,omitempty"`

	// Supplier data
	NombreEmpresa string  `json:"nombre_empresa" validate:"required"`
	NifCif        *string `json:"nif_cif,omitempty"`
	Direccion     *string `json:"direccion,omitempty"`
	CodigoPostal  *string `json:"codigo_postal,omitempty"`
	Poblacion     *string `json:"poblacion,omitempty"`

	// Products
	Productos []ProductoLinea `json:"productos" validate:"required,dive"`

	// Financial
	BaseImponible       float64  `json:"base_imponible"`
	PorcentajeImpuestos *float64 `json:"porcentaje_impuestos,omitempty"`
	ImporteImpuestos    *float64 `json:"importe_impuestos,omitempty"`
	ImporteConImpuestos *float64 `json:"importe_con_impuestos,omitempty"`
	PorcentajeRetencion *float64 `json:"porcentaje_retencion,omitempty"`
	ImporteRetencion    *float64 `json:"importe_retencion,omitempty"`
	TotalAlbaran        float64  `json:"total_albaran"`
}

// NewAlbaranReport returns a report with field defaults applied.
func NewAlbaranReport() *AlbaranReport {
	return &AlbaranReport{Moneda: "EUR"}
}

// Validate validates the report using go-playground/validator.
// Returns an error if any required fields are missing.
func (r *AlbaranReport) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ToMap converts the report to its JSON object form.
func (r *AlbaranReport) ToMap() (map[string]interface{}, error) {
	return toMap(r)
}

// ProductoLineaSchema describes one product line for extraction prompts.
func ProductoLineaSchema() *ObjectSchema {
	return &ObjectSchema{
		Name: "ProductoLinea",
		Fields: []FieldSpec{
			{Name: "producto", Type: FieldTypeString, Required: true, Description: "Product or service name/code"},
			{Name: "descripcion", Type: FieldTypeString, Description: "Detailed description"},
			{Name: "cantidad", Type: FieldTypeNumber, Required: true, Description: "Quantity of product units"},
			{Name: "unidad", Type: FieldTypeString, Description: "Unit of measurement"},
			{Name: "precio_unitario", Type: FieldTypeNumber, Description: "Unit price"},
			{Name: "importe_linea", Type: FieldTypeNumber, Description: "Total line amount"},
		},
	}
}

// AlbaranSchema describes the delivery note record for extraction prompts.
func AlbaranSchema() *ObjectSchema {
	return &ObjectSchema{
		Name: "AlbaranReport",
		Fields: []FieldSpec{
			{Name: "numero_albaran", Type: FieldTypeString, Required: true, Description: "Unique delivery note number"},
			{Name: "fecha_albaran", Type: FieldTypeString, Required: true, Description: "Date of document, format YYYY-MM-DD"},
			{Name: "categoria_gasto", Type: FieldTypeString, Description: "Expense category"},
			{Name: "fecha_registro", Type: FieldTypeString, Description: "Registration date, format YYYY-MM-DD"},
			{Name: "moneda", Type: FieldTypeString, Default: "EUR", Description: "Currency code"},
			{Name: "estado", Type: FieldTypeString, Description: "Status"},
			{Name: "fichero_datalake", Type: FieldTypeString, Description: "File reference"},
			{Name: "nombre_empresa", Type: FieldTypeString, Required: true, Description: "Supplier company name"},
			{Name: "nif_cif", Type: FieldTypeString, Description: "Tax ID (NIF/CIF)"},
			{Name: "direccion", Type: FieldTypeString, Description: "Address"},
			{Name: "codigo_postal", Type: FieldTypeString, Description: "Postal code"},
			{Name: "poblacion", Type: FieldTypeString, Description: "City"},
			{Name: "productos", Type: FieldTypeArray, Required: true, Items: ProductoLineaSchema(), Description: "List of products/services"},
			{Name: "base_imponible", Type: FieldTypeNumber, Required: true, Description: "Total before taxes"},
			{Name: "porcentaje_impuestos", Type: FieldTypeNumber, Description: "Tax percentage"},
			{Name: "importe_impuestos", Type: FieldTypeNumber, Description: "Tax amount"},
			{Name: "importe_con_impuestos", Type: FieldTypeNumber, Description: "Total with taxes"},
			{Name: "porcentaje_retencion", Type: FieldTypeNumber, Description: "Withholding percentage"},
			{Name: "importe_retencion", Type: FieldTypeNumber, Description: "Withholding amount"},
			{Name: "total_albaran", Type: FieldTypeNumber, Required: true, Description: "Final total amount"},
		},
	}
}
