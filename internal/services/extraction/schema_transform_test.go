package extraction

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/scriba/internal/models"
)

func TestTransformSchemaRequiredListsEveryProperty(t *testing.T) {
	out := TransformSchema(models.AlbaranSchema().JSONSchema())

	props := out["properties"].(map[string]interface{})
	required := out["required"].([]interface{})
	require.Len(t, required, len(props))
	for _, name := range required {
		assert.Contains(t, props, name.(string))
	}
}

func TestTransformSchemaOptionalBecomesNullable(t *testing.T) {
	out := TransformSchema(models.AlbaranSchema().JSONSchema())
	props := out["properties"].(map[string]interface{})

	nifCif := props["nif_cif"].(map[string]interface{})
	assert.Equal(t, []interface{}{"string", "null"}, nifCif["type"])
	_, hasAnyOf := nifCif["anyOf"]
	assert.False(t, hasAnyOf)

	numero := props["numero_albaran"].(map[string]interface{})
	assert.Equal(t, "string", numero["type"])
}

func TestTransformSchemaKeepsDefaults(t *testing.T) {
	out := TransformSchema(models.BankStatementSchema().JSONSchema())
	props := out["properties"].(map[string]interface{})

	moneda := props["moneda"].(map[string]interface{})
	assert.Equal(t, []interface{}{"string", "null"}, moneda["type"])
	assert.Equal(t, "EUR", moneda["default"])
}

func TestTransformSchemaArrayItems(t *testing.T) {
	out := TransformSchema(models.AlbaranSchema().JSONSchema())
	props := out["properties"].(map[string]interface{})

	productos := props["productos"].(map[string]interface{})
	assert.Equal(t, "array", productos["type"])

	items := productos["items"].(map[string]interface{})
	itemProps := items["properties"].(map[string]interface{})
	required := items["required"].([]interface{})
	require.Len(t, required, len(itemProps))

	producto := itemProps["producto"].(map[string]interface{})
	assert.Equal(t, "string", producto["type"])

	descripcion := itemProps["descripcion"].(map[string]interface{})
	assert.Equal(t, []interface{}{"string", "null"}, descripcion["type"])
}

func TestTransformSchemaNullableArrayKeepsItems(t *testing.T) {
	out := TransformSchema(models.BankStatementSchema().JSONSchema())
	props := out["properties"].(map[string]interface{})

	lineas := props["lineas"].(map[string]interface{})
	assert.Equal(t, []interface{}{"array", "null"}, lineas["type"])

	items := lineas["items"].(map[string]interface{})
	itemProps := items["properties"].(map[string]interface{})
	itemRequired := items["required"].([]interface{})
	assert.Len(t, itemRequired, len(itemProps))
}

func TestTransformSchemaInlinesDefs(t *testing.T) {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"lines": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"$ref": "#/$defs/Line"},
			},
		},
		"required": []interface{}{"lines"},
		"$defs": map[string]interface{}{
			"Line": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{"type": "string"},
				},
				"required": []interface{}{"name"},
			},
		},
	}

	out := TransformSchema(schema)

	_, hasDefs := out["$defs"]
	assert.False(t, hasDefs)

	lines := out["properties"].(map[string]interface{})["lines"].(map[string]interface{})
	items := lines["items"].(map[string]interface{})
	assert.Equal(t, "object", items["type"])
	assert.Equal(t, []interface{}{"name"}, items["required"])

	// the input keeps its reference untouched
	orig := schema["properties"].(map[string]interface{})["lines"].(map[string]interface{})["items"].(map[string]interface{})
	assert.Equal(t, "#/$defs/Line", orig["$ref"])
}

func TestTransformSchemaIdempotent(t *testing.T) {
	schemas := map[string]*models.ObjectSchema{
		"deliverynote": models.AlbaranSchema(),
		"bank":         models.BankStatementSchema(),
		"payroll":      models.PayrollSchema(),
	}

	for name, schema := range schemas {
		once := TransformSchema(schema.JSONSchema())
		twice := TransformSchema(once)
		assert.True(t, reflect.DeepEqual(once, twice), name)
	}
}
