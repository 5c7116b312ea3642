package models

import "encoding/json"

// FieldType enumerates the JSON schema primitive types used by extraction
// schemas.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeInteger FieldType = "integer"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeArray   FieldType = "array"
	FieldTypeObject  FieldType = "object"
)

// FieldSpec describes one property of an extraction schema.
type FieldSpec struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
	// Default replaces a null returned by the model for an optional field.
	// A nil default means nulls are kept.
	Default interface{}
	// Items describes array elements that are objects; ItemType covers
	// arrays of scalars.
	Items    *ObjectSchema
	ItemType FieldType
}

// ObjectSchema is a declarative schema for one extractable record type.
// It renders to a draft JSON schema and drives response parsing.
type ObjectSchema struct {
	Name        string
	Description string
	Fields      []FieldSpec
}

// Validatable is implemented by records that check their required fields
// after decoding.
type Validatable interface {
	Validate() error
}

// Field returns the FieldSpec declared under name, or nil.
func (s *ObjectSchema) Field(name string) *FieldSpec {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// JSONSchema renders the schema in standard draft form. Optional fields
// without a default become anyOf unions with null; optional fields with a
// default keep their plain type and carry the default. The required list
// names only the required fields. Strict-mode normalization happens later.
func (s *ObjectSchema) JSONSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(s.Fields))
	required := make([]interface{}, 0, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		props[f.Name] = f.propertySchema()
		if f.Required {
			required = append(required, f.Name)
		}
	}
	schema := map[string]interface{}{
		"type":                 "object",
		"title":                s.Name,
		"properties":           props,
		"additionalProperties": false,
	}
	if s.Description != "" {
		schema["description"] = s.Description
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (f *FieldSpec) propertySchema() map[string]interface{} {
	base := map[string]interface{}{"type": string(f.Type)}
	if f.Type == FieldTypeArray {
		switch {
		case f.Items != nil:
			base["items"] = f.Items.JSONSchema()
		case f.ItemType != "":
			base["items"] = map[string]interface{}{"type": string(f.ItemType)}
		}
	}
	if f.Required {
		if f.Description != "" {
			base["description"] = f.Description
		}
		return base
	}
	if f.Default != nil {
		base["default"] = f.Default
		if f.Description != "" {
			base["description"] = f.Description
		}
		return base
	}
	prop := map[string]interface{}{
		"anyOf": []interface{}{
			base,
			map[string]interface{}{"type": "null"},
		},
		"default": nil,
	}
	if f.Description != "" {
		prop["description"] = f.Description
	}
	return prop
}

// toMap converts any record to its JSON object form. Used by the field
// matcher and the extraction result payload.
func toMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
