package extraction

import (
	"sort"
	"strings"
)

// TransformSchema rewrites a draft JSON schema into the shape strict
// structured-output backends accept: $defs references are inlined, every
// property is listed as required, and optional properties become
// [type, "null"] unions so the model can return null for them. The input
// map is never modified.
//
// Running the transform on its own output yields the same schema, so a
// schema can pass through the pipeline more than once without drift.
func TransformSchema(schema map[string]interface{}) map[string]interface{} {
	transformed, ok := deepCopyValue(schema).(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}

	if defs, ok := transformed["$defs"].(map[string]interface{}); ok {
		delete(transformed, "$defs")
		if inlined, ok := inlineRefs(transformed, defs).(map[string]interface{}); ok {
			transformed = inlined
		}
	}

	props, ok := transformed["properties"].(map[string]interface{})
	if !ok {
		return transformed
	}

	names := sortedKeys(props)
	required := make([]interface{}, 0, len(names))
	for _, name := range names {
		required = append(required, name)
	}
	transformed["required"] = required

	// Optional means absent from the pre-transform required list or
	// carrying a default; both let the model answer null.
	originalRequired := stringSet(schema["required"])
	for _, name := range names {
		prop, ok := props[name].(map[string]interface{})
		if !ok {
			continue
		}
		_, hasDefault := prop["default"]
		makeNullable(prop, !originalRequired[name] || hasDefault)
	}

	for _, name := range names {
		if prop, ok := props[name].(map[string]interface{}); ok {
			transformArrayItems(prop)
		}
	}

	return transformed
}

// inlineRefs replaces #/$defs/ references with deep copies of their
// definitions. A reference node's own siblings are dropped, matching how
// the schemas are generated (references never carry siblings).
func inlineRefs(node interface{}, defs map[string]interface{}) interface{} {
	switch v := node.(type) {
	case map[string]interface{}:
		if ref, ok := v["$ref"].(string); ok && strings.HasPrefix(ref, "#/$defs/") {
			name := ref[strings.LastIndex(ref, "/")+1:]
			if def, found := defs[name]; found {
				return inlineRefs(deepCopyValue(def), defs)
			}
		}
		out := make(map[string]interface{}, len(v))
		for key, val := range v {
			out[key] = inlineRefs(val, defs)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = inlineRefs(item, defs)
		}
		return out
	default:
		return node
	}
}

// makeNullable folds an anyOf union into the [type, "null"] list form and,
// for optional properties, guarantees "null" is accepted.
func makeNullable(prop map[string]interface{}, optional bool) {
	normalizeAnyOf(prop)

	switch t := prop["type"].(type) {
	case string:
		if optional && t != "null" {
			prop["type"] = []interface{}{t, "null"}
		}
	case []interface{}:
		if optional && !containsString(t, "null") {
			prop["type"] = append(t, "null")
		}
	}
}

// normalizeAnyOf collapses anyOf entries into a type union list ending in
// "null". Entries without a type key contribute nothing; an anyOf of only
// null becomes ["null"]. The default key stays untouched.
func normalizeAnyOf(prop map[string]interface{}) {
	anyOf, ok := prop["anyOf"].([]interface{})
	if !ok {
		return
	}

	types := make([]interface{}, 0, len(anyOf))
	for _, entry := range anyOf {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if t, ok := m["type"].(string); ok && t != "null" {
			types = append(types, t)
		}
	}

	if len(types) > 0 {
		prop["type"] = append(types, "null")
	} else {
		prop["type"] = []interface{}{"null"}
	}
	delete(prop, "anyOf")
}

// transformArrayItems applies the required/nullable rewrite one level down,
// to the object schema of array elements.
func transformArrayItems(prop map[string]interface{}) {
	if !isArrayType(prop["type"]) {
		return
	}
	items, ok := prop["items"].(map[string]interface{})
	if !ok {
		return
	}
	itemProps, ok := items["properties"].(map[string]interface{})
	if !ok {
		return
	}

	itemRequired := stringSet(items["required"])

	names := sortedKeys(itemProps)
	required := make([]interface{}, 0, len(names))
	for _, name := range names {
		required = append(required, name)
	}
	items["required"] = required

	for _, name := range names {
		itemProp, ok := itemProps[name].(map[string]interface{})
		if !ok {
			continue
		}
		_, hasDefault := itemProp["default"]
		makeNullable(itemProp, !itemRequired[name] || hasDefault)
	}
}

func isArrayType(t interface{}) bool {
	switch v := t.(type) {
	case string:
		return v == "array"
	case []interface{}:
		return containsString(v, "array")
	default:
		return false
	}
}

func containsString(list []interface{}, want string) bool {
	for _, item := range list {
		if s, ok := item.(string); ok && s == want {
			return true
		}
	}
	return false
}

// stringSet collects string members from a required list, which may be
// []string when built in code or []interface{} after a JSON round trip.
func stringSet(v interface{}) map[string]bool {
	set := make(map[string]bool)
	switch list := v.(type) {
	case []interface{}:
		for _, item := range list {
			if s, ok := item.(string); ok {
				set[s] = true
			}
		}
	case []string:
		for _, s := range list {
			set[s] = true
		}
	}
	return set
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for key, item := range val {
			out[key] = deepCopyValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
