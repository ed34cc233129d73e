package utils

import "encoding/json"

// ProjectFields reduces a value (or slice of values) to the requested JSON
// fields. The id field is always preserved. An empty field list returns the
// value unchanged.
func ProjectFields(data interface{}, fields []string) interface{} {
	if len(fields) == 0 {
		return data
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return data
	}

	allowed := make(map[string]bool, len(fields)+1)
	allowed["id"] = true
	for _, f := range fields {
		allowed[f] = true
	}

	var asSlice []map[string]interface{}
	if err := json.Unmarshal(raw, &asSlice); err == nil {
		for i := range asSlice {
			asSlice[i] = filterKeys(asSlice[i], allowed)
		}
		return asSlice
	}

	var asObject map[string]interface{}
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return filterKeys(asObject, allowed)
	}

	return data
}

func filterKeys(m map[string]interface{}, allowed map[string]bool) map[string]interface{} {
	out := make(map[string]interface{}, len(allowed))
	for key, value := range m {
		if allowed[key] {
			out[key] = value
		}
	}
	return out
}
