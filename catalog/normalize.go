package catalog

import "sort"

// NormalizeSchema rewrites a tool input schema for strict function calling:
// every declared property becomes required, per-property defaults are
// stripped, and undeclared parameters are rejected. The transformation is
// idempotent and never mutates its input. Schemas without a properties map
// pass through unchanged.
func NormalizeSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}
	out := deepCopy(schema)

	props, ok := out["properties"].(map[string]any)
	if !ok {
		return out
	}

	required := toStringSlice(out["required"])
	seen := make(map[string]bool, len(required))
	for _, key := range required {
		seen[key] = true
	}
	var missing []string
	for key := range props {
		if !seen[key] {
			missing = append(missing, key)
		}
	}
	// map iteration order is random; keep the appended tail deterministic
	sort.Strings(missing)
	out["required"] = append(required, missing...)

	for _, value := range props {
		if prop, ok := value.(map[string]any); ok {
			delete(prop, "default")
		}
	}

	if _, ok := out["additionalProperties"]; !ok {
		out["additionalProperties"] = false
	}

	return out
}

func toStringSlice(v any) []string {
	switch typed := v.(type) {
	case []string:
		out := make([]string, len(typed))
		copy(out, typed)
		return out
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func deepCopy(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = copyValue(value)
	}
	return out
}

func copyValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return deepCopy(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		out := make([]string, len(typed))
		copy(out, typed)
		return out
	default:
		return v
	}
}
