// Package redaction masks fields in already-retrieved structured values,
// for display and selective disclosure. Masking is best-effort: a path that
// does not resolve is skipped, never an error.
package redaction

import (
	"strings"

	"zkproxy/options"
)

// MaskToken replaces redacted values.
const MaskToken = "****"

// Apply masks the value at each rule's dot-notation path, mutating value in
// place. It returns the paths that were actually masked. Re-applying the
// same rules is stable: an already-masked field is re-masked to the same
// token.
func Apply(value map[string]any, rules []options.RedactionRule) []string {
	var masked []string
	for _, rule := range rules {
		if rule.Path == "" {
			continue
		}
		if redactAtPath(value, rule.Path) {
			masked = append(masked, rule.Path)
		}
	}
	return masked
}

// redactAtPath navigates dot-separated segments through nested mappings and
// replaces the final segment's value with the mask token. Intermediate
// containers are untouched; a missing or non-mapping segment makes the rule
// a no-op.
func redactAtPath(value map[string]any, path string) bool {
	parts := strings.Split(path, ".")
	current := value
	for i, part := range parts {
		if i == len(parts)-1 {
			if _, ok := current[part]; ok {
				current[part] = MaskToken
				return true
			}
			return false
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return false
		}
		current = next
	}
	return false
}

// DeepCopy clones a structured value so one copy can be masked while the
// original stays intact.
func DeepCopy(value map[string]any) map[string]any {
	if value == nil {
		return nil
	}
	out := make(map[string]any, len(value))
	for k, v := range value {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return DeepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
