package redaction

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	jp "github.com/reclaimprotocol/jsonpathplus-go"
	"go.uber.org/zap"

	"zkproxy/options"
	"zkproxy/shared"
)

// BuildDisplay produces a display-safe copy of a tool response: the ordered
// redaction rules (dot paths) are applied first, then every configured
// JSONPath (field name -> "$.data.x") is resolved and masked. The input
// response is never modified. Returns nil metadata when nothing matched.
func BuildDisplay(
	response map[string]any,
	rules []options.RedactionRule,
	jsonPaths map[string]string,
	logger *shared.Logger,
) (map[string]any, *shared.RedactionMetadata) {
	if logger == nil {
		logger = shared.NopLogger()
	}
	if response == nil || (len(rules) == 0 && len(jsonPaths) == 0) {
		return nil, nil
	}

	display := DeepCopy(response)
	masked := Apply(display, rules)

	if len(jsonPaths) > 0 {
		serialized, err := json.Marshal(display)
		if err == nil {
			// Deterministic order regardless of map iteration
			names := make([]string, 0, len(jsonPaths))
			for name := range jsonPaths {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				for _, path := range maskJSONPath(display, serialized, jsonPaths[name]) {
					masked = append(masked, path)
				}
			}
		} else {
			logger.Debug("skipping JSONPath display redaction", zap.Error(err))
		}
	}

	if len(masked) == 0 {
		return nil, nil
	}
	return display, &shared.RedactionMetadata{
		RedactedFieldCount: len(masked),
		RedactedPaths:      masked,
		WasRedacted:        true,
	}
}

// maskJSONPath evaluates a JSONPath expression against the serialized value
// and masks every match in the structured copy. Unresolvable expressions are
// skipped; display redaction is never fatal.
func maskJSONPath(value map[string]any, serialized []byte, expr string) []string {
	if expr == "" {
		return nil
	}
	results, err := jp.Query(expr, string(serialized))
	if err != nil {
		return nil
	}
	var masked []string
	for _, r := range results {
		segments := pathSegments(r.Path)
		if len(segments) == 0 {
			continue
		}
		if maskSegments(value, segments) {
			masked = append(masked, strings.Join(segments, "."))
		}
	}
	return masked
}

// pathSegments converts a JSONPath like $.a[1].b to segments ["a","1","b"].
func pathSegments(path string) []string {
	p := strings.TrimPrefix(path, "$")
	p = strings.TrimPrefix(p, ".")
	if p == "" {
		return nil
	}
	segments := make([]string, 0)
	cur := strings.Builder{}
	inBracket := false
	for _, r := range p {
		switch r {
		case '.':
			if !inBracket {
				if cur.Len() > 0 {
					segments = append(segments, cur.String())
					cur.Reset()
				}
				continue
			}
		case '[':
			if cur.Len() > 0 {
				segments = append(segments, cur.String())
				cur.Reset()
			}
			inBracket = true
			continue
		case ']':
			if inBracket {
				seg := strings.Trim(cur.String(), "'\"")
				cur.Reset()
				inBracket = false
				segments = append(segments, seg)
				continue
			}
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		segments = append(segments, cur.String())
	}
	return segments
}

// maskSegments walks maps and slices by segments and masks the final value.
func maskSegments(value any, segments []string) bool {
	if len(segments) == 0 {
		return false
	}
	last := len(segments) - 1
	cur := value
	for i := 0; i < last; i++ {
		switch t := cur.(type) {
		case map[string]any:
			next, ok := t[segments[i]]
			if !ok {
				return false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(segments[i])
			if err != nil || idx < 0 || idx >= len(t) {
				return false
			}
			cur = t[idx]
		default:
			return false
		}
	}
	switch t := cur.(type) {
	case map[string]any:
		if _, ok := t[segments[last]]; !ok {
			return false
		}
		t[segments[last]] = MaskToken
		return true
	case []any:
		idx, err := strconv.Atoi(segments[last])
		if err != nil || idx < 0 || idx >= len(t) {
			return false
		}
		t[idx] = MaskToken
		return true
	default:
		return false
	}
}
