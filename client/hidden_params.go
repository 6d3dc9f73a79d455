package client

import (
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// HiddenParams is the ephemeral per-request map from a hidden field name to
// its original value. It exists only for record keeping and placeholder
// substitution by the proof-generation service; the raw values never appear
// in the public payload.
type HiddenParams map[string]any

// bodyPlaceholder is the literal token written into the body for a hidden
// field, e.g. "{passenger_name}".
func bodyPlaceholder(name string) string {
	return "{" + name + "}"
}

// queryPlaceholder is the double-brace token written into the URL for a
// hidden query parameter, distinguishing it from body placeholders.
func queryPlaceholder(name string) string {
	return "{{" + name + "}}"
}

// hideParameters strips the named sensitive fields from a structured body
// and from the URL's query string, recording original values out-of-band.
// The input body is never modified; untouched values pass through as-is.
// This runs before the payload is handed to the request builder: no code
// path may serialize the real values afterwards.
func hideParameters(body map[string]any, rawURL string, hidden []string) (map[string]any, string, HiddenParams) {
	values := HiddenParams{}
	if len(hidden) == 0 {
		return body, rawURL, values
	}

	outBody := body
	if body != nil {
		// Only top-level keys are replaced, so a shallow copy keeps the
		// caller's body intact.
		outBody = make(map[string]any, len(body))
		for k, v := range body {
			outBody[k] = v
		}
		for _, name := range hidden {
			if v, ok := outBody[name]; ok {
				values[name] = v
				outBody[name] = bodyPlaceholder(name)
			}
		}
	}

	outURL := hideQueryParameters(rawURL, hidden, values)
	return outBody, outURL, values
}

// hideInSerialized rewrites the named top-level fields of an
// already-serialized JSON body, preserving the exact formatting of every
// other byte. Proofs cover the serialized request, so untouched fields must
// survive byte-for-byte.
func hideInSerialized(body string, hidden []string) (string, HiddenParams) {
	values := HiddenParams{}
	if !gjson.Valid(body) {
		// Best-effort pass: an unparseable body flows through unmodified.
		return body, values
	}
	for _, name := range hidden {
		v := gjson.Get(body, name)
		if !v.Exists() {
			continue
		}
		rewritten, err := sjson.Set(body, name, bodyPlaceholder(name))
		if err != nil {
			continue
		}
		values[name] = v.Value()
		body = rewritten
	}
	return body, values
}

// hideQueryParameters rewrites hidden query parameter values to the
// double-brace placeholder, recording the decoded originals. Order and
// values of unrelated parameters are preserved byte-for-byte.
func hideQueryParameters(rawURL string, hidden []string, values HiddenParams) string {
	base, query, found := strings.Cut(rawURL, "?")
	if !found || query == "" {
		return rawURL
	}

	hiddenSet := make(map[string]struct{}, len(hidden))
	for _, name := range hidden {
		hiddenSet[name] = struct{}{}
	}

	parts := strings.Split(query, "&")
	modified := false
	for i, part := range parts {
		key, value, _ := strings.Cut(part, "=")
		if _, ok := hiddenSet[key]; !ok {
			continue
		}
		if _, seen := values[key]; !seen {
			decoded, err := url.QueryUnescape(value)
			if err != nil {
				decoded = value
			}
			values[key] = decoded
		}
		parts[i] = key + "=" + queryPlaceholder(key)
		modified = true
	}
	if !modified {
		return rawURL
	}
	return base + "?" + strings.Join(parts, "&")
}
