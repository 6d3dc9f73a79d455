// Package options holds the per-tool configuration consumed by the proxy
// client: which request fields are public, which are hidden, and which
// response fields may be revealed. Options are resolved once per call and
// never mutated.
package options

import (
	"encoding/json"
)

// ResponseMatch describes a value the proof-generation service is expected
// to find in the upstream response.
type ResponseMatch struct {
	Value    string `json:"value,omitempty"`
	JSONPath string `json:"jsonPath,omitempty"`
	XPath    string `json:"xPath,omitempty"`
}

// RedactionRule marks a dot-notation path in the proof material to mask,
// e.g. "response.data.card_number".
type RedactionRule struct {
	Path string `json:"path"`
	// Type of redaction; only "mask" is currently produced. Kept on the
	// wire for forward compatibility with the proof-generation service.
	Type string `json:"type,omitempty"`
}

// PublicOptions are request fields disclosed in the generated proof.
// Unrecognized keys round-trip through Extra.
type PublicOptions struct {
	Method  string            `json:"-"`
	Headers map[string]string `json:"-"`
	Timeout int               `json:"-"` // milliseconds
	Extra   map[string]any    `json:"-"`
}

const (
	keyMethod  = "method"
	keyHeaders = "headers"
	keyTimeout = "timeout"
)

// MarshalJSON emits the recognized fields plus any opaque extras.
func (p PublicOptions) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+3)
	for k, v := range p.Extra {
		out[k] = v
	}
	if p.Method != "" {
		out[keyMethod] = p.Method
	}
	if len(p.Headers) > 0 {
		out[keyHeaders] = p.Headers
	}
	if p.Timeout > 0 {
		out[keyTimeout] = p.Timeout
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits recognized keys from opaque extras.
func (p *PublicOptions) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PublicOptions{}
	for k, v := range raw {
		switch k {
		case keyMethod:
			if err := json.Unmarshal(v, &p.Method); err != nil {
				return err
			}
		case keyHeaders:
			if err := json.Unmarshal(v, &p.Headers); err != nil {
				return err
			}
		case keyTimeout:
			if err := json.Unmarshal(v, &p.Timeout); err != nil {
				return err
			}
		default:
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[k] = val
		}
	}
	return nil
}

// PrivateOptions are request fields excluded from the public proof payload.
type PrivateOptions struct {
	// Names of top-level body fields and query parameters whose real
	// values must never reach the proof-generation service in cleartext.
	HiddenParameters []string `json:"-"`

	// Substitution values for hidden placeholders. Populated per request
	// by the parameter hider; configuring it statically is also valid.
	ParamValues map[string]string `json:"-"`

	// Values the remote service should assert on the response.
	ResponseMatches []ResponseMatch `json:"-"`

	// Opaque forward-compatible fields.
	Extra map[string]any `json:"-"`
}

const (
	keyHiddenParameters = "hiddenParameters"
	keyParamValues      = "paramValues"
	keyResponseMatches  = "responseMatches"
	keyHideRequestBody  = "hideRequestBody"
)

// MarshalJSON emits the recognized fields plus any opaque extras.
func (p PrivateOptions) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+3)
	for k, v := range p.Extra {
		out[k] = v
	}
	if len(p.HiddenParameters) > 0 {
		out[keyHiddenParameters] = p.HiddenParameters
	}
	if len(p.ParamValues) > 0 {
		out[keyParamValues] = p.ParamValues
	}
	if len(p.ResponseMatches) > 0 {
		out[keyResponseMatches] = p.ResponseMatches
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits recognized keys from opaque extras.
func (p *PrivateOptions) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PrivateOptions{}
	for k, v := range raw {
		switch k {
		case keyHiddenParameters:
			if err := json.Unmarshal(v, &p.HiddenParameters); err != nil {
				return err
			}
		case keyParamValues:
			if err := json.Unmarshal(v, &p.ParamValues); err != nil {
				return err
			}
		case keyResponseMatches:
			if err := json.Unmarshal(v, &p.ResponseMatches); err != nil {
				return err
			}
		default:
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[k] = val
		}
	}
	return nil
}

// WirePayload builds the privateOptions object actually sent to the
// proof-generation service. When parameters were hidden, their values travel
// under "paramValues" and the raw hiddenParameters list (and any
// hideRequestBody hint) is withheld: the service substitutes placeholders
// from paramValues, it never sees the hiding instructions themselves.
func (p *PrivateOptions) WirePayload(hidden map[string]any) map[string]any {
	out := make(map[string]any)
	if p != nil {
		for k, v := range p.Extra {
			if k == keyHideRequestBody && len(hidden) > 0 {
				continue
			}
			out[k] = v
		}
		if len(p.ResponseMatches) > 0 {
			out[keyResponseMatches] = p.ResponseMatches
		}
		if len(p.ParamValues) > 0 && len(hidden) == 0 {
			out[keyParamValues] = p.ParamValues
		}
		if len(p.HiddenParameters) > 0 && len(hidden) == 0 {
			out[keyHiddenParameters] = p.HiddenParameters
		}
	}
	if len(hidden) > 0 {
		merged := make(map[string]any, len(hidden))
		if p != nil {
			for k, v := range p.ParamValues {
				merged[k] = v
			}
		}
		for k, v := range hidden {
			merged[k] = v
		}
		out[keyParamValues] = merged
	}
	return out
}

// ToolOptions is the per-tool proof configuration. Immutable once
// constructed; looked up by tool name.
type ToolOptions struct {
	Public  *PublicOptions  `json:"public_options,omitempty"`
	Private *PrivateOptions `json:"private_options,omitempty"`

	// Ordered path selectors marking response fields to mask in proofs.
	Redactions []RedactionRule `json:"redactions,omitempty"`

	// Display-purpose map from field name to its JSONPath in the response,
	// e.g. {"passenger_name": "$.data.passenger_name"}.
	ResponseRedactionPaths map[string]string `json:"response_redaction_paths,omitempty"`
}

// HiddenParameters returns the configured hidden parameter names, or nil.
func (o *ToolOptions) HiddenParameters() []string {
	if o == nil || o.Private == nil {
		return nil
	}
	return o.Private.HiddenParameters
}

// TimeoutMS returns the configured public timeout in milliseconds, or def.
func (o *ToolOptions) TimeoutMS(def int) int {
	if o == nil || o.Public == nil || o.Public.Timeout <= 0 {
		return def
	}
	return o.Public.Timeout
}
