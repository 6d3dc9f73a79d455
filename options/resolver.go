package options

import (
	"github.com/tidwall/gjson"
)

// Map associates tool names with their options.
type Map map[string]*ToolOptions

// Resolve picks the options applying to a call. Resolution always succeeds:
//  1. the tool's own entry, when the name is known and mapped
//  2. otherwise the configured default
//  3. otherwise empty options
//
// The result is deterministic for a given (toolName, map, default) and the
// shared configuration is never mutated.
func Resolve(toolName string, toolMap Map, defaults *ToolOptions) *ToolOptions {
	if toolName != "" {
		if opts, ok := toolMap[toolName]; ok && opts != nil {
			return opts
		}
	}
	if defaults != nil {
		return defaults
	}
	return &ToolOptions{}
}

// toolNamePaths are checked in order. They mirror how JSON-RPC shaped
// tool-call payloads carry the tool name; the proof-generation service
// matches requests the same way.
var toolNamePaths = []string{"name", "params.name", "params.toolName"}

// ExtractToolName pulls the tool name out of a raw JSON request body.
// Returns "" when the body carries none.
func ExtractToolName(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	for _, path := range toolNamePaths {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}
