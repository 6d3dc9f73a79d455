package options

import (
	"testing"
)

func TestResolveReturnsToolEntryWhenMapped(t *testing.T) {
	bookFlight := &ToolOptions{
		Private: &PrivateOptions{HiddenParameters: []string{"passenger_name"}},
	}
	defaults := &ToolOptions{}
	toolMap := Map{"book-flight": bookFlight}

	got := Resolve("book-flight", toolMap, defaults)
	if got != bookFlight {
		t.Fatalf("expected the tool's own entry, got %+v", got)
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	defaults := &ToolOptions{
		Private: &PrivateOptions{HiddenParameters: []string{"token"}},
	}
	toolMap := Map{"book-flight": {}}

	for _, name := range []string{"unknown-tool", ""} {
		got := Resolve(name, toolMap, defaults)
		if got != defaults {
			t.Fatalf("tool %q: expected default options, got %+v", name, got)
		}
	}
}

func TestResolveReturnsEmptyOptionsWhenNothingConfigured(t *testing.T) {
	got := Resolve("anything", nil, nil)
	if got == nil {
		t.Fatal("expected non-nil options")
	}
	if got.Public != nil || got.Private != nil || len(got.Redactions) != 0 {
		t.Fatalf("expected empty options, got %+v", got)
	}
}

func TestResolveDoesNotMutateSharedConfig(t *testing.T) {
	defaults := &ToolOptions{}
	toolMap := Map{"a": {Redactions: []RedactionRule{{Path: "response.x"}}}}

	first := Resolve("a", toolMap, defaults)
	second := Resolve("a", toolMap, defaults)
	if first != second {
		t.Fatal("resolution is not deterministic for the same inputs")
	}
	if len(toolMap) != 1 {
		t.Fatal("resolution mutated the tool map")
	}
}

func TestExtractToolNameChecksPathsInOrder(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"top level name", `{"name":"book-flight"}`, "book-flight"},
		{"params name", `{"params":{"name":"get-price"}}`, "get-price"},
		{"params toolName", `{"params":{"toolName":"fetch-data"}}`, "fetch-data"},
		{"top level wins over params", `{"name":"outer","params":{"name":"inner"}}`, "outer"},
		{"params name wins over toolName", `{"params":{"name":"a","toolName":"b"}}`, "a"},
		{"non-string name skipped", `{"name":42,"params":{"name":"inner"}}`, "inner"},
		{"no name", `{"method":"tools/call"}`, ""},
		{"empty body", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractToolName([]byte(tt.body)); got != tt.want {
				t.Fatalf("ExtractToolName(%s) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}
