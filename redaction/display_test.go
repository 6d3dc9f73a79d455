package redaction

import (
	"reflect"
	"testing"

	"zkproxy/options"
)

func TestBuildDisplayMasksRulePathsWithoutTouchingOriginal(t *testing.T) {
	response := map[string]any{
		"data": map[string]any{
			"passenger_name": "Alice Johnson",
			"status":         "confirmed",
		},
	}
	original := DeepCopy(response)

	display, meta := BuildDisplay(response, []options.RedactionRule{{Path: "data.passenger_name"}}, nil, nil)

	if !reflect.DeepEqual(response, original) {
		t.Fatalf("original response was modified: %+v", response)
	}
	if display == nil || meta == nil {
		t.Fatal("expected display copy and metadata")
	}
	if display["data"].(map[string]any)["passenger_name"] != MaskToken {
		t.Fatalf("field not masked: %+v", display)
	}
	if display["data"].(map[string]any)["status"] != "confirmed" {
		t.Fatalf("unrelated field changed: %+v", display)
	}
	if !meta.WasRedacted || meta.RedactedFieldCount != 1 {
		t.Fatalf("metadata wrong: %+v", meta)
	}
	if len(meta.RedactedPaths) != 1 || meta.RedactedPaths[0] != "data.passenger_name" {
		t.Fatalf("masked paths wrong: %+v", meta.RedactedPaths)
	}
}

func TestBuildDisplayResolvesJSONPaths(t *testing.T) {
	response := map[string]any{
		"data": map[string]any{
			"passenger_email": "a@b.com",
			"from":            "NYC",
		},
	}

	display, meta := BuildDisplay(response, nil,
		map[string]string{"passenger_email": "$.data.passenger_email"}, nil)

	if meta == nil || !meta.WasRedacted {
		t.Fatalf("expected redaction metadata, got %+v", meta)
	}
	if display["data"].(map[string]any)["passenger_email"] != MaskToken {
		t.Fatalf("JSONPath target not masked: %+v", display)
	}
	if display["data"].(map[string]any)["from"] != "NYC" {
		t.Fatalf("unrelated field changed: %+v", display)
	}
}

func TestBuildDisplayNothingToMask(t *testing.T) {
	response := map[string]any{"status": "ok"}

	display, meta := BuildDisplay(response, []options.RedactionRule{{Path: "missing.field"}},
		map[string]string{"x": "$.also.missing"}, nil)
	if display != nil || meta != nil {
		t.Fatalf("expected nil display and metadata, got %+v / %+v", display, meta)
	}

	display, meta = BuildDisplay(response, nil, nil, nil)
	if display != nil || meta != nil {
		t.Fatal("no rules configured should produce no display copy")
	}
}

func TestPathSegments(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"$.a.b", []string{"a", "b"}},
		{"$.items[1].name", []string{"items", "1", "name"}},
		{"$['data']['card_number']", []string{"data", "card_number"}},
		{"$", nil},
	}
	for _, tt := range tests {
		got := pathSegments(tt.path)
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("pathSegments(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestMaskSegmentsTraversesLists(t *testing.T) {
	value := map[string]any{
		"items": []any{
			map[string]any{"name": "John"},
			map[string]any{"name": "Jane"},
		},
	}
	if !maskSegments(value, []string{"items", "1", "name"}) {
		t.Fatal("expected mask to apply")
	}
	items := value["items"].([]any)
	if items[0].(map[string]any)["name"] != "John" {
		t.Fatal("wrong element masked")
	}
	if items[1].(map[string]any)["name"] != MaskToken {
		t.Fatal("target element not masked")
	}

	if maskSegments(value, []string{"items", "9", "name"}) {
		t.Fatal("out-of-bounds index must be a no-op")
	}
}
