package redaction

import (
	"fmt"
	"strconv"
	"strings"

	gojson "github.com/coreos/go-json"
)

// ByteRange marks a half-open [Start, End) span of a serialized document.
type ByteRange struct {
	Start int `json:"fromIndex"`
	End   int `json:"toIndex"`
}

// FieldRanges resolves dot-notation paths to exact byte ranges in a
// serialized JSON document, so consumers can highlight or selectively
// disclose masked fields without re-parsing. Paths that do not resolve are
// skipped.
func FieldRanges(doc []byte, paths []string) ([]ByteRange, error) {
	var root gojson.Node
	if err := gojson.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("failed to parse JSON for offsets: %w", err)
	}

	ranges := make([]ByteRange, 0, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		node, err := nodeAtSegments(&root, strings.Split(path, "."))
		if err != nil {
			continue
		}
		// Node.Start/End are byte offsets into doc; End is inclusive,
		// Go slices are exclusive on end.
		start, end := node.Start, node.End+1
		if start < 0 || end > len(doc) || start > end {
			continue
		}
		ranges = append(ranges, ByteRange{Start: start, End: end})
	}
	return ranges, nil
}

// nodeAtSegments walks the positioned node tree following object keys and
// array indexes.
func nodeAtSegments(node *gojson.Node, segments []string) (*gojson.Node, error) {
	cur := node
	for i, seg := range segments {
		switch v := cur.Value.(type) {
		case map[string]gojson.Node:
			next, ok := v[seg]
			if !ok {
				return nil, fmt.Errorf("object key %q not found at segment %d", seg, i)
			}
			cur = &next
		case []gojson.Node:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return nil, fmt.Errorf("invalid array index %q at segment %d", seg, i)
			}
			if idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("array index %d out of bounds at segment %d", idx, i)
			}
			cur = &v[idx]
		default:
			return nil, fmt.Errorf("cannot traverse into %T at segment %d", v, i)
		}
	}
	return cur, nil
}
