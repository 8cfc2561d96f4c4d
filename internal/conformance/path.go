package conformance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var pathToken = regexp.MustCompile(`^\[(\d+)\]|^\.([A-Za-z0-9_\-]+)|^\$|^([A-Za-z0-9_\-]+)`)

// getByPath is a minimal JSONPath-like accessor supporting "$",
// "$.a.b[0].c", and a ".length"/".length()" suffix, matching the shape
// of original_source/proper_test.py's get_by_path.
func getByPath(doc interface{}, path string) (interface{}, error) {
	path = strings.TrimSpace(path)
	if path == "$" {
		return doc, nil
	}

	lengthMode := false
	switch {
	case strings.HasSuffix(path, ".length()"):
		lengthMode = true
		path = strings.TrimSuffix(path, ".length()")
	case strings.HasSuffix(path, ".length"):
		lengthMode = true
		path = strings.TrimSuffix(path, ".length")
	}

	if !strings.HasPrefix(path, "$") {
		path = "$." + path
	}

	cur := doc
	i := 0
	for i < len(path) {
		m := pathToken.FindStringSubmatch(path[i:])
		if m == nil {
			return nil, fmt.Errorf("unsupported path syntax near %q in %q", path[i:], path)
		}
		i += len(m[0])

		switch {
		case m[1] != "":
			idx, _ := strconv.Atoi(m[1])
			list, ok := cur.([]interface{})
			if !ok {
				return nil, fmt.Errorf("path %q expected list, got %T", path, cur)
			}
			if idx < 0 || idx >= len(list) {
				return nil, fmt.Errorf("path %q index out of range: %d", path, idx)
			}
			cur = list[idx]
		case m[2] != "":
			obj, ok := cur.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("path %q expected object, got %T", path, cur)
			}
			v, exists := obj[m[2]]
			if !exists {
				return nil, fmt.Errorf("path %q missing key %q", path, m[2])
			}
			cur = v
		case m[3] != "":
			obj, ok := cur.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("path %q expected object, got %T", path, cur)
			}
			v, exists := obj[m[3]]
			if !exists {
				return nil, fmt.Errorf("path %q missing key %q", path, m[3])
			}
			cur = v
		default:
			// lone "$" matched, nothing to do
		}
	}

	if lengthMode {
		switch v := cur.(type) {
		case []interface{}:
			return len(v), nil
		case map[string]interface{}:
			return len(v), nil
		case string:
			return len(v), nil
		default:
			return nil, fmt.Errorf("length() applied to non-sized type %T", cur)
		}
	}
	return cur, nil
}
