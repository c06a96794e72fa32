package shared

import (
	"strconv"
	"strings"
)

// GetPath resolves a dot-separated path (e.g. "account.planhat.id") against
// nested maps and slices. Numeric segments index into slices. The second
// return value is false when any segment along the path is missing.
func GetPath(root map[string]any, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}

	var current any = root
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[part]
			if !ok {
				return nil, false
			}
			current = value
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// GetDefined is GetPath that also treats an explicit nil as absent.
func GetDefined(root map[string]any, path string) (any, bool) {
	value, ok := GetPath(root, path)
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

// GetString returns the value at path when it is a string.
func GetString(root map[string]any, path string) string {
	value, ok := GetPath(root, path)
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return s
}

// SetPath writes value at a dot-separated path, creating intermediate maps
// as needed. A non-map value in the middle of the path is replaced.
func SetPath(root map[string]any, path string, value any) {
	if root == nil || path == "" {
		return
	}

	parts := strings.Split(path, ".")
	node := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[part] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = value
}
