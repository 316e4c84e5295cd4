// Package placeholder resolves {{dotted.path}} markers against decoded JSON
// maps. Response templates, notification bodies and form layouts share it.
package placeholder

import (
	"regexp"
	"strings"
)

var pattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Lookup resolves a dotted path such as "resident.name" in data. A present
// key holding null reports false.
func Lookup(data map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, current != nil
}

// Whole returns the path when s, ignoring surrounding space, is exactly one
// placeholder.
func Whole(s string) (string, bool) {
	m := pattern.FindStringSubmatch(s)
	if m == nil || m[0] != strings.TrimSpace(s) {
		return "", false
	}
	return m[1], true
}

// Replace substitutes every placeholder in s with render(path).
func Replace(s string, render func(path string) string) string {
	return pattern.ReplaceAllStringFunc(s, func(match string) string {
		return render(pattern.FindStringSubmatch(match)[1])
	})
}
