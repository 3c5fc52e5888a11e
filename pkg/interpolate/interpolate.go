// Package interpolate resolves ${path.to.value} placeholders against a
// nested variable bag.
package interpolate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate replaces every ${path.to.value} placeholder in template with
// the value found by dot-notation traversal into variables. Unresolved paths
// are left as the literal placeholder text so missing-variable bugs stay
// visible in logs instead of being silently erased.
func Interpolate(template string, variables map[string]any) string {
	if template == "" || !strings.Contains(template, "${") {
		return template
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(placeholder string) string {
		path := placeholderPattern.FindStringSubmatch(placeholder)[1]

		value, found := Resolve(path, variables)
		if !found {
			return placeholder
		}

		return stringify(value)
	})
}

// Resolve traverses variables along a dot-separated path. The second return
// value reports whether every segment resolved.
func Resolve(path string, variables map[string]any) (any, bool) {
	segments := strings.Split(strings.TrimSpace(path), ".")

	var current any = variables

	for _, segment := range segments {
		container, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = container[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// stringify renders a resolved value for textual substitution. Composite
// values are JSON-encoded so structures survive round-trips through log
// messages and prompts.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return "null"
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}
