package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var placeholder = regexp.MustCompile(`{(\$[^{}]*)}`)

// ResolveTemplate replaces every {$.json.path} token in template with the
// value found at that path in data. Tokens that resolve to nothing are
// replaced with an empty string.
func ResolveTemplate(template string, data map[string]any) string {
	return placeholder.ReplaceAllStringFunc(template, func(token string) string {
		path := strings.TrimSuffix(strings.TrimPrefix(token, "{"), "}")
		value, err := jsonpath.JsonPathLookup(data, path)
		if err != nil || value == nil {
			return ""
		}
		switch v := value.(type) {
		case string:
			return v
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprintf("%v", item))
			}
			return strings.Join(parts, "\n\n")
		}
		return fmt.Sprintf("%v", value)
	})
}
