package adapters

import (
	"regexp"

	"github.com/foldflow/pipeline/types"
)

var templatePattern = regexp.MustCompile(`\{\{\s*(input|config)\.([A-Za-z0-9_.-]+)\s*\}\}`)

// ResolveTemplate substitutes {{input.field}} and {{config.field}} placeholders
// by plain key lookup. A missing key yields an empty string, never an error;
// this is a pure string transform, not an expression language.
func ResolveTemplate(s string, input, config types.Data) string {
	if s == "" {
		return s
	}
	return templatePattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := templatePattern.FindStringSubmatch(match)
		scope, key := groups[1], groups[2]

		var source types.Data
		switch scope {
		case "input":
			source = input
		case "config":
			source = config
		}
		v, _ := source.GetString(key)
		return v
	})
}

// ResolveTemplateData applies ResolveTemplate to every string value of a map,
// leaving non-string values untouched.
func ResolveTemplateData(d, input, config types.Data) types.Data {
	if d == nil {
		return nil
	}
	out := make(types.Data, len(d))
	for k, v := range d {
		if s, ok := v.(string); ok {
			out[k] = ResolveTemplate(s, input, config)
			continue
		}
		out[k] = v
	}
	return out
}
