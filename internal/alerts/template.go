package alerts

import (
	"regexp"
	"strconv"
	"strings"
)

// templatePattern matches `{{name}}` placeholders. Per design, this is
// intentionally the only template mechanism: a single regex pass over a
// flat string-keyed map, no general template engine.
var templatePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// renderTemplate substitutes `{{var}}` placeholders from vars. Unknown
// placeholders are left literal.
func renderTemplate(tpl string, vars map[string]string) string {
	return templatePattern.ReplaceAllStringFunc(tpl, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		if v, ok := vars[name]; ok {
			return v
		}
		return match
	})
}

// templateVars derives the substitution map from an evaluation context
// and the rule snapshot: reserved keys rule_name/category/severity plus
// one entry per context value, Number rendered as a decimal string and
// Array as a comma-joined list.
func templateVars(rule AlertRule, ctx Context) map[string]string {
	vars := map[string]string{
		"rule_name": rule.Name,
		"category":  rule.Category,
		"severity":  string(rule.Severity),
	}
	for k, v := range ctx.Values {
		vars[k] = formatValue(v)
	}
	return vars
}

func formatValue(v any) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}
