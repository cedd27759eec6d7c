package engine

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// paramRe matches :name placeholders. The leading group excludes a
// preceding colon so ::type cast syntax is not mistaken for a parameter.
var paramRe = regexp.MustCompile(`(^|[^:]):([A-Za-z_][A-Za-z0-9_]*)`)

// BindParams substitutes :name placeholders with SQL literals. Unused
// parameters are ignored; a placeholder with no matching parameter is an
// error, since executing it would fail with a less helpful message from
// the engine.
func BindParams(query string, params map[string]any) (string, error) {
	if !paramRe.MatchString(query) {
		return query, nil
	}

	var missing []string
	bound := paramRe.ReplaceAllStringFunc(query, func(match string) string {
		sub := paramRe.FindStringSubmatch(match)
		prefix, name := sub[1], sub[2]
		value, ok := params[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return prefix + literal(value)
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("unbound query parameters: %s", strings.Join(missing, ", "))
	}
	return bound, nil
}

// literal renders a parameter value as a SQL literal.
func literal(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%v", v)
	case time.Time:
		return fmt.Sprintf("TIMESTAMP '%s'", v.UTC().Format("2006-01-02 15:04:05"))
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprintf("%v", v), "'", "''") + "'"
	}
}
