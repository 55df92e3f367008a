package templating

import (
	"html"
	"regexp"
)

// Variables are the values substituted into {{placeholder}} tokens.
type Variables map[string]string

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Substitute replaces every {{name}} token with its value. Unknown names become "".
func Substitute(text string, vars Variables) string {
	if text == "" {
		return ""
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		match := placeholderPattern.FindStringSubmatch(token)
		if len(match) < 2 {
			return ""
		}
		return vars[match[1]]
	})
}

// SubstituteHTML is Substitute for markup: inserted values are HTML-escaped,
// the surrounding text is left as written.
func SubstituteHTML(markup string, vars Variables) string {
	escaped := make(Variables, len(vars))
	for k, v := range vars {
		escaped[k] = html.EscapeString(v)
	}
	return Substitute(markup, escaped)
}

// With returns a copy of vars with the given pairs set.
func (v Variables) With(pairs ...string) Variables {
	out := make(Variables, len(v)+len(pairs)/2)
	for k, val := range v {
		out[k] = val
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i]] = pairs[i+1]
	}
	return out
}
