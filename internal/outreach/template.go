package outreach

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render substitutes {{name}} placeholders in tpl from vars. Unknown
// placeholders resolve to the empty string. Anything that is not a
// well-formed {{word}} token (mismatched braces, spaces, empty names)
// is left untouched. A template with no placeholders comes back unchanged.
func Render(tpl string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(tpl, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		return vars[name]
	})
}

// FirstName extracts the first word of a contact name for greeting lines,
// falling back to "there" when no name is known.
func FirstName(contactName string) string {
	fields := strings.Fields(contactName)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}
