package usecases

import (
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// RenderTemplate fills {{field}} placeholders from a flat data record.
// Unknown fields render as empty strings. Literal substitution only: no
// conditionals, loops or escaping.
func RenderTemplate(tpl string, data map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		return data[key]
	})
}

// BlankMessage reports whether a rendered message is too short to send.
// Guards against misconfigured templates producing blank notifications.
func BlankMessage(msg string) bool {
	return len(strings.TrimSpace(msg)) < 2
}
