package utils

import (
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// lineBreakPolicy lets through nothing but the <br> tags LineBreaks adds.
var lineBreakPolicy = bluemonday.NewPolicy().AllowElements("br")

// LineBreaks renders plain user text as HTML: markup is escaped and newlines become <br>.
func LineBreaks(text string) template.HTML {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	escaped := strings.ReplaceAll(template.HTMLEscapeString(text), "\n", "<br>")
	return template.HTML(lineBreakPolicy.Sanitize(escaped))
}
