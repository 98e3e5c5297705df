// Package slug генерирует URL-слаги из заголовков статей.
package slug

import (
	"regexp"
	"strings"
)

var (
	wordSepRe  = regexp.MustCompile(`[\s_]+`)
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9-]`)
	dashRunsRe = regexp.MustCompile(`-+`)
)

// Make приводит заголовок к URL-слагу: нижний регистр, только латиница,
// цифры и дефисы, без повторов и краевых дефисов. Разделители слов
// превращаются в дефисы до отбрасывания прочих символов.
func Make(title string) string {
	s := strings.ToLower(title)
	s = wordSepRe.ReplaceAllString(s, "-")
	s = nonAlnumRe.ReplaceAllString(s, "")
	s = dashRunsRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
