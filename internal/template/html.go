package template

import (
	"fmt"
	"regexp"
	"strings"
)

// Fragment hygiene for before_html/after_html. Fragments are rejected when
// they carry inline styling, or when their tag nesting is unbalanced and a
// wrapper element would leak across a row-group boundary.

var (
	tagPattern         = regexp.MustCompile(`(?s)<\s*(/?)\s*([a-zA-Z][a-zA-Z0-9-]*)([^>]*)>`)
	inlineStylePattern = regexp.MustCompile(`(?i)\bstyle\s*=`)
)

// voidElements never take a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// checkFragment validates one HTML-bearing fragment.
func checkFragment(html string) error {
	if inlineStylePattern.MatchString(html) {
		return fmt.Errorf("inline style attributes are not permitted")
	}
	var stack []string
	for _, m := range tagPattern.FindAllStringSubmatch(html, -1) {
		closing := m[1] == "/"
		name := strings.ToLower(m[2])
		attrs := m[3]
		if name == "style" {
			return fmt.Errorf("style tags are not permitted")
		}
		if voidElements[name] || strings.HasSuffix(strings.TrimSpace(attrs), "/") {
			continue
		}
		if closing {
			if len(stack) == 0 || stack[len(stack)-1] != name {
				return fmt.Errorf("unbalanced closing tag </%s>", name)
			}
			stack = stack[:len(stack)-1]
			continue
		}
		stack = append(stack, name)
	}
	if len(stack) != 0 {
		return fmt.Errorf("unclosed tag <%s>", stack[len(stack)-1])
	}
	return nil
}
