package convert

import (
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

var classPattern = regexp.MustCompile(`^[a-z]+(?:[ -][a-z]+)*$`)

// sanitize restricts a body fragment to the markup the HTML writer emits.
func sanitize(fragment string) string {
	policyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements("p", "span", "br", "table", "tr", "td", "img")
		p.AllowAttrs("class").Matching(classPattern).OnElements("p", "span")
		p.AllowStyles(
			"margin-top", "margin-bottom", "margin-left", "line-height",
			"text-indent", "color", "font-size", "background-color", "width",
		).OnElements("p", "span", "td")
		p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td")
		p.AllowAttrs("width", "height").Matching(bluemonday.Integer).OnElements("img")
		p.AllowAttrs("src", "alt").OnElements("img")
		p.AllowDataURIImages()
		policy = p
	})
	return policy.Sanitize(fragment)
}
