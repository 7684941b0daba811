// Package normalize rewrites run and paragraph formatting to one canonical
// font, size and line spacing so every rendered form looks the same whatever
// fonts the template author used.
package normalize

import (
	"errors"
	"strconv"

	"github.com/alnah/go-eform/internal/docx"
)

// ErrNoBody is returned for documents without a w:body.
var ErrNoBody = errors.New("document has no body")

// Defaults: Times New Roman 12pt, 1.15 line spacing, 6pt after.
const (
	DefaultFamily         = "Times New Roman"
	DefaultSizeHalfPoints = 24
	DefaultLine           = 276
	DefaultLineRule       = "auto"
	DefaultBefore         = 0
	DefaultAfter          = 120
)

var fontSlots = []string{"w:ascii", "w:hAnsi", "w:cs", "w:eastAsia"}

var themeSlots = []string{"w:asciiTheme", "w:hAnsiTheme", "w:cstheme", "w:eastAsiaTheme"}

// Normalizer holds the canonical formatting.
type Normalizer struct {
	Family         string
	SizeHalfPoints int
	Line           int
	LineRule       string
	Before         int
	After          int
}

// New returns a Normalizer with the default formatting.
func New() Normalizer {
	return Normalizer{
		Family:         DefaultFamily,
		SizeHalfPoints: DefaultSizeHalfPoints,
		Line:           DefaultLine,
		LineRule:       DefaultLineRule,
		Before:         DefaultBefore,
		After:          DefaultAfter,
	}
}

// Normalize applies the canonical formatting to every paragraph and run of
// doc, table cells included. It reports whether anything changed, so a second
// call on the same document returns false.
func (n Normalizer) Normalize(doc *docx.Document) (bool, error) {
	if doc.Body() == nil {
		return false, ErrNoBody
	}
	n = n.withDefaults()

	var changed bool
	for _, p := range doc.Paragraphs() {
		if n.paragraph(p) {
			changed = true
		}
		for _, r := range p.Runs() {
			if n.run(r) {
				changed = true
			}
		}
	}
	return changed, nil
}

func (n Normalizer) withDefaults() Normalizer {
	def := New()
	if n.Family == "" {
		n.Family = def.Family
	}
	if n.SizeHalfPoints <= 0 {
		n.SizeHalfPoints = def.SizeHalfPoints
	}
	if n.Line <= 0 {
		n.Line = def.Line
	}
	if n.LineRule == "" {
		n.LineRule = def.LineRule
	}
	return n
}

func (n Normalizer) paragraph(p docx.Paragraph) bool {
	var spacing *docx.Node
	if pPr := p.Node.Child("w:pPr"); pPr != nil {
		spacing = pPr.Child("w:spacing")
	}
	want := map[string]string{
		"w:line":     strconv.Itoa(n.Line),
		"w:lineRule": n.LineRule,
		"w:before":   strconv.Itoa(n.Before),
		"w:after":    strconv.Itoa(n.After),
	}
	if spacing != nil && matches(spacing, want) {
		return false
	}
	spacing = docx.ParagraphProperty(p.Properties(), "w:spacing")
	setAll(spacing, want)
	return true
}

func (n Normalizer) run(r docx.Run) bool {
	var changed bool
	rPr := r.Node.Child("w:rPr")
	if rPr == nil {
		rPr = r.Properties()
		changed = true
	}

	fonts := docx.RunProperty(rPr, "w:rFonts")
	for _, slot := range themeSlots {
		if fonts.RemoveAttr(slot) {
			changed = true
		}
	}
	for _, slot := range fontSlots {
		if v, _ := fonts.AttrValue(slot); v != n.Family {
			fonts.SetAttr(slot, n.Family)
			changed = true
		}
	}

	size := strconv.Itoa(n.SizeHalfPoints)
	for _, name := range []string{"w:sz", "w:szCs"} {
		el := rPr.Child(name)
		if el == nil {
			el = docx.RunProperty(rPr, name)
		}
		if v, _ := el.AttrValue("w:val"); v != size {
			el.SetAttr("w:val", size)
			changed = true
		}
	}
	return changed
}

func matches(n *docx.Node, want map[string]string) bool {
	for k, v := range want {
		if got, _ := n.AttrValue(k); got != v {
			return false
		}
	}
	return true
}

func setAll(n *docx.Node, attrs map[string]string) {
	// Fixed order keeps the serialized output stable.
	for _, k := range []string{"w:before", "w:after", "w:line", "w:lineRule"} {
		n.SetAttr(k, attrs[k])
	}
}
