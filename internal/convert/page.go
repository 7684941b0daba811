package convert

import "github.com/alnah/go-eform/internal/docx"

// Page is the printed page geometry in inches.
type Page struct {
	Width        float64
	Height       float64
	MarginTop    float64
	MarginRight  float64
	MarginBottom float64
	MarginLeft   float64
}

// A4 with one-inch margins, used when a document declares no section.
var defaultPage = Page{
	Width:        11906.0 / 1440,
	Height:       16838.0 / 1440,
	MarginTop:    1,
	MarginRight:  1,
	MarginBottom: 1,
	MarginLeft:   1,
}

// PageOf reads the page size and margins of the document's final section.
// Values the document leaves out keep the A4 defaults.
func PageOf(doc *docx.Document) Page {
	p := defaultPage
	body := doc.Body()
	if body == nil {
		return p
	}
	sect := body.Child("w:sectPr")
	if sect == nil {
		return p
	}
	inches := func(n *docx.Node, attr string, dst *float64) {
		if n == nil {
			return
		}
		if v, ok := numAttr(n, attr); ok && v >= 0 {
			*dst = v / 1440
		}
	}
	sz := sect.Child("w:pgSz")
	inches(sz, "w:w", &p.Width)
	inches(sz, "w:h", &p.Height)
	mar := sect.Child("w:pgMar")
	inches(mar, "w:top", &p.MarginTop)
	inches(mar, "w:right", &p.MarginRight)
	inches(mar, "w:bottom", &p.MarginBottom)
	inches(mar, "w:left", &p.MarginLeft)
	return p
}
