package convert

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"image"
	"image/png"
	"path"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/alnah/go-eform/internal/docx"
)

// htmlWriter renders the main part of a document as an HTML fragment and
// collects the visible text for glyph checks.
type htmlWriter struct {
	doc  *docx.Document
	out  strings.Builder
	text strings.Builder
}

// renderBody returns the HTML fragment of the document body and its text.
func renderBody(doc *docx.Document) (fragment, text string) {
	w := &htmlWriter{doc: doc}
	if body := doc.Body(); body != nil {
		w.blocks(body)
	}
	return w.out.String(), w.text.String()
}

func (w *htmlWriter) blocks(parent *docx.Node) {
	for _, n := range parent.Children {
		if n.Type != docx.ElementNode {
			continue
		}
		switch {
		case n.Is("w:p"):
			w.paragraph(n)
		case n.Is("w:tbl"):
			w.table(n)
		case n.Is("w:sdt"):
			if content := n.Child("w:sdtContent"); content != nil {
				w.blocks(content)
			}
		}
	}
}

func (w *htmlWriter) paragraph(p *docx.Node) {
	pPr := p.Child("w:pPr")
	w.out.WriteString("<p")
	if class := alignClass(pPr); class != "" {
		w.out.WriteString(` class="` + class + `"`)
	}
	if style := paragraphStyle(pPr); style != "" {
		w.out.WriteString(` style="` + style + `"`)
	}
	w.out.WriteString(">")

	start := w.out.Len()
	w.inline(p)
	if w.out.Len() == start {
		w.out.WriteString("<br>")
	}
	w.out.WriteString("</p>")
	w.text.WriteByte('\n')
}

func alignClass(pPr *docx.Node) string {
	if pPr == nil {
		return ""
	}
	jc := pPr.Child("w:jc")
	if jc == nil {
		return ""
	}
	switch v, _ := jc.AttrValue("w:val"); v {
	case "center":
		return "center"
	case "right", "end":
		return "right"
	case "both", "distribute":
		return "both"
	}
	return ""
}

func paragraphStyle(pPr *docx.Node) string {
	if pPr == nil {
		return ""
	}
	var decls []string
	if sp := pPr.Child("w:spacing"); sp != nil {
		if v, ok := numAttr(sp, "w:before"); ok {
			decls = append(decls, "margin-top: "+pt(v/20))
		}
		if v, ok := numAttr(sp, "w:after"); ok {
			decls = append(decls, "margin-bottom: "+pt(v/20))
		}
		if v, ok := numAttr(sp, "w:line"); ok && v > 0 {
			rule, _ := sp.AttrValue("w:lineRule")
			if rule == "" || rule == "auto" {
				decls = append(decls, "line-height: "+num(v/240))
			} else {
				decls = append(decls, "line-height: "+pt(v/20))
			}
		}
	}
	if ind := pPr.Child("w:ind"); ind != nil {
		left, ok := numAttr(ind, "w:left")
		if !ok {
			left, ok = numAttr(ind, "w:start")
		}
		if ok && left != 0 {
			decls = append(decls, "margin-left: "+pt(left/20))
		}
		if v, ok := numAttr(ind, "w:firstLine"); ok && v != 0 {
			decls = append(decls, "text-indent: "+pt(v/20))
		} else if v, ok := numAttr(ind, "w:hanging"); ok && v != 0 {
			decls = append(decls, "text-indent: "+pt(-v/20))
		}
	}
	return strings.Join(decls, "; ")
}

// inline renders the run-level content of a paragraph or of a container
// nested in one.
func (w *htmlWriter) inline(parent *docx.Node) {
	for _, n := range parent.Children {
		if n.Type != docx.ElementNode {
			continue
		}
		switch {
		case n.Is("w:r"):
			w.run(n)
		case n.Is("w:hyperlink"), n.Is("w:ins"), n.Is("w:smartTag"), n.Is("w:fldSimple"), n.Is("w:customXml"):
			w.inline(n)
		case n.Is("w:sdt"):
			if content := n.Child("w:sdtContent"); content != nil {
				w.inline(content)
			}
		}
	}
}

func (w *htmlWriter) run(r *docx.Node) {
	rPr := r.Child("w:rPr")
	var content strings.Builder
	for _, c := range r.Children {
		if c.Type != docx.ElementNode {
			continue
		}
		switch {
		case c.Is("w:t"):
			t := c.Text()
			content.WriteString(html.EscapeString(t))
			w.text.WriteString(t)
		case c.Is("w:tab"):
			content.WriteString(`<span class="tab"></span>`)
		case c.Is("w:br"):
			if v, _ := c.AttrValue("w:type"); v == "page" {
				content.WriteString(`<span class="page-break"></span>`)
			} else {
				content.WriteString("<br>")
			}
		case c.Is("w:cr"):
			content.WriteString("<br>")
		case c.Is("w:noBreakHyphen"):
			content.WriteString("-")
		case c.Is("w:drawing"):
			content.WriteString(w.image(c))
		}
	}
	if content.Len() == 0 {
		return
	}

	classes, style := runFormat(rPr)
	if classes == "" && style == "" {
		w.out.WriteString(content.String())
		return
	}
	w.out.WriteString("<span")
	if classes != "" {
		w.out.WriteString(` class="` + classes + `"`)
	}
	if style != "" {
		w.out.WriteString(` style="` + style + `"`)
	}
	w.out.WriteString(">" + content.String() + "</span>")
}

func runFormat(rPr *docx.Node) (classes, style string) {
	if rPr == nil {
		return "", ""
	}
	var cls, decls []string
	if docx.Toggle(rPr, "w:b") {
		cls = append(cls, "b")
	}
	if docx.Toggle(rPr, "w:i") {
		cls = append(cls, "i")
	}
	if u := rPr.Child("w:u"); u != nil {
		if v, _ := u.AttrValue("w:val"); v != "none" && v != "0" {
			cls = append(cls, "u")
		}
	}
	if docx.Toggle(rPr, "w:strike") || docx.Toggle(rPr, "w:dstrike") {
		cls = append(cls, "s")
	}
	if va := rPr.Child("w:vertAlign"); va != nil {
		switch v, _ := va.AttrValue("w:val"); v {
		case "superscript":
			cls = append(cls, "sup")
		case "subscript":
			cls = append(cls, "sub")
		}
	}

	if c := rPr.Child("w:color"); c != nil {
		if v, _ := c.AttrValue("w:val"); isHexColor(v) {
			decls = append(decls, "color: #"+strings.ToLower(v))
		}
	}
	if sz := rPr.Child("w:sz"); sz != nil {
		if v, ok := numAttr(sz, "w:val"); ok && v > 0 {
			decls = append(decls, "font-size: "+pt(v/2))
		}
	}
	if shd := rPr.Child("w:shd"); shd != nil {
		if v, _ := shd.AttrValue("w:fill"); isHexColor(v) {
			decls = append(decls, "background-color: #"+strings.ToLower(v))
		}
	}
	return strings.Join(cls, " "), strings.Join(decls, "; ")
}

// image renders an inline drawing as an <img> carrying its bytes.
func (w *htmlWriter) image(drawing *docx.Node) string {
	blips := drawing.Find(docx.Named("a:blip"), nil)
	if len(blips) == 0 {
		return ""
	}
	id, ok := blips[0].AttrValue("r:embed")
	if !ok {
		return ""
	}
	name, ok := w.doc.Relationship(id)
	if !ok {
		return ""
	}
	data, ok := w.doc.Part(name)
	if !ok {
		return ""
	}
	ct, ok := docx.ImageContentType(path.Ext(name))
	if !ok {
		return ""
	}
	if ct == "image/bmp" || ct == "image/tiff" {
		if data, ok = toPNG(data); !ok {
			return ""
		}
		ct = "image/png"
	}

	var attrs string
	if ext := drawing.Find(docx.Named("wp:extent"), nil); len(ext) > 0 {
		cx, okX := numAttr(ext[0], "cx")
		cy, okY := numAttr(ext[0], "cy")
		if okX && okY && cx > 0 && cy > 0 {
			attrs = fmt.Sprintf(` width="%d" height="%d"`, emuToPx(cx), emuToPx(cy))
		}
	}
	return `<img src="data:` + ct + ";base64," + base64.StdEncoding.EncodeToString(data) + `"` + attrs + ` alt="">`
}

// toPNG re-encodes formats browsers do not display inline.
func toPNG(data []byte) ([]byte, bool) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// cell is one w:tc placed on the table grid.
type cell struct {
	node  *docx.Node
	col   int
	span  int
	merge string // "", "restart" or "continue"
}

func (w *htmlWriter) table(tbl *docx.Node) {
	var grid [][]cell
	for _, tr := range tbl.Elements("w:tr") {
		var row []cell
		col := 0
		for _, tc := range tr.Elements("w:tc") {
			c := cell{node: tc, col: col, span: 1}
			if tcPr := tc.Child("w:tcPr"); tcPr != nil {
				if gs := tcPr.Child("w:gridSpan"); gs != nil {
					if v, ok := numAttr(gs, "w:val"); ok && v > 1 {
						c.span = int(v)
					}
				}
				if vm := tcPr.Child("w:vMerge"); vm != nil {
					c.merge = "continue"
					if v, _ := vm.AttrValue("w:val"); v == "restart" {
						c.merge = "restart"
					}
				}
			}
			row = append(row, c)
			col += c.span
		}
		grid = append(grid, row)
	}

	w.out.WriteString("<table>")
	for r, row := range grid {
		w.out.WriteString("<tr>")
		for _, c := range row {
			if c.merge == "continue" {
				continue
			}
			w.out.WriteString("<td")
			if c.span > 1 {
				w.out.WriteString(` colspan="` + strconv.Itoa(c.span) + `"`)
			}
			if c.merge == "restart" {
				if n := rowSpan(grid, r, c.col); n > 1 {
					w.out.WriteString(` rowspan="` + strconv.Itoa(n) + `"`)
				}
			}
			if style := cellStyle(c.node.Child("w:tcPr")); style != "" {
				w.out.WriteString(` style="` + style + `"`)
			}
			w.out.WriteString(">")
			w.blocks(c.node)
			w.out.WriteString("</td>")
		}
		w.out.WriteString("</tr>")
	}
	w.out.WriteString("</table>")
}

// rowSpan counts the rows a vertically merged cell starting at (r, col)
// covers.
func rowSpan(grid [][]cell, r, col int) int {
	n := 1
	for _, row := range grid[r+1:] {
		found := false
		for _, c := range row {
			if c.col == col && c.merge == "continue" {
				found = true
				break
			}
		}
		if !found {
			break
		}
		n++
	}
	return n
}

func cellStyle(tcPr *docx.Node) string {
	if tcPr == nil {
		return ""
	}
	var decls []string
	if tcW := tcPr.Child("w:tcW"); tcW != nil {
		if typ, _ := tcW.AttrValue("w:type"); typ == "dxa" {
			if v, ok := numAttr(tcW, "w:w"); ok && v > 0 {
				decls = append(decls, "width: "+pt(v/20))
			}
		}
	}
	if shd := tcPr.Child("w:shd"); shd != nil {
		if v, _ := shd.AttrValue("w:fill"); isHexColor(v) {
			decls = append(decls, "background-color: #"+strings.ToLower(v))
		}
	}
	return strings.Join(decls, "; ")
}

// numAttr reads a numeric attribute such as a twips, half-point or EMU value.
func numAttr(n *docx.Node, attr string) (float64, bool) {
	v, ok := n.AttrValue(attr)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func emuToPx(emu float64) int {
	return int(emu/9525 + 0.5)
}

func pt(v float64) string {
	return num(v) + "pt"
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isHexColor(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
