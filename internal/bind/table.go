package bind

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alnah/go-eform/internal/docx"
	"github.com/alnah/go-eform/internal/extract"
)

// fieldPattern matches [field] markers in a repeated row.
var fieldPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)

// tableWidthTwips is the grid width of generated tables (6.25in).
const tableWidthTwips = 9000

// bindTable renders a table value. In a table cell the placeholder is
// removed and its row repeated; other placeholders of the row are bound in
// each copy. In a body paragraph the placeholder must be the paragraph's only
// content and a generated table replaces the paragraph.
func (b *Binder) bindTable(doc *docx.Document, p docx.Paragraph, full string, segs []segment, m extract.Match, count int, t Table, data map[string]any) error {
	if p.InTableCell() {
		if _, _, err := replaceSpan(segs, m.Start, m.End, ""); err != nil {
			return fmt.Errorf("%w: %q", err, m.Name)
		}
		return b.expandRows(doc, p.Node.Ancestor("w:tr"), t, data)
	}

	if count > 1 || strings.TrimSpace(full[:m.Start]+full[m.End:]) != "" {
		return fmt.Errorf("%w: table placeholder %q must be alone in its paragraph", ErrPlaceholderBoundary, m.Name)
	}

	tbl := generatedTable(firstRunProperties(p), t)
	if tbl == nil {
		for _, tn := range p.Texts() {
			tn.SetText("")
		}
		return nil
	}
	p.Node.ReplaceWith(tbl)
	return nil
}

// expandRows replaces tr with one copy per record or row.
func (b *Binder) expandRows(doc *docx.Document, tr *docx.Node, t Table, data map[string]any) error {
	var clones []*docx.Node
	switch {
	case len(t.Records) > 0:
		for _, rec := range t.Records {
			row := tr.Clone()
			fillMarkers(row, rec)
			clones = append(clones, row)
		}
	default:
		for _, values := range t.Rows {
			row := tr.Clone()
			fillCells(row, values)
			clones = append(clones, row)
		}
	}

	if len(clones) == 0 {
		tr.Remove()
		return nil
	}
	tr.ReplaceWith(clones...)

	for _, row := range clones {
		for _, n := range row.Find(docx.Named("w:p"), nil) {
			if err := b.bindParagraph(doc, docx.Paragraph{Node: n}, data); err != nil {
				return err
			}
		}
	}
	return nil
}

// fillMarkers replaces [field] markers whose field is a key of rec.
// Brackets naming unknown fields are left as written.
func fillMarkers(row *docx.Node, rec map[string]any) {
	for _, n := range row.Find(docx.Named("w:p"), nil) {
		full, segs := layout(docx.Paragraph{Node: n})
		locs := fieldPattern.FindAllStringSubmatchIndex(full, -1)
		for i := len(locs) - 1; i >= 0; i-- {
			loc := locs[i]
			key := strings.TrimSpace(full[loc[2]:loc[3]])
			v, ok := rec[key]
			if !ok {
				continue
			}
			// Markers never cross run containers in practice; a marker that
			// does is left untouched.
			_, _, _ = replaceSpan(segs, loc[0], loc[1], Text(v))
		}
	}
}

// fillCells writes values into the row's cells by position.
func fillCells(row *docx.Node, values []string) {
	cells := docx.Row{Node: row}.Cells()
	for i, cell := range cells {
		if i >= len(values) {
			break
		}
		paras := cell.Paragraphs()
		if len(paras) == 0 {
			continue
		}
		texts := paras[0].Texts()
		if len(texts) == 0 {
			paras[0].Node.AppendChild(docx.NewTextRun(nil, values[i]))
			continue
		}
		texts[0].SetText(values[i])
		texts[0].SetAttr("xml:space", "preserve")
		for _, tn := range texts[1:] {
			tn.SetText("")
		}
	}
}

// generatedTable builds a bordered full-width table, or nil when t has no
// columns.
func generatedTable(props *docx.Node, t Table) *docx.Node {
	header, rows := t.columns()
	cols := len(header)
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return nil
	}
	colWidth := strconv.Itoa(tableWidthTwips / cols)

	tbl := docx.NewElement("w:tbl")
	tblPr := docx.NewElement("w:tblPr")
	tblPr.AppendChild(docx.NewElement("w:tblW", "w:w", "5000", "w:type", "pct"))
	borders := docx.NewElement("w:tblBorders")
	for _, side := range []string{"w:top", "w:left", "w:bottom", "w:right", "w:insideH", "w:insideV"} {
		borders.AppendChild(docx.NewElement(side, "w:val", "single", "w:sz", "4", "w:space", "0", "w:color", "auto"))
	}
	tblPr.AppendChild(borders)
	tbl.AppendChild(tblPr)

	grid := docx.NewElement("w:tblGrid")
	for range cols {
		grid.AppendChild(docx.NewElement("w:gridCol", "w:w", colWidth))
	}
	tbl.AppendChild(grid)

	if len(header) > 0 {
		bold := docx.NewElement("w:rPr")
		if props != nil {
			bold = props.Clone()
		}
		docx.RunProperty(bold, "w:b")
		tr := tableRow(bold, header, cols, colWidth)
		trPr := docx.NewElement("w:trPr")
		trPr.AppendChild(docx.NewElement("w:tblHeader"))
		tr.InsertChild(0, trPr)
		tbl.AppendChild(tr)
	}
	for _, r := range rows {
		tbl.AppendChild(tableRow(props, r, cols, colWidth))
	}
	return tbl
}

func tableRow(props *docx.Node, values []string, cols int, width string) *docx.Node {
	tr := docx.NewElement("w:tr")
	for i := range cols {
		tc := docx.NewElement("w:tc")
		tcPr := docx.NewElement("w:tcPr")
		tcPr.AppendChild(docx.NewElement("w:tcW", "w:w", width, "w:type", "dxa"))
		tc.AppendChild(tcPr)

		p := docx.NewElement("w:p")
		if i < len(values) && values[i] != "" {
			p.AppendChild(docx.NewTextRun(props, values[i]))
		}
		tc.AppendChild(p)
		tr.AppendChild(tc)
	}
	return tr
}

func firstRunProperties(p docx.Paragraph) *docx.Node {
	for _, r := range p.Runs() {
		if props := r.Node.Child("w:rPr"); props != nil {
			return props
		}
	}
	return nil
}
