package docx

import "strings"

// Paragraph is a w:p element.
type Paragraph struct{ Node *Node }

// Run is a w:r element.
type Run struct{ Node *Node }

// Table is a w:tbl element.
type Table struct{ Node *Node }

// Row is a w:tr element.
type Row struct{ Node *Node }

// Cell is a w:tc element.
type Cell struct{ Node *Node }

// isParagraph stops descent into nested paragraphs (text boxes).
func isParagraph(n *Node) bool { return n.Is("w:p") }

// Paragraphs returns every paragraph of the body in document order,
// including paragraphs inside table cells and nested tables.
func (d *Document) Paragraphs() []Paragraph {
	nodes := d.Body().Find(Named("w:p"), nil)
	out := make([]Paragraph, len(nodes))
	for i, n := range nodes {
		out[i] = Paragraph{n}
	}
	return out
}

// Walk calls fn for every paragraph in document order and stops at the
// first error. Paragraphs inserted by fn are not visited.
func (d *Document) Walk(fn func(Paragraph) error) error {
	for _, p := range d.Paragraphs() {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// Tables returns every table of the body in document order.
func (d *Document) Tables() []Table {
	nodes := d.Body().Find(Named("w:tbl"), nil)
	out := make([]Table, len(nodes))
	for i, n := range nodes {
		out[i] = Table{n}
	}
	return out
}

// Texts returns the w:t elements of the paragraph in order.
func (p Paragraph) Texts() []*Node {
	return p.Node.Find(Named("w:t"), isParagraph)
}

// Text concatenates the paragraph's w:t content.
func (p Paragraph) Text() string {
	var sb strings.Builder
	for _, t := range p.Texts() {
		sb.WriteString(t.Text())
	}
	return sb.String()
}

// Runs returns the runs of the paragraph, including runs nested in
// hyperlinks, fields and content controls.
func (p Paragraph) Runs() []Run {
	nodes := p.Node.Find(Named("w:r"), isParagraph)
	out := make([]Run, len(nodes))
	for i, n := range nodes {
		out[i] = Run{n}
	}
	return out
}

// InTableCell reports whether the paragraph belongs to a table cell.
func (p Paragraph) InTableCell() bool {
	return p.Node.Ancestor("w:tc") != nil
}

// Properties returns the w:pPr element, creating it when absent.
func (p Paragraph) Properties() *Node {
	return ensureFirst(p.Node, "w:pPr")
}

// Text concatenates the run's w:t content.
func (r Run) Text() string {
	var sb strings.Builder
	for _, t := range r.Node.Elements("w:t") {
		sb.WriteString(t.Text())
	}
	return sb.String()
}

// Properties returns the w:rPr element, creating it when absent.
func (r Run) Properties() *Node {
	return ensureFirst(r.Node, "w:rPr")
}

// Rows returns the table rows, including rows wrapped in content controls.
func (t Table) Rows() []Row {
	var out []Row
	for _, n := range t.Node.Find(Named("w:tr"), func(n *Node) bool { return n.Is("w:tr") || n.Is("w:tbl") }) {
		out = append(out, Row{n})
	}
	return out
}

// Cells returns the row's cells.
func (r Row) Cells() []Cell {
	var out []Cell
	for _, n := range r.Node.Find(Named("w:tc"), func(n *Node) bool { return n.Is("w:tc") }) {
		out = append(out, Cell{n})
	}
	return out
}

// Paragraphs returns the cell's own paragraphs, excluding nested tables.
func (c Cell) Paragraphs() []Paragraph {
	var out []Paragraph
	for _, n := range c.Node.Find(Named("w:p"), func(n *Node) bool { return n.Is("w:p") || n.Is("w:tbl") }) {
		out = append(out, Paragraph{n})
	}
	return out
}

// Text joins the cell's paragraph text with newlines.
func (c Cell) Text() string {
	paras := c.Paragraphs()
	parts := make([]string, len(paras))
	for i, p := range paras {
		parts[i] = p.Text()
	}
	return strings.Join(parts, "\n")
}

// NewTextRun builds a run holding s, with a copy of props when non-nil.
func NewTextRun(props *Node, s string) *Node {
	r := NewElement("w:r")
	if props != nil {
		r.AppendChild(props.Clone())
	}
	r.AppendChild(NewTextElement(s))
	return r
}

// NewTextElement builds a w:t that preserves surrounding whitespace.
func NewTextElement(s string) *Node {
	t := NewElement("w:t", "xml:space", "preserve")
	t.SetText(s)
	return t
}

// ensureFirst returns the child named qname, inserting it as the first child
// when absent. Property elements must precede content in WordprocessingML.
func ensureFirst(parent *Node, qname string) *Node {
	if c := parent.Child(qname); c != nil {
		return c
	}
	c := NewElement(qname)
	parent.InsertChild(0, c)
	return c
}
