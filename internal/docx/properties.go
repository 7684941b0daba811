package docx

// Child element order of w:rPr (CT_RPr).
var runPropertyOrder = []string{
	"w:rStyle", "w:rFonts", "w:b", "w:bCs", "w:i", "w:iCs", "w:caps", "w:smallCaps",
	"w:strike", "w:dstrike", "w:outline", "w:shadow", "w:emboss", "w:imprint",
	"w:noProof", "w:snapToGrid", "w:vanish", "w:webHidden", "w:color", "w:spacing",
	"w:w", "w:kern", "w:position", "w:sz", "w:szCs", "w:highlight", "w:u",
	"w:effect", "w:bdr", "w:shd", "w:fitText", "w:vertAlign", "w:rtl", "w:cs",
	"w:em", "w:lang", "w:eastAsianLayout", "w:specVanish", "w:oMath", "w:rPrChange",
}

// Child element order of w:pPr (CT_PPr).
var paragraphPropertyOrder = []string{
	"w:pStyle", "w:keepNext", "w:keepLines", "w:pageBreakBefore", "w:framePr",
	"w:widowControl", "w:numPr", "w:suppressLineNumbers", "w:pBdr", "w:shd",
	"w:tabs", "w:suppressAutoHyphens", "w:kinsoku", "w:wordWrap", "w:overflowPunct",
	"w:topLinePunct", "w:autoSpaceDE", "w:autoSpaceDN", "w:bidi", "w:adjustRightInd",
	"w:snapToGrid", "w:spacing", "w:ind", "w:contextualSpacing", "w:mirrorIndents",
	"w:suppressOverlap", "w:jc", "w:textDirection", "w:textAlignment",
	"w:textboxTightWrap", "w:outlineLvl", "w:divId", "w:cnfStyle", "w:rPr",
	"w:sectPr", "w:pPrChange",
}

// RunProperty returns the named child of a w:rPr, inserting it at its schema
// position when absent.
func RunProperty(rPr *Node, qname string) *Node {
	return ensureOrdered(rPr, qname, runPropertyOrder)
}

// ParagraphProperty returns the named child of a w:pPr, inserting it at its
// schema position when absent.
func ParagraphProperty(pPr *Node, qname string) *Node {
	return ensureOrdered(pPr, qname, paragraphPropertyOrder)
}

func ensureOrdered(parent *Node, qname string, order []string) *Node {
	if c := parent.Child(qname); c != nil {
		return c
	}
	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}
	want, known := rank[qname]

	c := NewElement(qname)
	if !known {
		parent.AppendChild(c)
		return c
	}
	for i, sibling := range parent.Children {
		if sibling.Type != ElementNode {
			continue
		}
		if r, ok := rank[qualify(sibling.Name)]; ok && r > want {
			parent.InsertChild(i, c)
			return c
		}
	}
	parent.AppendChild(c)
	return c
}

// Toggle reports whether an on/off property such as w:b is set.
func Toggle(rPr *Node, qname string) bool {
	if rPr == nil {
		return false
	}
	c := rPr.Child(qname)
	if c == nil {
		return false
	}
	v, ok := c.AttrValue("w:val")
	if !ok {
		return true
	}
	switch v {
	case "0", "false", "off", "none":
		return false
	}
	return true
}
