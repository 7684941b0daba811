package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// NodeType distinguishes elements from character data and markup.
type NodeType int

const (
	DocumentNode NodeType = iota
	ElementNode
	TextNode
	ProcInstNode
	CommentNode
	DirectiveNode
)

// Node is one item of a parsed XML part.
// Element and attribute names keep their raw prefix in Name.Space, so a part
// serializes back with exactly the prefixes it was read with.
type Node struct {
	Type     NodeType
	Name     xml.Name
	Attr     []xml.Attr
	Data     string
	Children []*Node
	Parent   *Node
}

// ParseXML builds a node tree from raw XML. The returned node is a
// DocumentNode holding the prolog and the root element.
func ParseXML(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	doc := &Node{Type: DocumentNode}
	cur := doc

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Type: ElementNode, Name: t.Name, Attr: append([]xml.Attr(nil), t.Attr...)}
			cur.AppendChild(n)
			cur = n
		case xml.EndElement:
			if cur == doc || cur.Name != t.Name {
				return nil, fmt.Errorf("%w: unexpected </%s>", ErrMalformedXML, qualify(t.Name))
			}
			cur = cur.Parent
		case xml.CharData:
			cur.AppendChild(&Node{Type: TextNode, Data: string(t)})
		case xml.Comment:
			cur.AppendChild(&Node{Type: CommentNode, Data: string(t)})
		case xml.ProcInst:
			cur.AppendChild(&Node{Type: ProcInstNode, Name: xml.Name{Local: t.Target}, Data: string(t.Inst)})
		case xml.Directive:
			cur.AppendChild(&Node{Type: DirectiveNode, Data: string(t)})
		}
	}

	if cur != doc {
		return nil, fmt.Errorf("%w: unclosed <%s>", ErrMalformedXML, qualify(cur.Name))
	}
	return doc, nil
}

// Bytes serializes the node and its descendants.
func (n *Node) Bytes() []byte {
	var buf bytes.Buffer
	n.write(&buf)
	return buf.Bytes()
}

func (n *Node) write(buf *bytes.Buffer) {
	switch n.Type {
	case DocumentNode:
		for _, c := range n.Children {
			c.write(buf)
		}
	case ElementNode:
		name := qualify(n.Name)
		buf.WriteByte('<')
		buf.WriteString(name)
		for _, a := range n.Attr {
			buf.WriteByte(' ')
			buf.WriteString(qualify(a.Name))
			buf.WriteString(`="`)
			_ = xml.EscapeText(buf, []byte(a.Value))
			buf.WriteByte('"')
		}
		if len(n.Children) == 0 {
			buf.WriteString("/>")
			return
		}
		buf.WriteByte('>')
		for _, c := range n.Children {
			c.write(buf)
		}
		buf.WriteString("</")
		buf.WriteString(name)
		buf.WriteByte('>')
	case TextNode:
		_ = xml.EscapeText(buf, []byte(n.Data))
	case ProcInstNode:
		buf.WriteString("<?")
		buf.WriteString(n.Name.Local)
		if n.Data != "" {
			buf.WriteByte(' ')
			buf.WriteString(n.Data)
		}
		buf.WriteString("?>")
	case CommentNode:
		buf.WriteString("<!--")
		buf.WriteString(n.Data)
		buf.WriteString("-->")
	case DirectiveNode:
		buf.WriteString("<!")
		buf.WriteString(n.Data)
		buf.WriteByte('>')
	}
}

func qualify(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

// ParseName splits a prefixed name such as "w:p".
func ParseName(qname string) xml.Name {
	if prefix, local, ok := strings.Cut(qname, ":"); ok {
		return xml.Name{Space: prefix, Local: local}
	}
	return xml.Name{Local: qname}
}

// NewElement creates an element. attrs are name/value pairs.
func NewElement(qname string, attrs ...string) *Node {
	n := &Node{Type: ElementNode, Name: ParseName(qname)}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, xml.Attr{Name: ParseName(attrs[i]), Value: attrs[i+1]})
	}
	return n
}

// NewText creates a character data node.
func NewText(s string) *Node {
	return &Node{Type: TextNode, Data: s}
}

// Is reports whether n is an element with the given prefixed name.
func (n *Node) Is(qname string) bool {
	if n == nil || n.Type != ElementNode {
		return false
	}
	return n.Name == ParseName(qname)
}

// AttrValue returns the value of a prefixed attribute.
func (n *Node) AttrValue(qname string) (string, bool) {
	name := ParseName(qname)
	for _, a := range n.Attr {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets a prefixed attribute, appending it when absent.
func (n *Node) SetAttr(qname, value string) {
	name := ParseName(qname)
	for i := range n.Attr {
		if n.Attr[i].Name == name {
			n.Attr[i].Value = value
			return
		}
	}
	n.Attr = append(n.Attr, xml.Attr{Name: name, Value: value})
}

// RemoveAttr deletes a prefixed attribute and reports whether it existed.
func (n *Node) RemoveAttr(qname string) bool {
	name := ParseName(qname)
	for i := range n.Attr {
		if n.Attr[i].Name == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return true
		}
	}
	return false
}

// Child returns the first child element with the given name.
func (n *Node) Child(qname string) *Node {
	name := ParseName(qname)
	for _, c := range n.Children {
		if c.Type == ElementNode && c.Name == name {
			return c
		}
	}
	return nil
}

// Elements returns the child elements with the given name.
func (n *Node) Elements(qname string) []*Node {
	name := ParseName(qname)
	var out []*Node
	for _, c := range n.Children {
		if c.Type == ElementNode && c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Text concatenates the character data directly under n.
func (n *Node) Text() string {
	var sb strings.Builder
	for _, c := range n.Children {
		if c.Type == TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// SetText replaces the children of n with a single character data node.
func (n *Node) SetText(s string) {
	n.Children = nil
	if s != "" {
		n.AppendChild(NewText(s))
	}
}

// AppendChild adds c as the last child of n.
func (n *Node) AppendChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

// InsertChild adds c at position i.
func (n *Node) InsertChild(i int, c *Node) {
	c.Parent = n
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = c
}

// Index returns the position of n among its parent's children, or -1.
func (n *Node) Index() int {
	if n.Parent == nil {
		return -1
	}
	for i, c := range n.Parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// InsertAfter places nodes right after n in its parent.
func (n *Node) InsertAfter(nodes ...*Node) {
	i := n.Index()
	if i < 0 {
		return
	}
	for j, c := range nodes {
		n.Parent.InsertChild(i+1+j, c)
	}
}

// InsertBefore places nodes right before n in its parent.
func (n *Node) InsertBefore(nodes ...*Node) {
	i := n.Index()
	if i < 0 {
		return
	}
	for j, c := range nodes {
		n.Parent.InsertChild(i+j, c)
	}
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	i := n.Index()
	if i < 0 {
		return
	}
	p := n.Parent
	p.Children = append(p.Children[:i], p.Children[i+1:]...)
	n.Parent = nil
}

// ReplaceWith substitutes n by nodes in its parent.
func (n *Node) ReplaceWith(nodes ...*Node) {
	n.InsertAfter(nodes...)
	n.Remove()
}

// Clone returns a deep copy of n without a parent.
func (n *Node) Clone() *Node {
	c := &Node{
		Type: n.Type,
		Name: n.Name,
		Attr: append([]xml.Attr(nil), n.Attr...),
		Data: n.Data,
	}
	for _, child := range n.Children {
		c.AppendChild(child.Clone())
	}
	return c
}

// Ancestor returns the closest enclosing element with the given name.
func (n *Node) Ancestor(qname string) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Is(qname) {
			return p
		}
	}
	return nil
}

// Find returns descendants matching fn in document order. Descent stops
// below any node for which skip returns true; skip may be nil.
func (n *Node) Find(match, skip func(*Node) bool) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		for _, c := range cur.Children {
			if match(c) {
				out = append(out, c)
			}
			if skip != nil && skip(c) {
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// Named returns a matcher for elements with the given prefixed name.
func Named(qname string) func(*Node) bool {
	name := ParseName(qname)
	return func(n *Node) bool {
		return n.Type == ElementNode && n.Name == name
	}
}

// RootElement returns the first element child of a DocumentNode.
func (n *Node) RootElement() *Node {
	for _, c := range n.Children {
		if c.Type == ElementNode {
			return c
		}
	}
	return nil
}
