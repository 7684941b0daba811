package bind

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/alnah/go-eform/internal/docx"
)

// markdownParser handles emphasis, strikethrough, lists and autolinks.
var markdownParser = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))

// span is a stretch of uniformly formatted text, or a line break.
type span struct {
	text   string
	bold   bool
	italic bool
	strike bool
	brk    bool
}

// markdownSpans flattens markdown into formatted spans. Blocks are separated
// by line breaks; list items get a bullet.
func markdownSpans(src string) []span {
	source := []byte(src)
	root := markdownParser.Parser().Parse(text.NewReader(source))

	var (
		out                  []span
		bold, italic, strike int
		bullet               bool
	)
	emit := func(s string) {
		if s == "" {
			return
		}
		next := span{text: s, bold: bold > 0, italic: italic > 0, strike: strike > 0}
		if n := len(out); n > 0 && !out[n-1].brk && out[n-1].bold == next.bold &&
			out[n-1].italic == next.italic && out[n-1].strike == next.strike {
			out[n-1].text += s
			return
		}
		out = append(out, next)
	}
	newBlock := func() {
		if len(out) > 0 {
			out = append(out, span{brk: true})
		}
		if bullet {
			out = append(out, span{text: "• "})
			bullet = false
		}
	}

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.ListItem:
			if entering {
				bullet = true
			}
		case *ast.Paragraph, *ast.TextBlock:
			if entering {
				newBlock()
			}
		case *ast.Heading:
			if entering {
				newBlock()
				bold++
			} else {
				bold--
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if !entering {
				return ast.WalkContinue, nil
			}
			newBlock()
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				if i > 0 {
					out = append(out, span{brk: true})
				}
				seg := lines.At(i)
				emit(trimNewline(string(seg.Value(source))))
			}
			return ast.WalkSkipChildren, nil
		case *ast.Emphasis:
			counter := &italic
			if node.Level >= 2 {
				counter = &bold
			}
			if entering {
				*counter++
			} else {
				*counter--
			}
		case *extast.Strikethrough:
			if entering {
				strike++
			} else {
				strike--
			}
		case *ast.Text:
			if !entering {
				return ast.WalkContinue, nil
			}
			emit(string(node.Segment.Value(source)))
			switch {
			case node.HardLineBreak():
				out = append(out, span{brk: true})
			case node.SoftLineBreak():
				emit(" ")
			}
		case *ast.String:
			if entering {
				emit(string(node.Value))
			}
		case *ast.AutoLink:
			if entering {
				emit(string(node.Label(source)))
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// markdownRuns renders markdown as runs that inherit props.
func markdownRuns(props *docx.Node, src string) []*docx.Node {
	spans := markdownSpans(src)
	runs := make([]*docx.Node, 0, len(spans))
	for _, s := range spans {
		r := docx.NewElement("w:r")
		rPr := docx.NewElement("w:rPr")
		if props != nil {
			rPr = props.Clone()
		}
		if s.bold {
			docx.RunProperty(rPr, "w:b")
		}
		if s.italic {
			docx.RunProperty(rPr, "w:i")
		}
		if s.strike {
			docx.RunProperty(rPr, "w:strike")
		}
		if len(rPr.Children) > 0 || len(rPr.Attr) > 0 {
			r.AppendChild(rPr)
		}
		if s.brk {
			r.AppendChild(docx.NewElement("w:br"))
		} else {
			r.AppendChild(docx.NewTextElement(s.text))
		}
		runs = append(runs, r)
	}
	return runs
}
