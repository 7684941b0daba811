// Package bind substitutes form data into document placeholders.
//
// A placeholder is {{name}}. Text values replace the placeholder inside the
// run that holds it, keeping that run's formatting; a placeholder split over
// several runs is merged into its first run. Images, tables and markdown are
// routed by value kind (see Kind).
package bind

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/alnah/go-eform/internal/docx"
	"github.com/alnah/go-eform/internal/extract"
)

// Sentinel errors for binding.
var (
	ErrTemplateOpen        = errors.New("template cannot be opened")
	ErrPlaceholderBoundary = errors.New("placeholder crosses an unsupported boundary")
	ErrInvalidValue        = errors.New("invalid value")
)

// DefaultMaxImageWidth is the widest inline image in pixels (about 6.25in).
const DefaultMaxImageWidth = 600

// Binder binds data into documents. It holds no per-call state and is safe
// for concurrent use.
type Binder struct {
	imageRoot     string
	imageKeys     bool
	maxImageWidth int
	logger        *slog.Logger
}

// Option configures a Binder.
type Option func(*Binder)

// WithImageRoot restricts image paths to dir.
func WithImageRoot(dir string) Option {
	return func(b *Binder) { b.imageRoot = dir }
}

// WithImageKeys treats string values under keys containing "image" or
// "picture" that end in an image extension as image paths.
func WithImageKeys(enabled bool) Option {
	return func(b *Binder) { b.imageKeys = enabled }
}

// WithMaxImageWidth caps inline image width in pixels.
func WithMaxImageWidth(px int) Option {
	return func(b *Binder) {
		if px > 0 {
			b.maxImageWidth = px
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Binder) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a Binder.
func New(opts ...Option) *Binder {
	b := &Binder{
		imageKeys:     true,
		maxImageWidth: DefaultMaxImageWidth,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind opens the template at path and binds data into it. Missing keys
// render as empty text; keys without a placeholder are ignored.
func (b *Binder) Bind(path string, data map[string]any) (*docx.Document, error) {
	doc, err := docx.Open(path)
	if err != nil {
		if errors.Is(err, docx.ErrOpen) {
			return nil, fmt.Errorf("%w: %w", ErrTemplateOpen, err)
		}
		return nil, err
	}
	if err := b.BindDocument(doc, data); err != nil {
		return nil, err
	}
	return doc, nil
}

// BindDocument binds data into doc in place.
func (b *Binder) BindDocument(doc *docx.Document, data map[string]any) error {
	body := doc.Body()
	for _, p := range doc.Paragraphs() {
		if !attached(p.Node, body) {
			continue
		}
		if err := b.bindParagraph(doc, p, data); err != nil {
			return err
		}
	}
	return nil
}

// attached reports whether n is still under body. Rows expanded from a
// template row detach the original paragraphs.
func attached(n, body *docx.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == body {
			return true
		}
	}
	return false
}

type segment struct {
	node       *docx.Node
	start, end int
}

// layout returns the paragraph text and where each w:t sits in it.
func layout(p docx.Paragraph) (string, []segment) {
	var sb strings.Builder
	texts := p.Texts()
	segs := make([]segment, len(texts))
	for i, t := range texts {
		start := sb.Len()
		sb.WriteString(t.Text())
		segs[i] = segment{node: t, start: start, end: sb.Len()}
	}
	return sb.String(), segs
}

func (b *Binder) bindParagraph(doc *docx.Document, p docx.Paragraph, data map[string]any) error {
	full, segs := layout(p)
	matches := extract.Find(full)
	if len(matches) == 0 {
		return nil
	}

	type resolved struct {
		kind  Kind
		value any
	}
	values := make([]resolved, len(matches))
	for i, m := range matches {
		kind, v, err := resolve(m.Name, data[m.Name], b.imageKeys)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, m.Name, err)
		}
		if kind == KindTable {
			return b.bindTable(doc, p, full, segs, m, len(matches), v.(Table), data)
		}
		values[i] = resolved{kind: kind, value: v}
	}

	// Right to left, so earlier offsets stay valid while later ones change.
	for i := len(matches) - 1; i >= 0; i-- {
		m, r := matches[i], values[i]

		if r.kind == KindText && !strings.ContainsAny(r.value.(string), "\n\t") {
			if _, _, err := replaceSpan(segs, m.Start, m.End, r.value.(string)); err != nil {
				return fmt.Errorf("%w: %q", err, m.Name)
			}
			continue
		}

		anchor, offset, err := replaceSpan(segs, m.Start, m.End, "")
		if err != nil {
			return fmt.Errorf("%w: %q", err, m.Name)
		}
		props := anchor.Parent.Child("w:rPr")

		var runs []*docx.Node
		switch r.kind {
		case KindText:
			runs = []*docx.Node{textRun(props, r.value.(string))}
		case KindMarkdown:
			runs = markdownRuns(props, string(r.value.(Markdown)))
		case KindImage:
			run, err := b.imageRun(doc, props, r.value.(Image))
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidValue, m.Name, err)
			}
			runs = []*docx.Node{run}
		}
		insertRuns(anchor, offset, runs)
	}
	return nil
}

// replaceSpan replaces text[start:end) of the paragraph with repl. The
// replacement lands in the first w:t of the span and the rest of the span is
// removed from the following w:t elements. It returns the w:t holding the
// replacement and the offset just past it.
func replaceSpan(segs []segment, start, end int, repl string) (*docx.Node, int, error) {
	first, last := -1, -1
	for i, s := range segs {
		if first < 0 && start >= s.start && start < s.end {
			first = i
		}
		if end > s.start && end <= s.end {
			last = i
			break
		}
	}
	if first < 0 || last < first {
		return nil, 0, ErrPlaceholderBoundary
	}

	container := runContainer(segs[first].node)
	for _, s := range segs[first+1 : last+1] {
		if runContainer(s.node) != container {
			return nil, 0, ErrPlaceholderBoundary
		}
	}

	head := segs[first]
	localStart := start - head.start
	if first == last {
		cur := head.node.Text()
		head.node.SetText(cur[:localStart] + repl + cur[end-head.start:])
	} else {
		cur := head.node.Text()
		head.node.SetText(cur[:localStart] + repl)
		for _, s := range segs[first+1 : last] {
			s.node.SetText("")
		}
		tail := segs[last]
		cur = tail.node.Text()
		tail.node.SetText(cur[end-tail.start:])
		tail.node.SetAttr("xml:space", "preserve")
	}
	head.node.SetAttr("xml:space", "preserve")
	return head.node, localStart + len(repl), nil
}

// runContainer is the element holding the run of a w:t: the paragraph, or
// a hyperlink, field or content control within it.
func runContainer(t *docx.Node) *docx.Node {
	if t.Parent == nil {
		return nil
	}
	return t.Parent.Parent
}

// insertRuns splits the run holding anchor at offset and places runs in the
// gap. Content after the split point moves to a new run with the same
// properties.
func insertRuns(anchor *docx.Node, offset int, runs []*docx.Node) {
	run := anchor.Parent
	text := anchor.Text()
	tail := text[offset:]
	anchor.SetText(text[:offset])

	idx := anchor.Index()
	rest := append([]*docx.Node(nil), run.Children[idx+1:]...)
	run.Children = run.Children[:idx+1]

	insert := runs
	if tail != "" || len(rest) > 0 {
		after := docx.NewElement("w:r")
		if props := run.Child("w:rPr"); props != nil {
			after.AppendChild(props.Clone())
		}
		if tail != "" {
			after.AppendChild(docx.NewTextElement(tail))
		}
		for _, c := range rest {
			after.AppendChild(c)
		}
		insert = append(insert, after)
	}
	run.InsertAfter(insert...)
}

// textRun builds a run for text holding line breaks or tabs.
func textRun(props *docx.Node, s string) *docx.Node {
	r := docx.NewElement("w:r")
	if props != nil {
		r.AppendChild(props.Clone())
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var chunk strings.Builder
	flush := func() {
		if chunk.Len() > 0 {
			r.AppendChild(docx.NewTextElement(chunk.String()))
			chunk.Reset()
		}
	}
	for _, c := range s {
		switch c {
		case '\n', '\r':
			flush()
			r.AppendChild(docx.NewElement("w:br"))
		case '\t':
			flush()
			r.AppendChild(docx.NewElement("w:tab"))
		default:
			chunk.WriteRune(c)
		}
	}
	flush()
	return r
}
