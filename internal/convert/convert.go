// Package convert turns bound documents into PDF. A document is rendered to
// standalone HTML whose text uses only the embedded canonical font faces,
// then printed by headless Chrome with the document's own page geometry.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/alnah/go-eform/internal/assets"
	"github.com/alnah/go-eform/internal/docx"
	"github.com/alnah/go-eform/internal/fileutil"
)

// Sentinel errors for PDF conversion failures.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrInvalidOutput  = errors.New("output is not a valid PDF")
)

// DefaultFamily is the canonical font family of rendered documents.
const DefaultFamily = "Times New Roman"

// Converter renders documents to PDF. It owns one renderer; use a separate
// Converter per concurrent caller.
type Converter struct {
	assets   assets.Loader
	family   string
	renderer Renderer
	tempDir  string
	logger   *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRenderer replaces the headless Chrome renderer.
func WithRenderer(r Renderer) Option {
	return func(c *Converter) { c.renderer = r }
}

// WithFamily sets the font family loaded for every document.
func WithFamily(family string) Option {
	return func(c *Converter) {
		if family != "" {
			c.family = family
		}
	}
}

// WithTempDir sets where intermediate HTML files are written.
func WithTempDir(dir string) Option {
	return func(c *Converter) { c.tempDir = dir }
}

// New creates a Converter loading fonts and styles from loader.
func New(loader assets.Loader, opts ...Option) *Converter {
	c := &Converter{
		assets: loader,
		family: DefaultFamily,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.renderer == nil {
		c.renderer = NewRodRenderer(BrowserConfig{})
	}
	return c
}

// Convert renders the document at docxPath.
func (c *Converter) Convert(ctx context.Context, docxPath string) ([]byte, error) {
	doc, err := docx.Open(docxPath)
	if err != nil {
		return nil, err
	}
	return c.convert(ctx, doc, filepath.Base(docxPath))
}

// ConvertDocument renders an in-memory document.
func (c *Converter) ConvertDocument(ctx context.Context, doc *docx.Document) ([]byte, error) {
	return c.convert(ctx, doc, "document")
}

func (c *Converter) convert(ctx context.Context, doc *docx.Document, title string) ([]byte, error) {
	page, err := c.HTML(doc, title)
	if err != nil {
		return nil, err
	}

	htmlPath, cleanup, err := fileutil.WriteTempFile(c.tempDir, "page", []byte(page), "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	geometry := PageOf(doc)
	c.logger.Debug("printing document", "path", htmlPath, "width_in", geometry.Width, "height_in", geometry.Height)

	data, err := c.renderer.RenderFromFile(ctx, htmlPath, geometry)
	if err != nil {
		return nil, err
	}
	if err := validatePDF(data); err != nil {
		return nil, err
	}
	return data, nil
}

// HTML returns the standalone page printed for doc. Runes the canonical
// family has no glyph for are logged, not rejected.
func (c *Converter) HTML(doc *docx.Document, title string) (string, error) {
	fonts, err := c.assets.LoadFont(c.family)
	if err != nil {
		return "", fmt.Errorf("loading font %q: %w", c.family, err)
	}
	css, err := c.assets.LoadStyle(assets.DefaultStyleName)
	if err != nil {
		return "", fmt.Errorf("loading stylesheet: %w", err)
	}

	fragment, text := renderBody(doc)
	if missing := fonts.Missing(text); len(missing) > 0 {
		c.logger.Warn("font lacks glyphs for document text",
			"family", fonts.Family, "runes", string(missing))
	}

	return buildDocument(title, fonts, css, sanitize(fragment)), nil
}

// Close releases the renderer.
func (c *Converter) Close() error {
	if c.renderer != nil {
		return c.renderer.Close()
	}
	return nil
}
