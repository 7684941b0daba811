package eform

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alnah/go-eform/internal/assets"
	"github.com/alnah/go-eform/internal/bind"
	"github.com/alnah/go-eform/internal/convert"
	"github.com/alnah/go-eform/internal/docx"
	"github.com/alnah/go-eform/internal/fileutil"
	"github.com/alnah/go-eform/internal/normalize"
)

// Pipeline stages, replaceable in tests.
type (
	documentBinder interface {
		Bind(path string, data map[string]any) (*docx.Document, error)
	}

	fontNormalizer interface {
		Normalize(doc *docx.Document) (bool, error)
	}

	pdfConverter interface {
		Convert(ctx context.Context, docxPath string) ([]byte, error)
		Close() error
	}
)

// GeneratorConfig holds the settings shared by every generator of a pool.
type GeneratorConfig struct {
	// Assets supplies the font faces and base stylesheet. Required.
	Assets assets.Loader

	FontFamily     string
	FontSizePoints int

	// ImageRoot confines image paths found in form data. Empty allows any
	// readable path.
	ImageRoot     string
	ImageKeys     bool
	MaxImageWidth int

	// TempDir receives intermediate files; empty means os.TempDir().
	TempDir string

	Browser convert.BrowserConfig
	Logger  *slog.Logger
}

// Generator renders one template with one data set to PDF. It owns a
// browser; use a GeneratorPool for concurrent rendering.
type Generator struct {
	binder     documentBinder
	normalizer fontNormalizer
	converter  pdfConverter
	tempDir    string
	logger     *slog.Logger
}

// NewGenerator creates a Generator. The browser starts on first use.
func NewGenerator(cfg GeneratorConfig) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	norm := normalize.New()
	if cfg.FontFamily != "" {
		norm.Family = cfg.FontFamily
	}
	if cfg.FontSizePoints > 0 {
		norm.SizeHalfPoints = cfg.FontSizePoints * 2
	}
	if cfg.Browser.Logger == nil {
		cfg.Browser.Logger = logger
	}

	return &Generator{
		binder: bind.New(
			bind.WithImageRoot(cfg.ImageRoot),
			bind.WithImageKeys(cfg.ImageKeys),
			bind.WithMaxImageWidth(cfg.MaxImageWidth),
			bind.WithLogger(logger),
		),
		normalizer: norm,
		converter: convert.New(cfg.Assets,
			convert.WithFamily(norm.Family),
			convert.WithTempDir(cfg.TempDir),
			convert.WithRenderer(convert.NewRodRenderer(cfg.Browser)),
			convert.WithLogger(logger),
		),
		tempDir: cfg.TempDir,
		logger:  logger,
	}
}

// Generate binds data into the template at templatePath and returns the
// rendered PDF. Nothing is retried; the temporary document is removed on
// every path.
func (g *Generator) Generate(ctx context.Context, templatePath string, data map[string]any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	doc, err := g.binder.Bind(templatePath, data)
	if err != nil {
		return nil, wrap("binding template", err)
	}

	if changed, err := g.normalizer.Normalize(doc); err != nil {
		g.logger.Warn("font normalization failed, rendering as bound", "path", templatePath, "error", err)
	} else {
		g.logger.Debug("fonts normalized", "path", templatePath, "changed", changed)
	}

	content, err := doc.Bytes()
	if err != nil {
		return nil, wrap("serializing document", err)
	}
	docPath, cleanup, err := fileutil.WriteTempFile(g.tempDir, "render", content, "docx")
	if err != nil {
		return nil, wrap("writing temporary document", err)
	}
	defer cleanup()

	pdf, err := g.converter.Convert(ctx, docPath)
	if err != nil {
		return nil, wrap("converting to PDF", err)
	}

	g.logger.Info("PDF generated", "path", templatePath, "bytes", len(pdf), "duration", time.Since(start))
	return pdf, nil
}

// Close releases the browser.
func (g *Generator) Close() error {
	if g.converter != nil {
		return g.converter.Close()
	}
	return nil
}
