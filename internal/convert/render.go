package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-eform/internal/process"
)

// Renderer prints a local HTML file to PDF.
type Renderer interface {
	RenderFromFile(ctx context.Context, filePath string, page Page) ([]byte, error)
	Close() error
}

// DefaultTimeout bounds page loading when the context has no deadline.
const DefaultTimeout = 30 * time.Second

// BrowserConfig controls the headless Chrome instance.
type BrowserConfig struct {
	// Bin is the browser executable. Empty lets rod find or download one.
	Bin string
	// NoSandbox is required in most containers.
	NoSandbox bool
	Timeout   time.Duration
	// Logger receives browser lifecycle events. Nil discards them.
	Logger *slog.Logger
}

// rodRenderer implements Renderer using go-rod. The browser starts on first
// use and lives until Close.
type rodRenderer struct {
	cfg    BrowserConfig
	logger *slog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewRodRenderer creates a Renderer backed by headless Chrome.
func NewRodRenderer(cfg BrowserConfig) Renderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &rodRenderer{cfg: cfg, logger: logger}
}

// ensureBrowser lazily launches and connects to the browser.
func (r *rodRenderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New().Headless(true)
	if r.cfg.Bin != "" {
		l = l.Bin(r.cfg.Bin)
	}
	if r.cfg.NoSandbox {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	r.launcher, r.browser = l, b
	return b, nil
}

// Close shuts the browser down and kills what is left of its process group.
func (r *rodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		if err := process.KillGroup(r.launcher.PID()); err != nil {
			r.logger.Debug("browser process group already gone", "error", err)
		}
		r.launcher.Kill()
		r.launcher = nil
	}
	return err
}

// RenderFromFile opens a local HTML file in headless Chrome and prints it
// with the given page geometry.
func (r *rodRenderer) RenderFromFile(ctx context.Context, filePath string, page Page) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	target := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()

	p, err := browser.Page(proto.TargetCreateTarget{URL: target})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	defer func() { _ = p.Close() }()

	timeout := r.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	p = p.Context(ctx).Timeout(timeout)

	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	reader, err := p.PDF(printOptions(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	buf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return buf, nil
}

func printOptions(page Page) *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(page.Width),
		PaperHeight:     floatPtr(page.Height),
		MarginTop:       floatPtr(page.MarginTop),
		MarginRight:     floatPtr(page.MarginRight),
		MarginBottom:    floatPtr(page.MarginBottom),
		MarginLeft:      floatPtr(page.MarginLeft),
		PrintBackground: true,
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
