package eform

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/alnah/go-eform/internal/callback"
	"github.com/alnah/go-eform/internal/session"
	"github.com/alnah/go-eform/internal/store"
	"github.com/alnah/go-eform/internal/token"
)

// Service defaults.
const (
	DefaultUploadDir     = "uploads"
	DefaultMaxUploadSize = 50 << 20
	DefaultFetchTimeout  = 60 * time.Second
)

// EditorSettings describes how the document editor reaches this service.
type EditorSettings struct {
	// PublicURL is this service's base URL as seen from the editor.
	PublicURL string
	// DocumentServerURL is the editor's base URL as seen from browsers.
	DocumentServerURL string
	Lang              string
	Author            string
	GoBackText        string
}

// Service manages templates and forms, renders PDFs and serves the editor
// protocol. It is safe for concurrent use.
type Service struct {
	store     store.Store
	pool      *GeneratorPool
	uploadDir string
	maxUpload int64

	editor    EditorSettings
	secret    string
	signer    *token.Signer
	keys      session.KeySource
	fetcher   callback.Fetcher
	locks     *callback.KeyedMutex
	callbacks *callback.Processor

	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithUploadDir sets where template files are stored.
func WithUploadDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.uploadDir = dir
		}
	}
}

// WithMaxUploadSize caps uploaded template files in bytes.
func WithMaxUploadSize(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithEditor configures the editor session payload.
func WithEditor(e EditorSettings) Option {
	return func(s *Service) { s.editor = e }
}

// WithSecret sets the secret shared with the document server. Without one,
// editor configurations are unsigned and callbacks are not authenticated.
func WithSecret(secret string) Option {
	return func(s *Service) { s.secret = secret }
}

// WithFetcher replaces the HTTP client that downloads edited documents.
func WithFetcher(f callback.Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithKeySource replaces the generator of editor document keys.
func WithKeySource(k session.KeySource) Option {
	return func(s *Service) {
		if k != nil {
			s.keys = k
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service storing records in st and rendering with
// pool. The upload directory is created if needed. The caller keeps
// ownership of pool and closes it.
func NewService(st store.Store, pool *GeneratorPool, opts ...Option) (*Service, error) {
	s := &Service{
		store:     st,
		pool:      pool,
		uploadDir: DefaultUploadDir,
		maxUpload: DefaultMaxUploadSize,
		keys:      session.UUIDKeys{},
		locks:     callback.NewKeyedMutex(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	dir, err := filepath.Abs(s.uploadDir)
	if err != nil {
		return nil, wrap("resolving upload directory", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, wrap("creating upload directory", fmt.Errorf("%s: %w", dir, err))
	}
	s.uploadDir = dir

	if s.fetcher == nil {
		s.fetcher = &callback.HTTPFetcher{
			Client:   &http.Client{Timeout: DefaultFetchTimeout},
			MaxBytes: callback.DefaultMaxBytes,
		}
	}
	s.signer = token.NewSigner(s.secret)
	if !s.signer.Enabled() {
		s.logger.Warn("no JWT secret configured: editor sessions are unsigned and callbacks are not authenticated")
	}

	s.callbacks = callback.NewProcessor(s.store, s.fetcher,
		callback.WithLogger(s.logger),
		callback.WithClock(s.now),
		callback.WithLocks(s.locks),
		callback.WithOnSaved(s.templateSaved),
	)
	return s, nil
}

// UploadDir returns the directory holding template files.
func (s *Service) UploadDir() string {
	return s.uploadDir
}
