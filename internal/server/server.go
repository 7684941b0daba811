// Package server exposes the form service over HTTP. Handlers decode the
// request, call the service and encode its result; they hold no state.
package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alnah/go-eform"
	"github.com/alnah/go-eform/internal/callback"
	"github.com/alnah/go-eform/internal/formdata"
	"github.com/alnah/go-eform/internal/session"
	"github.com/alnah/go-eform/internal/store"
)

// DefaultMaxUploadSize caps multipart upload requests.
const DefaultMaxUploadSize = 50 << 20

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 10 << 20

// Service is the part of *eform.Service the handlers use.
type Service interface {
	UploadTemplate(ctx context.Context, name, filename string, r io.Reader) (store.Template, error)
	Template(ctx context.Context, id int64) (store.Template, error)
	Templates(ctx context.Context) ([]store.Template, error)
	DeleteTemplate(ctx context.Context, id int64) error

	SaveForm(ctx context.Context, f store.Form) (store.Form, error)
	Form(ctx context.Context, id int64) (store.Form, error)
	Forms(ctx context.Context, templateID int64) ([]store.Form, error)
	DeleteForm(ctx context.Context, id int64) error

	GeneratePDF(ctx context.Context, formID int64, override map[string]any) ([]byte, error)
	GenerateBatch(ctx context.Context, reqs []eform.BatchRequest) []eform.BatchResult
	Preview(ctx context.Context, templateID int64, sample map[string]any) ([]byte, error)
	ValidateForm(data map[string]any, rules []formdata.Rule) formdata.Result
	CleanData(data map[string]any) map[string]any

	EditorConfig(ctx context.Context, templateID int64, userID, userName string) (*session.Config, error)
	VerifyCallback(authorization string, body map[string]any) error
	HandleCallback(ctx context.Context, templateID int64, ev callback.Event) callback.Response
	OpenTemplateFile(ctx context.Context, id int64) (*os.File, store.Template, error)
	TemplateFileInfo(ctx context.Context, id int64) (eform.FileInfo, error)
}

// Server routes requests to a Service.
type Server struct {
	svc       Service
	mux       *http.ServeMux
	logger    *slog.Logger
	maxUpload int64
	lang      string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxUploadSize caps template upload requests in bytes.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithLang sets the locale used by the currency formatting endpoint.
func WithLang(lang string) Option {
	return func(s *Server) { s.lang = lang }
}

// New creates a Server for svc.
func New(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		mux:       http.NewServeMux(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxUpload: DefaultMaxUploadSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.health)

	s.mux.HandleFunc("POST /api/v1/templates/upload", s.uploadTemplate)
	s.mux.HandleFunc("GET /api/v1/templates", s.listTemplates)
	s.mux.HandleFunc("GET /api/v1/templates/{id}", s.getTemplate)
	s.mux.HandleFunc("DELETE /api/v1/templates/{id}", s.deleteTemplate)
	s.mux.HandleFunc("POST /api/v1/templates/{id}/preview", s.previewTemplate)

	s.mux.HandleFunc("POST /api/v1/forms", s.saveForm)
	s.mux.HandleFunc("GET /api/v1/forms", s.listForms)
	s.mux.HandleFunc("GET /api/v1/forms/{id}", s.getForm)
	s.mux.HandleFunc("DELETE /api/v1/forms/{id}", s.deleteForm)
	s.mux.HandleFunc("POST /api/v1/forms/{id}/generate-pdf", s.generateFormPDF)
	s.mux.HandleFunc("POST /api/v1/forms/generate-pdf", s.generatePDF)
	s.mux.HandleFunc("POST /api/v1/forms/generate-pdf/batch", s.generateBatch)
	s.mux.HandleFunc("POST /api/v1/forms/validate", s.validateForm)
	s.mux.HandleFunc("POST /api/v1/forms/test-format", s.testFormat)
	s.mux.HandleFunc("GET /api/v1/utils/format-currency/{amount}", s.formatCurrency)

	s.mux.HandleFunc("GET /api/v1/onlyoffice/config/{templateId}", s.editorConfig)
	s.mux.HandleFunc("GET /api/v1/onlyoffice/files/{templateId}", s.serveFile)
	s.mux.HandleFunc("POST /api/v1/onlyoffice/callback/{templateId}", s.callback)
	s.mux.HandleFunc("GET /api/v1/onlyoffice/info/{templateId}", s.fileInfo)
}

// ServeHTTP implements http.Handler with CORS and request logging.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, HEAD, POST, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)

	s.logger.Debug("request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start),
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
