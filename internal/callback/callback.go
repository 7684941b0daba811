// Package callback processes save notifications sent by the document editor.
//
// Statuses 2 (ready for saving) and 6 (force save) fetch the edited file and
// replace the stored template after backing it up. Every other status is
// acknowledged without side effects.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alnah/go-eform/internal/fileutil"
	"github.com/alnah/go-eform/internal/token"
)

// Status is the editor's document state.
type Status int

// Editor document states.
const (
	StatusNotFound     Status = 0
	StatusEditing      Status = 1
	StatusReady        Status = 2
	StatusSaveError    Status = 3
	StatusClosed       Status = 4
	StatusForceSave    Status = 6
	StatusForceSaveErr Status = 7
)

func (s Status) String() string {
	switch s {
	case StatusNotFound:
		return "not-found"
	case StatusEditing:
		return "editing"
	case StatusReady:
		return "ready"
	case StatusSaveError:
		return "save-error"
	case StatusClosed:
		return "closed"
	case StatusForceSave:
		return "force-save"
	case StatusForceSaveErr:
		return "force-save-error"
	default:
		return fmt.Sprintf("status-%d", int(s))
	}
}

// persists reports whether the status carries a document to store.
func (s Status) persists() bool {
	return s == StatusReady || s == StatusForceSave
}

// Event is a callback body.
type Event struct {
	Status     Status          `json:"status"`
	URL        string          `json:"url,omitempty"`
	Key        string          `json:"key,omitempty"`
	Users      json.RawMessage `json:"users,omitempty"`
	Actions    json.RawMessage `json:"actions,omitempty"`
	ChangesURL string          `json:"changesurl,omitempty"`
	History    json.RawMessage `json:"history,omitempty"`
	Token      string          `json:"token,omitempty"`
}

// Response is returned to the editor. Error is 0 on success and 1 otherwise.
type Response struct {
	Error   int    `json:"error"`
	Message string `json:"message,omitempty"`
}

// Ack is the success response.
var Ack = Response{Error: 0}

// Failure messages sent back to the editor.
const (
	MsgNoURL      = "No download URL provided"
	msgSaveFailed = "Failed to save document: "
)

// Store resolves a template to its file on disk.
type Store interface {
	FilePath(ctx context.Context, templateID int64) (string, error)
}

// Fetcher downloads the edited document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// Processor applies callback events. Saves for the same template are
// serialized; different templates save concurrently.
type Processor struct {
	store   Store
	fetcher Fetcher
	locks   *KeyedMutex
	now     func() time.Time
	logger  *slog.Logger
	onSaved func(ctx context.Context, templateID int64, path string)
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock replaces time.Now for backup names.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithOnSaved registers fn to run after a successful save, outside the lock.
func WithOnSaved(fn func(ctx context.Context, templateID int64, path string)) Option {
	return func(p *Processor) { p.onSaved = fn }
}

// WithLocks shares a lock set with other writers of the template files.
func WithLocks(m *KeyedMutex) Option {
	return func(p *Processor) {
		if m != nil {
			p.locks = m
		}
	}
}

// NewProcessor creates a Processor.
func NewProcessor(store Store, fetcher Fetcher, opts ...Option) *Processor {
	p := &Processor{
		store:   store,
		fetcher: fetcher,
		locks:   NewKeyedMutex(),
		now:     time.Now,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle applies ev to the template. Failures are reported in the Response,
// never as a Go error, because the editor only understands the response body.
func (p *Processor) Handle(ctx context.Context, templateID int64, ev Event) Response {
	log := p.logger.With("template_id", templateID, "status", ev.Status.String())

	if !ev.Status.persists() {
		log.Info("callback acknowledged")
		return Ack
	}
	if strings.TrimSpace(ev.URL) == "" {
		log.Warn("callback without download URL")
		return Response{Error: 1, Message: MsgNoURL}
	}

	path, err := p.save(ctx, templateID, ev.URL)
	if err != nil {
		log.Error("saving edited document", "error", err)
		return Response{Error: 1, Message: msgSaveFailed + err.Error()}
	}
	log.Info("template updated", "path", path)

	if p.onSaved != nil {
		p.onSaved(ctx, templateID, path)
	}
	return Ack
}

func (p *Processor) save(ctx context.Context, templateID int64, url string) (string, error) {
	unlock := p.locks.Lock(templateID)
	defer unlock()

	path, err := p.store.FilePath(ctx, templateID)
	if err != nil {
		return "", err
	}

	body, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	defer body.Close()

	// Backup before the overwrite, so a failed replace keeps a copy too.
	if fileutil.Exists(path) {
		backup := fileutil.BackupPath(path, p.now())
		if err := fileutil.CopyFile(path, backup); err != nil {
			return "", fmt.Errorf("backing up %s: %w", path, err)
		}
		p.logger.Info("backup created", "template_id", templateID, "path", backup)
	}

	perm := os.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if _, err := fileutil.ReplaceFromReader(path, body, perm); err != nil {
		return "", err
	}
	return path, nil
}

// ErrNoToken is returned when signing is enabled and the callback carries no
// token.
var ErrNoToken = errors.New("callback token missing")

// ErrBadToken is returned when the callback token does not verify.
var ErrBadToken = errors.New("invalid callback token")

// Verifier checks callback tokens.
type Verifier interface {
	Enabled() bool
	Verify(token string, payload any) bool
	Parse(token string) (map[string]any, error)
}

// Authenticate checks the token sent with a callback. tok is the bearer
// token of the request, or empty to use the token inside body. The token
// must carry a valid signature and its claims must be the body itself, or,
// in the header form the document server uses, wrap the body under
// "payload". A validly signed token for any other content is rejected.
func Authenticate(v Verifier, tok string, body map[string]any) error {
	if v == nil || !v.Enabled() {
		return nil
	}
	if tok == "" {
		tok, _ = body["token"].(string)
	}
	if tok == "" {
		return ErrNoToken
	}

	payload := make(map[string]any, len(body))
	for k, val := range body {
		if k != "token" {
			payload[k] = val
		}
	}
	if v.Verify(tok, payload) {
		return nil
	}

	claims, err := v.Parse(tok)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if wrapped, ok := claims["payload"]; ok && sameJSON(wrapped, payload) {
		return nil
	}
	if sameJSON(claims, payload) {
		return nil
	}
	return fmt.Errorf("%w: claims do not match the callback body", ErrBadToken)
}

// sameJSON compares the canonical serializations of a and b.
func sameJSON(a, b any) bool {
	ca, err := token.Canonical(a)
	if err != nil {
		return false
	}
	cb, err := token.Canonical(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

// BearerToken strips the "Bearer " scheme from an Authorization header.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
