package eform

import (
	"context"
	"errors"
	"io/fs"

	"github.com/alnah/go-eform/internal/assets"
	"github.com/alnah/go-eform/internal/bind"
	"github.com/alnah/go-eform/internal/callback"
	"github.com/alnah/go-eform/internal/convert"
	"github.com/alnah/go-eform/internal/dateutil"
	"github.com/alnah/go-eform/internal/docx"
	"github.com/alnah/go-eform/internal/fileutil"
	"github.com/alnah/go-eform/internal/store"
	"github.com/alnah/go-eform/internal/token"
)

// Kind classifies service failures so callers can react without matching
// package-level sentinels.
type Kind int

// Failure kinds.
const (
	KindUnknown Kind = iota
	KindNotFound
	KindTemplateMissing
	KindRender
	KindConversion
	KindFontResourceMissing
	KindToken
	KindIO
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindTemplateMissing:
		return "template missing"
	case KindRender:
		return "render failed"
	case KindConversion:
		return "conversion failed"
	case KindFontResourceMissing:
		return "font resource missing"
	case KindToken:
		return "token rejected"
	case KindIO:
		return "I/O failure"
	case KindInvalidInput:
		return "invalid input"
	default:
		return "unknown failure"
	}
}

// Error is returned by Service and Generator operations.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Kind.String()
	case e.Op == "":
		return e.Err.Error()
	default:
		return e.Op + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels below, so errors.Is(err, ErrRender) holds for
// any render failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrTemplateMissing     = &Error{Kind: KindTemplateMissing}
	ErrRender              = &Error{Kind: KindRender}
	ErrConversion          = &Error{Kind: KindConversion}
	ErrFontResourceMissing = &Error{Kind: KindFontResourceMissing}
	ErrToken               = &Error{Kind: KindToken}
	ErrIO                  = &Error{Kind: KindIO}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
)

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// wrap attaches a kind to an error from an internal package. Errors that
// already carry a kind pass through, and so do bare context errors.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	kind := classify(err)
	if kind == KindIO && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.Is(err, bind.ErrTemplateOpen),
		errors.Is(err, docx.ErrOpen),
		errors.Is(err, docx.ErrInvalidPackage),
		errors.Is(err, docx.ErrMalformedXML),
		errors.Is(err, docx.ErrPartTooLarge):
		return KindTemplateMissing
	case errors.Is(err, bind.ErrPlaceholderBoundary),
		errors.Is(err, bind.ErrInvalidValue),
		errors.Is(err, docx.ErrUnsupportedMedia):
		return KindRender
	case errors.Is(err, assets.ErrFontNotFound),
		errors.Is(err, assets.ErrInvalidFont):
		return KindFontResourceMissing
	case errors.Is(err, convert.ErrBrowserConnect),
		errors.Is(err, convert.ErrPageLoad),
		errors.Is(err, convert.ErrPDFGeneration),
		errors.Is(err, convert.ErrInvalidOutput),
		errors.Is(err, assets.ErrStyleNotFound):
		return KindConversion
	case errors.Is(err, callback.ErrNoToken),
		errors.Is(err, callback.ErrBadToken),
		errors.Is(err, token.ErrMalformed),
		errors.Is(err, token.ErrSignature),
		errors.Is(err, token.ErrAlgorithm):
		return KindToken
	case errors.Is(err, fileutil.ErrInvalidFilename),
		errors.Is(err, fileutil.ErrPathTraversal),
		errors.Is(err, dateutil.ErrInvalidDateFormat):
		return KindInvalidInput
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	default:
		return KindIO
	}
}
