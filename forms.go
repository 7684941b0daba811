package eform

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-eform/internal/dateutil"
	"github.com/alnah/go-eform/internal/formdata"
	"github.com/alnah/go-eform/internal/store"
)

// SaveForm creates the form when its ID is zero and updates it otherwise.
// String values are cleaned first (see formdata.Clean).
func (s *Service) SaveForm(ctx context.Context, f store.Form) (store.Form, error) {
	const op = "saving form"

	if f.TemplateID <= 0 {
		return store.Form{}, &Error{Kind: KindInvalidInput, Op: op, Err: fmt.Errorf("template ID is required")}
	}
	f.Name = strings.TrimSpace(f.Name)
	f.Data = formdata.Clean(f.Data)

	var (
		saved store.Form
		err   error
	)
	if f.ID == 0 {
		saved, err = s.store.CreateForm(ctx, f)
	} else {
		saved, err = s.store.UpdateForm(ctx, f)
	}
	if err != nil {
		return store.Form{}, wrap(op, err)
	}
	s.logger.Info("form saved", "form_id", saved.ID, "template_id", saved.TemplateID)
	return saved, nil
}

// Form returns one form.
func (s *Service) Form(ctx context.Context, id int64) (store.Form, error) {
	f, err := s.store.Form(ctx, id)
	if err != nil {
		return store.Form{}, wrap("loading form", err)
	}
	return f, nil
}

// Forms lists the forms of a template, or all forms when templateID is 0.
func (s *Service) Forms(ctx context.Context, templateID int64) ([]store.Form, error) {
	forms, err := s.store.Forms(ctx, templateID)
	if err != nil {
		return nil, wrap("listing forms", err)
	}
	return forms, nil
}

// DeleteForm removes a form.
func (s *Service) DeleteForm(ctx context.Context, id int64) error {
	if err := s.store.DeleteForm(ctx, id); err != nil {
		return wrap("deleting form", err)
	}
	return nil
}

// GeneratePDF renders a stored form. A non-nil override replaces the stored
// data for this render only.
func (s *Service) GeneratePDF(ctx context.Context, formID int64, override map[string]any) ([]byte, error) {
	const op = "generating PDF"

	f, err := s.store.Form(ctx, formID)
	if err != nil {
		return nil, wrap(op, err)
	}
	path, err := s.store.FilePath(ctx, f.TemplateID)
	if err != nil {
		return nil, wrap(op, err)
	}

	data := f.Data
	if override != nil {
		data = formdata.Clean(override)
	}
	return s.render(ctx, path, data)
}

// render resolves date markers against the service clock and binds data
// into the template at path.
func (s *Service) render(ctx context.Context, path string, data map[string]any) ([]byte, error) {
	data, err := dateutil.ResolveValues(data, s.now())
	if err != nil {
		return nil, wrap("resolving dates", err)
	}
	g := s.pool.Acquire()
	defer s.pool.Release(g)
	return g.Generate(ctx, path, data)
}

// BatchRequest asks for one PDF of a batch.
type BatchRequest struct {
	FormID int64          `json:"formId"`
	Data   map[string]any `json:"data,omitempty"`
}

// BatchResult is the outcome of one BatchRequest. Exactly one of PDF and Err
// is set.
type BatchResult struct {
	FormID int64
	PDF    []byte
	Err    error
}

// GenerateBatch renders every request, at most one per pool generator at a
// time. Results keep the request order; a failed item does not stop the
// others.
func (s *Service) GenerateBatch(ctx context.Context, reqs []BatchRequest) []BatchResult {
	results := make([]BatchResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.pool.Size())
	for i, req := range reqs {
		g.Go(func() error {
			pdf, err := s.GeneratePDF(ctx, req.FormID, req.Data)
			results[i] = BatchResult{FormID: req.FormID, PDF: pdf, Err: err}
			if err != nil {
				s.logger.Warn("batch item failed", "form_id", req.FormID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Preview renders a template with sample data. Variables without a value are
// shown as "[name]" so the layout can be checked before any form exists.
func (s *Service) Preview(ctx context.Context, templateID int64, sample map[string]any) ([]byte, error) {
	tpl, err := s.store.Template(ctx, templateID)
	if err != nil {
		return nil, wrap("previewing template", err)
	}
	return s.render(ctx, tpl.FilePath, PreviewData(tpl.Variables, sample))
}

// PreviewData returns sample, cleaned, with a "[name]" stand-in for each
// variable that has no value.
func PreviewData(variables []string, sample map[string]any) map[string]any {
	data := formdata.Clean(sample)
	for _, v := range variables {
		if val, ok := data[v]; !ok || val == "" {
			data[v] = "[" + v + "]"
		}
	}
	return data
}

// ValidateForm checks data against rules.
func (s *Service) ValidateForm(data map[string]any, rules []formdata.Rule) formdata.Result {
	return formdata.Validate(data, rules)
}

// CleanData returns data as it would be stored by SaveForm.
func (s *Service) CleanData(data map[string]any) map[string]any {
	return formdata.Clean(data)
}
