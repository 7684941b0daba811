// Package store keeps template and form records. Memory holds them in
// process; File adds a YAML snapshot on disk written after every change.
package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// ErrNotFound is returned for unknown IDs.
var ErrNotFound = errors.New("record not found")

// Template is an uploaded document template.
type Template struct {
	ID        int64     `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Filename  string    `yaml:"filename" json:"filename"`
	FilePath  string    `yaml:"file_path" json:"filePath"`
	Variables []string  `yaml:"variables" json:"variables"`
	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updatedAt"`
}

// Form is a set of values bound to a template.
type Form struct {
	ID         int64          `yaml:"id" json:"id"`
	TemplateID int64          `yaml:"template_id" json:"templateId"`
	Name       string         `yaml:"name" json:"name"`
	Data       map[string]any `yaml:"data" json:"data"`
	CreatedAt  time.Time      `yaml:"created_at" json:"createdAt"`
	UpdatedAt  time.Time      `yaml:"updated_at" json:"updatedAt"`
}

// Store is the record store used by the service.
type Store interface {
	CreateTemplate(ctx context.Context, t Template) (Template, error)
	Template(ctx context.Context, id int64) (Template, error)
	Templates(ctx context.Context) ([]Template, error)
	UpdateTemplate(ctx context.Context, t Template) (Template, error)
	DeleteTemplate(ctx context.Context, id int64) error
	FilePath(ctx context.Context, templateID int64) (string, error)

	CreateForm(ctx context.Context, f Form) (Form, error)
	Form(ctx context.Context, id int64) (Form, error)
	Forms(ctx context.Context, templateID int64) ([]Form, error)
	UpdateForm(ctx context.Context, f Form) (Form, error)
	DeleteForm(ctx context.Context, id int64) error
}

// snapshot is the full store content.
type snapshot struct {
	NextTemplateID int64      `yaml:"next_template_id"`
	NextFormID     int64      `yaml:"next_form_id"`
	Templates      []Template `yaml:"templates"`
	Forms          []Form     `yaml:"forms"`
}

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	templates map[int64]Template
	forms     map[int64]Form
	nextTpl   int64
	nextForm  int64
	now       func() time.Time

	// changed runs with mu held after every mutation.
	changed func(snapshot) error
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		templates: make(map[int64]Template),
		forms:     make(map[int64]Form),
		nextTpl:   1,
		nextForm:  1,
		now:       time.Now,
	}
}

func (m *Memory) commit() error {
	if m.changed == nil {
		return nil
	}
	return m.changed(m.snapshotLocked())
}

func (m *Memory) snapshotLocked() snapshot {
	s := snapshot{NextTemplateID: m.nextTpl, NextFormID: m.nextForm}
	for _, id := range slices.Sorted(maps.Keys(m.templates)) {
		s.Templates = append(s.Templates, m.templates[id])
	}
	for _, id := range slices.Sorted(maps.Keys(m.forms)) {
		s.Forms = append(s.Forms, m.forms[id])
	}
	return s
}

func (m *Memory) restore(s snapshot) {
	for _, t := range s.Templates {
		m.templates[t.ID] = t
		m.nextTpl = max(m.nextTpl, t.ID+1)
	}
	for _, f := range s.Forms {
		m.forms[f.ID] = f
		m.nextForm = max(m.nextForm, f.ID+1)
	}
	m.nextTpl = max(m.nextTpl, s.NextTemplateID)
	m.nextForm = max(m.nextForm, s.NextFormID)
}

// CreateTemplate stores t under a new ID.
func (m *Memory) CreateTemplate(_ context.Context, t Template) (Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t.ID = m.nextTpl
	m.nextTpl++
	now := m.now()
	t.CreatedAt, t.UpdatedAt = now, now
	t.Variables = slices.Clone(t.Variables)
	m.templates[t.ID] = t
	if err := m.commit(); err != nil {
		delete(m.templates, t.ID)
		return Template{}, err
	}
	t.Variables = slices.Clone(t.Variables)
	return t, nil
}

// Template returns the template with the given ID.
func (m *Memory) Template(_ context.Context, id int64) (Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return Template{}, fmt.Errorf("template %d: %w", id, ErrNotFound)
	}
	t.Variables = slices.Clone(t.Variables)
	return t, nil
}

// Templates returns every template ordered by ID.
func (m *Memory) Templates(_ context.Context) ([]Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked().Templates, nil
}

// UpdateTemplate replaces the stored template with the same ID.
func (m *Memory) UpdateTemplate(_ context.Context, t Template) (Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.templates[t.ID]
	if !ok {
		return Template{}, fmt.Errorf("template %d: %w", t.ID, ErrNotFound)
	}
	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = m.now()
	t.Variables = slices.Clone(t.Variables)
	m.templates[t.ID] = t
	if err := m.commit(); err != nil {
		m.templates[t.ID] = old
		return Template{}, err
	}
	t.Variables = slices.Clone(t.Variables)
	return t, nil
}

// DeleteTemplate removes a template and its forms.
func (m *Memory) DeleteTemplate(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.templates[id]
	if !ok {
		return fmt.Errorf("template %d: %w", id, ErrNotFound)
	}
	removed := make(map[int64]Form)
	for fid, f := range m.forms {
		if f.TemplateID == id {
			removed[fid] = f
			delete(m.forms, fid)
		}
	}
	delete(m.templates, id)
	if err := m.commit(); err != nil {
		m.templates[id] = t
		maps.Copy(m.forms, removed)
		return err
	}
	return nil
}

// FilePath returns the stored file of a template.
func (m *Memory) FilePath(ctx context.Context, templateID int64) (string, error) {
	t, err := m.Template(ctx, templateID)
	if err != nil {
		return "", err
	}
	return t.FilePath, nil
}

// CreateForm stores f under a new ID. Its template must exist.
func (m *Memory) CreateForm(_ context.Context, f Form) (Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.templates[f.TemplateID]; !ok {
		return Form{}, fmt.Errorf("template %d: %w", f.TemplateID, ErrNotFound)
	}
	f.ID = m.nextForm
	m.nextForm++
	now := m.now()
	f.CreatedAt, f.UpdatedAt = now, now
	f.Data = maps.Clone(f.Data)
	m.forms[f.ID] = f
	if err := m.commit(); err != nil {
		delete(m.forms, f.ID)
		return Form{}, err
	}
	f.Data = maps.Clone(f.Data)
	return f, nil
}

// Form returns the form with the given ID.
func (m *Memory) Form(_ context.Context, id int64) (Form, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.forms[id]
	if !ok {
		return Form{}, fmt.Errorf("form %d: %w", id, ErrNotFound)
	}
	f.Data = maps.Clone(f.Data)
	return f, nil
}

// Forms returns the forms of a template ordered by ID, or every form when
// templateID is 0.
func (m *Memory) Forms(_ context.Context, templateID int64) ([]Form, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Form
	for _, f := range m.snapshotLocked().Forms {
		if templateID == 0 || f.TemplateID == templateID {
			out = append(out, f)
		}
	}
	return out, nil
}

// UpdateForm replaces the stored form with the same ID.
func (m *Memory) UpdateForm(_ context.Context, f Form) (Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.forms[f.ID]
	if !ok {
		return Form{}, fmt.Errorf("form %d: %w", f.ID, ErrNotFound)
	}
	if _, ok := m.templates[f.TemplateID]; !ok {
		return Form{}, fmt.Errorf("template %d: %w", f.TemplateID, ErrNotFound)
	}
	f.CreatedAt = old.CreatedAt
	f.UpdatedAt = m.now()
	f.Data = maps.Clone(f.Data)
	m.forms[f.ID] = f
	if err := m.commit(); err != nil {
		m.forms[f.ID] = old
		return Form{}, err
	}
	f.Data = maps.Clone(f.Data)
	return f, nil
}

// DeleteForm removes a form.
func (m *Memory) DeleteForm(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.forms[id]
	if !ok {
		return fmt.Errorf("form %d: %w", id, ErrNotFound)
	}
	delete(m.forms, id)
	if err := m.commit(); err != nil {
		m.forms[id] = f
		return err
	}
	return nil
}
