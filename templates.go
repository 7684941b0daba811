package eform

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/alnah/go-eform/internal/extract"
	"github.com/alnah/go-eform/internal/fileutil"
	"github.com/alnah/go-eform/internal/store"
)

// TemplateExt is the only accepted template file extension.
const TemplateExt = ".docx"

// UploadTemplate stores the document read from r as a new template and
// records its variables. The file is kept as
// "<unix millis>_<random>_<filename>" in the upload directory. An empty name
// defaults to the file name without extension.
func (s *Service) UploadTemplate(ctx context.Context, name, filename string, r io.Reader) (store.Template, error) {
	const op = "uploading template"

	clean, err := fileutil.SafeFilename(filename)
	if err != nil {
		return store.Template{}, wrap(op, err)
	}
	if !strings.EqualFold(filepath.Ext(clean), TemplateExt) {
		return store.Template{}, &Error{Kind: KindInvalidInput, Op: op, Err: fmt.Errorf("%q is not a %s file", clean, TemplateExt)}
	}

	stored := fmt.Sprintf("%d_%s_%s", s.now().UnixMilli(), strings.ToLower(rand.Text()[:8]), clean)
	path := filepath.Join(s.uploadDir, stored)

	n, err := fileutil.ReplaceFromReader(path, io.LimitReader(r, s.maxUpload+1), 0o600)
	if err != nil {
		return store.Template{}, wrap(op, err)
	}
	if n == 0 || n > s.maxUpload {
		_ = os.Remove(path)
		return store.Template{}, &Error{Kind: KindInvalidInput, Op: op, Err: fmt.Errorf("file size must be between 1 and %d bytes", s.maxUpload)}
	}

	vars, err := extract.File(path)
	if err != nil {
		_ = os.Remove(path)
		return store.Template{}, &Error{Kind: KindInvalidInput, Op: op, Err: err}
	}

	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(clean, filepath.Ext(clean))
	}
	tpl, err := s.store.CreateTemplate(ctx, store.Template{
		Name:      strings.TrimSpace(name),
		Filename:  clean,
		FilePath:  path,
		Variables: vars,
	})
	if err != nil {
		_ = os.Remove(path)
		return store.Template{}, wrap(op, err)
	}

	s.logger.Info("template uploaded", "template_id", tpl.ID, "path", path, "variables", len(vars))
	return tpl, nil
}

// Template returns one template.
func (s *Service) Template(ctx context.Context, id int64) (store.Template, error) {
	tpl, err := s.store.Template(ctx, id)
	if err != nil {
		return store.Template{}, wrap("loading template", err)
	}
	return tpl, nil
}

// Templates lists every template.
func (s *Service) Templates(ctx context.Context) ([]store.Template, error) {
	tpls, err := s.store.Templates(ctx)
	if err != nil {
		return nil, wrap("listing templates", err)
	}
	return tpls, nil
}

// DeleteTemplate removes a template, its forms and its file. It waits for
// any save of the same template to finish.
func (s *Service) DeleteTemplate(ctx context.Context, id int64) error {
	const op = "deleting template"

	unlock := s.locks.Lock(id)
	defer unlock()

	tpl, err := s.store.Template(ctx, id)
	if err != nil {
		return wrap(op, err)
	}
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return wrap(op, err)
	}
	if err := os.Remove(tpl.FilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("template file not removed", "template_id", id, "path", tpl.FilePath, "error", err)
	}
	s.logger.Info("template deleted", "template_id", id)
	return nil
}

// OpenTemplateFile opens the stored file of a template for reading. The
// caller closes it.
func (s *Service) OpenTemplateFile(ctx context.Context, id int64) (*os.File, store.Template, error) {
	const op = "opening template file"

	tpl, err := s.store.Template(ctx, id)
	if err != nil {
		return nil, store.Template{}, wrap(op, err)
	}
	f, err := os.Open(tpl.FilePath) // #nosec G304 -- path comes from the store, not the client
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.Template{}, &Error{Kind: KindTemplateMissing, Op: op, Err: err}
		}
		return nil, store.Template{}, wrap(op, err)
	}
	return f, tpl, nil
}

// FileInfo describes the stored file of a template.
type FileInfo struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	LastModified int64  `json:"lastModified"`
	DownloadURL  string `json:"downloadUrl"`
}

// TemplateFileInfo returns size, modification time and download URL of a
// template's file.
func (s *Service) TemplateFileInfo(ctx context.Context, id int64) (FileInfo, error) {
	const op = "reading template file info"

	tpl, err := s.store.Template(ctx, id)
	if err != nil {
		return FileInfo{}, wrap(op, err)
	}
	st, err := os.Stat(tpl.FilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileInfo{}, &Error{Kind: KindTemplateMissing, Op: op, Err: err}
		}
		return FileInfo{}, wrap(op, err)
	}
	return FileInfo{
		ID:           tpl.ID,
		Name:         tpl.Name + TemplateExt,
		Size:         st.Size(),
		LastModified: st.ModTime().UnixMilli(),
		DownloadURL:  strings.TrimRight(s.editor.PublicURL, "/") + "/api/v1/onlyoffice/files/" + strconv.FormatInt(tpl.ID, 10),
	}, nil
}

// refreshVariables re-extracts the variables of a template whose file
// changed. The record is only rewritten when the set differs.
func (s *Service) refreshVariables(ctx context.Context, id int64, path string) {
	log := s.logger.With("template_id", id, "path", path)

	vars, err := extract.File(path)
	if err != nil {
		log.Warn("re-extracting variables failed", "error", err)
		return
	}
	tpl, err := s.store.Template(ctx, id)
	if err != nil {
		log.Warn("template vanished before variable refresh", "error", err)
		return
	}
	if slices.Equal(tpl.Variables, vars) {
		return
	}
	tpl.Variables = vars
	if _, err := s.store.UpdateTemplate(ctx, tpl); err != nil {
		log.Warn("storing refreshed variables failed", "error", err)
		return
	}
	log.Info("template variables refreshed", "variables", len(vars))
}

// templateSaved runs after the editor saved a new revision.
func (s *Service) templateSaved(ctx context.Context, id int64, path string) {
	s.refreshVariables(context.WithoutCancel(ctx), id, path)
}
