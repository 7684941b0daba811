package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/alnah/go-eform"
	"github.com/alnah/go-eform/internal/formdata"
	"github.com/alnah/go-eform/internal/store"
)

func (s *Server) uploadTemplate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "upload too large"})
			return
		}
		s.badRequest(w, "invalid multipart form: %v", err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.badRequest(w, "missing file: %v", err)
		return
	}
	defer file.Close()

	tpl, err := s.svc.UploadTemplate(r.Context(), r.FormValue("name"), header.Filename, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	tpls, err := s.svc.Templates(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if tpls == nil {
		tpls = []store.Template{}
	}
	writeJSON(w, http.StatusOK, tpls)
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	tpl, err := s.svc.Template(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	if err := s.svc.DeleteTemplate(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) previewTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	var sample map[string]any
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &sample); err != nil {
			s.badRequest(w, "%v", err)
			return
		}
	}
	pdf, err := s.svc.Preview(r.Context(), id, sample)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writePDF(w, "preview_"+strconv.FormatInt(id, 10)+".pdf", pdf)
}

// formRequest is the body of POST /forms. ID is set to update a form.
type formRequest struct {
	ID         int64          `json:"id,omitempty"`
	TemplateID int64          `json:"templateId"`
	Name       string         `json:"name"`
	Data       map[string]any `json:"data"`
}

func (s *Server) saveForm(w http.ResponseWriter, r *http.Request) {
	var req formRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	f, err := s.svc.SaveForm(r.Context(), store.Form{
		ID:         req.ID,
		TemplateID: req.TemplateID,
		Name:       req.Name,
		Data:       req.Data,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) listForms(w http.ResponseWriter, r *http.Request) {
	var templateID int64
	if raw := r.URL.Query().Get("templateId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			s.badRequest(w, "invalid templateId %q", raw)
			return
		}
		templateID = id
	}
	forms, err := s.svc.Forms(r.Context(), templateID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if forms == nil {
		forms = []store.Form{}
	}
	writeJSON(w, http.StatusOK, forms)
}

func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	f, err := s.svc.Form(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) deleteForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	if err := s.svc.DeleteForm(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) generateFormPDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	pdf, err := s.svc.GeneratePDF(r.Context(), id, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writePDF(w, "form_"+strconv.FormatInt(id, 10)+".pdf", pdf)
}

func (s *Server) generatePDF(w http.ResponseWriter, r *http.Request) {
	var req eform.BatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	if req.FormID <= 0 {
		s.badRequest(w, "formId is required")
		return
	}
	pdf, err := s.svc.GeneratePDF(r.Context(), req.FormID, req.Data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writePDF(w, "generated_form.pdf", pdf)
}

// batchItem is one entry of the batch response. PDF is base64 in JSON.
type batchItem struct {
	FormID int64  `json:"formId"`
	PDF    []byte `json:"pdf,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

func (s *Server) generateBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []eform.BatchRequest
	if err := decodeJSON(w, r, &reqs); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	results := s.svc.GenerateBatch(r.Context(), reqs)

	items := make([]batchItem, len(results))
	for i, res := range results {
		items[i] = batchItem{FormID: res.FormID, PDF: res.PDF}
		if res.Err != nil {
			items[i].Error = res.Err.Error()
			items[i].Kind = eform.KindOf(res.Err).String()
		}
	}
	writeJSON(w, http.StatusOK, items)
}

type validateRequest struct {
	Data  map[string]any  `json:"data"`
	Rules []formdata.Rule `json:"rules"`
}

func (s *Server) validateForm(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.ValidateForm(req.Data, req.Rules))
}

func (s *Server) testFormat(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := decodeJSON(w, r, &data); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.CleanData(data))
}

func (s *Server) formatCurrency(w http.ResponseWriter, r *http.Request) {
	out := formdata.FormatCurrency(r.PathValue("amount"), s.lang, r.URL.Query().Get("unit"))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}
