package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/alnah/go-eform/internal/callback"
)

// msgInvalidToken is sent with 401 when a callback fails authentication.
const msgInvalidToken = "Invalid JWT token"

func (s *Server) editorConfig(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "templateId")
	if err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	q := r.URL.Query()
	cfg, err := s.svc.EditorConfig(r.Context(), id, q.Get("userId"), q.Get("userName"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// serveFile streams the template to the document server.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "templateId")
	if err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	f, tpl, err := s.svc.OpenTemplateFile(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, tpl.Name+".docx", st.ModTime(), f)
}

func (s *Server) fileInfo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "templateId")
	if err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	info, err := s.svc.TemplateFileInfo(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// callback answers the document server. Apart from a failed token check
// (401) the status is always 200 and failures travel in the body, which is
// all the document server reads.
func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "templateId")
	if err != nil {
		writeJSON(w, http.StatusOK, callback.Response{Error: 1, Message: err.Error()})
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeJSON(w, http.StatusOK, callback.Response{Error: 1, Message: err.Error()})
		return
	}

	// The token signs the body as sent, so it is checked on the generic
	// decoding before the typed one.
	var body map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusOK, callback.Response{Error: 1, Message: "invalid callback body: " + err.Error()})
		return
	}
	if err := s.svc.VerifyCallback(r.Header.Get("Authorization"), body); err != nil {
		s.logger.Warn("callback rejected", "template_id", id, "error", err)
		writeJSON(w, http.StatusUnauthorized, callback.Response{Error: 1, Message: msgInvalidToken})
		return
	}

	var ev callback.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		writeJSON(w, http.StatusOK, callback.Response{Error: 1, Message: "invalid callback body: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.svc.HandleCallback(r.Context(), id, ev))
}
