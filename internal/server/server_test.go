package server

// Notes:
// - Handlers are exercised through ServeHTTP with httptest recorders against
//   fakeService, an in-memory stand-in for *eform.Service. Rendering and
//   callback processing are tested in the root package.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alnah/go-eform"
	"github.com/alnah/go-eform/internal/callback"
	"github.com/alnah/go-eform/internal/formdata"
	"github.com/alnah/go-eform/internal/session"
	"github.com/alnah/go-eform/internal/store"
	"github.com/alnah/go-eform/internal/token"
)

// ---------------------------------------------------------------------------
// fakeService
// ---------------------------------------------------------------------------

type fakeService struct {
	store  *store.Memory
	signer *token.Signer
	dir    string

	mu        sync.Mutex
	overrides []map[string]any
	events    []callback.Event
}

var _ Service = (*fakeService)(nil)

func newFake(t *testing.T, secret string) *fakeService {
	t.Helper()
	return &fakeService{store: store.NewMemory(), signer: token.NewSigner(secret), dir: t.TempDir()}
}

func kinded(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &eform.Error{Kind: eform.KindNotFound, Err: err}
	}
	return err
}

func (f *fakeService) UploadTemplate(ctx context.Context, name, filename string, r io.Reader) (store.Template, error) {
	if filepath.Ext(filename) != ".docx" {
		return store.Template{}, &eform.Error{Kind: eform.KindInvalidInput, Err: errors.New("not a .docx file")}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return store.Template{}, err
	}
	path := filepath.Join(f.dir, filename)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return store.Template{}, err
	}
	return f.store.CreateTemplate(ctx, store.Template{Name: name, Filename: filename, FilePath: path, Variables: []string{"name"}})
}

func (f *fakeService) Template(ctx context.Context, id int64) (store.Template, error) {
	t, err := f.store.Template(ctx, id)
	return t, kinded(err)
}

func (f *fakeService) Templates(ctx context.Context) ([]store.Template, error) {
	return f.store.Templates(ctx)
}

func (f *fakeService) DeleteTemplate(ctx context.Context, id int64) error {
	return kinded(f.store.DeleteTemplate(ctx, id))
}

func (f *fakeService) SaveForm(ctx context.Context, form store.Form) (store.Form, error) {
	form.Data = formdata.Clean(form.Data)
	if form.ID == 0 {
		saved, err := f.store.CreateForm(ctx, form)
		return saved, kinded(err)
	}
	saved, err := f.store.UpdateForm(ctx, form)
	return saved, kinded(err)
}

func (f *fakeService) Form(ctx context.Context, id int64) (store.Form, error) {
	form, err := f.store.Form(ctx, id)
	return form, kinded(err)
}

func (f *fakeService) Forms(ctx context.Context, templateID int64) ([]store.Form, error) {
	return f.store.Forms(ctx, templateID)
}

func (f *fakeService) DeleteForm(ctx context.Context, id int64) error {
	return kinded(f.store.DeleteForm(ctx, id))
}

func (f *fakeService) GeneratePDF(ctx context.Context, formID int64, override map[string]any) ([]byte, error) {
	if _, err := f.store.Form(ctx, formID); err != nil {
		return nil, kinded(err)
	}
	f.mu.Lock()
	f.overrides = append(f.overrides, override)
	f.mu.Unlock()
	return []byte("%PDF-1.7 form " + strconv.FormatInt(formID, 10)), nil
}

func (f *fakeService) GenerateBatch(ctx context.Context, reqs []eform.BatchRequest) []eform.BatchResult {
	out := make([]eform.BatchResult, len(reqs))
	for i, r := range reqs {
		pdf, err := f.GeneratePDF(ctx, r.FormID, r.Data)
		out[i] = eform.BatchResult{FormID: r.FormID, PDF: pdf, Err: err}
	}
	return out
}

func (f *fakeService) Preview(ctx context.Context, templateID int64, _ map[string]any) ([]byte, error) {
	if _, err := f.store.Template(ctx, templateID); err != nil {
		return nil, kinded(err)
	}
	return []byte("%PDF-1.7 preview"), nil
}

func (f *fakeService) ValidateForm(data map[string]any, rules []formdata.Rule) formdata.Result {
	return formdata.Validate(data, rules)
}

func (f *fakeService) CleanData(data map[string]any) map[string]any {
	return formdata.Clean(data)
}

func (f *fakeService) EditorConfig(ctx context.Context, templateID int64, userID, userName string) (*session.Config, error) {
	tpl, err := f.store.Template(ctx, templateID)
	if err != nil {
		return nil, kinded(err)
	}
	b := session.Builder{ServerURL: "http://eform", Signer: f.signer}
	return b.Build(tpl.ID, tpl.Name, userID, userName)
}

func (f *fakeService) VerifyCallback(authorization string, body map[string]any) error {
	if err := callback.Authenticate(f.signer, callback.BearerToken(authorization), body); err != nil {
		return &eform.Error{Kind: eform.KindToken, Err: err}
	}
	return nil
}

func (f *fakeService) HandleCallback(_ context.Context, _ int64, ev callback.Event) callback.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return callback.Ack
}

func (f *fakeService) OpenTemplateFile(ctx context.Context, id int64) (*os.File, store.Template, error) {
	tpl, err := f.store.Template(ctx, id)
	if err != nil {
		return nil, store.Template{}, kinded(err)
	}
	file, err := os.Open(tpl.FilePath)
	return file, tpl, err
}

func (f *fakeService) TemplateFileInfo(ctx context.Context, id int64) (eform.FileInfo, error) {
	tpl, err := f.store.Template(ctx, id)
	if err != nil {
		return eform.FileInfo{}, kinded(err)
	}
	return eform.FileInfo{ID: tpl.ID, Name: tpl.Name + ".docx", DownloadURL: "http://eform/api/v1/onlyoffice/files/1"}, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(data)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func multipartUpload(t *testing.T, name, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != "" {
		_ = mw.WriteField("name", name)
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(content)
	}
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

// seed uploads one template and one form through the fake.
func seed(t *testing.T, f *fakeService) (store.Template, store.Form) {
	t.Helper()
	tpl, err := f.UploadTemplate(context.Background(), "Contract", "contract.docx", strings.NewReader("docx-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	form, err := f.SaveForm(context.Background(), store.Form{TemplateID: tpl.ID, Data: map[string]any{"name": "Ana"}})
	if err != nil {
		t.Fatal(err)
	}
	return tpl, form
}

// ---------------------------------------------------------------------------
// TestServer_Templates
// ---------------------------------------------------------------------------

func TestServer_Health(t *testing.T) {
	t.Parallel()

	rec := do(t, New(newFake(t, "")), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body)
	}
}

func TestServer_UploadTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		wantCode int
	}{
		{name: "docx accepted", filename: "contract.docx", wantCode: http.StatusOK},
		{name: "other extension", filename: "contract.pdf", wantCode: http.StatusBadRequest},
		{name: "no file part", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := New(newFake(t, ""))
			body, ct := multipartUpload(t, "Contract", tt.filename, []byte("docx-bytes"))
			rec := do(t, srv, http.MethodPost, "/api/v1/templates/upload", body, "Content-Type", ct)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body)
			}
			if tt.wantCode == http.StatusOK {
				tpl := decode[store.Template](t, rec)
				if tpl.ID != 1 || tpl.Name != "Contract" {
					t.Errorf("template = %+v", tpl)
				}
			}
		})
	}
}

func TestServer_UploadTemplate_TooLarge(t *testing.T) {
	t.Parallel()

	srv := New(newFake(t, ""), WithMaxUploadSize(1))
	body, ct := multipartUpload(t, "big", "big.docx", bytes.Repeat([]byte("x"), 2<<20))
	rec := do(t, srv, http.MethodPost, "/api/v1/templates/upload", body, "Content-Type", ct)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestServer_TemplateLookup(t *testing.T) {
	t.Parallel()

	fake := newFake(t, "")
	srv := New(fake)

	rec := do(t, srv, http.MethodGet, "/api/v1/templates", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("empty list = %d %q", rec.Code, rec.Body)
	}

	seed(t, fake)

	tests := []struct {
		method, target string
		wantCode       int
		wantKind       string
	}{
		{method: http.MethodGet, target: "/api/v1/templates/1", wantCode: http.StatusOK},
		{method: http.MethodGet, target: "/api/v1/templates/9", wantCode: http.StatusNotFound, wantKind: "not found"},
		{method: http.MethodGet, target: "/api/v1/templates/abc", wantCode: http.StatusBadRequest, wantKind: "invalid input"},
		{method: http.MethodPost, target: "/api/v1/templates/1/preview", wantCode: http.StatusOK},
		{method: http.MethodPost, target: "/api/v1/templates/9/preview", wantCode: http.StatusNotFound, wantKind: "not found"},
	}
	for _, tt := range tests {
		rec := do(t, srv, tt.method, tt.target, nil)
		if rec.Code != tt.wantCode {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.target, rec.Code, tt.wantCode)
			continue
		}
		if tt.wantKind != "" {
			if got := decode[errorBody](t, rec).Kind; got != tt.wantKind {
				t.Errorf("%s %s kind = %q, want %q", tt.method, tt.target, got, tt.wantKind)
			}
		}
	}

	rec = do(t, srv, http.MethodDelete, "/api/v1/templates/1", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// TestServer_Forms
// ---------------------------------------------------------------------------

func TestServer_SaveAndListForms(t *testing.T) {
	t.Parallel()

	fake := newFake(t, "")
	srv := New(fake)
	tpl, _ := seed(t, fake)

	rec := do(t, srv, http.MethodPost, "/api/v1/forms", jsonBody(t, map[string]any{
		"templateId": tpl.ID, "name": "F2", "data": map[string]any{"name": "  Bao  "},
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("save = %d %s", rec.Code, rec.Body)
	}
	saved := decode[store.Form](t, rec)
	if saved.ID != 2 || saved.Data["name"] != "Bao" {
		t.Errorf("saved = %+v", saved)
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/forms", jsonBody(t, map[string]any{"templateId": 99}))
	if rec.Code != http.StatusNotFound {
		t.Errorf("save for unknown template = %d, want 404", rec.Code)
	}
	rec = do(t, srv, http.MethodPost, "/api/v1/forms", strings.NewReader("{"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/forms?templateId="+strconv.FormatInt(tpl.ID, 10), nil)
	if forms := decode[[]store.Form](t, rec); len(forms) != 2 {
		t.Errorf("forms = %d, want 2", len(forms))
	}
	rec = do(t, srv, http.MethodGet, "/api/v1/forms?templateId=x", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad filter = %d, want 400", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, "/api/v1/forms/2", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get form = %d", rec.Code)
	}
	rec = do(t, srv, http.MethodDelete, "/api/v1/forms/2", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete form = %d", rec.Code)
	}
}

func TestServer_GeneratePDF(t *testing.T) {
	t.Parallel()

	fake := newFake(t, "")
	srv := New(fake)
	_, form := seed(t, fake)

	rec := do(t, srv, http.MethodPost, "/api/v1/forms/1/generate-pdf", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate = %d %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="form_1.pdf"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
		t.Errorf("body = %q", rec.Body)
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/forms/generate-pdf", jsonBody(t, map[string]any{
		"formId": form.ID, "data": map[string]any{"name": "Override"},
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("generate with override = %d", rec.Code)
	}
	want := []map[string]any{nil, {"name": "Override"}}
	if diff := cmp.Diff(want, fake.overrides); diff != "" {
		t.Errorf("overrides (-want +got):\n%s", diff)
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/forms/7/generate-pdf", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown form = %d, want 404", rec.Code)
	}
	rec = do(t, srv, http.MethodPost, "/api/v1/forms/generate-pdf", jsonBody(t, map[string]any{}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing formId = %d, want 400", rec.Code)
	}
}

func TestServer_GenerateBatch(t *testing.T) {
	t.Parallel()

	fake := newFake(t, "")
	srv := New(fake)
	seed(t, fake)

	rec := do(t, srv, http.MethodPost, "/api/v1/forms/generate-pdf/batch", jsonBody(t, []map[string]any{
		{"formId": 1}, {"formId": 5},
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("batch = %d %s", rec.Code, rec.Body)
	}
	items := decode[[]batchItem](t, rec)
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Error != "" || !bytes.HasPrefix(items[0].PDF, []byte("%PDF-")) {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].Kind != "not found" || items[1].PDF != nil {
		t.Errorf("items[1] = %+v", items[1])
	}
}

func TestServer_FormUtilities(t *testing.T) {
	t.Parallel()

	srv := New(newFake(t, ""), WithLang("vi"))

	rec := do(t, srv, http.MethodPost, "/api/v1/forms/validate", jsonBody(t, map[string]any{
		"data":  map[string]any{"email": "nope"},
		"rules": []map[string]any{{"fieldName": "email", "type": "email"}},
	}))
	res := decode[formdata.Result](t, rec)
	if res.Valid || res.Errors["email"] != "Email không hợp lệ" {
		t.Errorf("validate = %+v", res)
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/forms/test-format", jsonBody(t, map[string]any{"a": " x  y "}))
	if got := decode[map[string]any](t, rec); got["a"] != "x y" {
		t.Errorf("test-format = %v", got)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/utils/format-currency/1234567", nil)
	if got := rec.Body.String(); got != "1.234.567 VND" {
		t.Errorf("format-currency = %q", got)
	}
}

// ---------------------------------------------------------------------------
// TestServer_Editor - Document server endpoints
// ---------------------------------------------------------------------------

func TestServer_EditorEndpoints(t *testing.T) {
	t.Parallel()

	fake := newFake(t, "")
	srv := New(fake)
	seed(t, fake)

	rec := do(t, srv, http.MethodGet, "/api/v1/onlyoffice/config/1?userId=u1&userName=Ana", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("config = %d %s", rec.Code, rec.Body)
	}
	cfg := decode[session.Config](t, rec)
	if cfg.Document.Key == "" || cfg.EditorConfig.User.Name != "Ana" {
		t.Errorf("config = %+v", cfg)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/onlyoffice/files/1", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "docx-bytes" {
		t.Errorf("files = %d %q", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("files Content-Type = %q", ct)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/onlyoffice/info/1", nil)
	if info := decode[eform.FileInfo](t, rec); info.Name != "Contract.docx" {
		t.Errorf("info = %+v", info)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/onlyoffice/config/8", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("config for unknown template = %d, want 404", rec.Code)
	}
}

func TestServer_Callback(t *testing.T) {
	t.Parallel()

	const secret = "shared"
	event := map[string]any{"status": 2, "key": "template_1_x", "url": "http://docs/out.docx"}
	signed, err := token.NewSigner(secret).Sign(event)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		secret   string
		body     string
		header   string
		wantCode int
		wantResp callback.Response
		wantSeen int
	}{
		{
			name:     "valid header token",
			secret:   secret,
			body:     `{"status":2,"key":"template_1_x","url":"http://docs/out.docx"}`,
			header:   "Bearer " + signed,
			wantCode: http.StatusOK,
			wantResp: callback.Ack,
			wantSeen: 1,
		},
		{
			name:     "token replayed over another url",
			secret:   secret,
			body:     `{"status":2,"key":"template_1_x","url":"http://elsewhere.example/out.docx"}`,
			header:   "Bearer " + signed,
			wantCode: http.StatusUnauthorized,
			wantResp: callback.Response{Error: 1, Message: "Invalid JWT token"},
		},
		{
			name:     "missing token",
			secret:   secret,
			body:     `{"status":2,"url":"http://docs/out.docx"}`,
			wantCode: http.StatusUnauthorized,
			wantResp: callback.Response{Error: 1, Message: "Invalid JWT token"},
		},
		{
			name:     "unsigned service",
			body:     `{"status":1}`,
			wantCode: http.StatusOK,
			wantResp: callback.Ack,
			wantSeen: 1,
		},
		{
			name:     "malformed body",
			body:     `{"status":`,
			wantCode: http.StatusOK,
			wantResp: callback.Response{Error: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake := newFake(t, tt.secret)
			srv := New(fake)
			rec := do(t, srv, http.MethodPost, "/api/v1/onlyoffice/callback/1", strings.NewReader(tt.body), "Authorization", tt.header)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body)
			}
			got := decode[callback.Response](t, rec)
			if got.Error != tt.wantResp.Error {
				t.Errorf("response = %+v, want %+v", got, tt.wantResp)
			}
			if tt.wantResp.Message != "" && got.Message != tt.wantResp.Message {
				t.Errorf("message = %q, want %q", got.Message, tt.wantResp.Message)
			}
			if len(fake.events) != tt.wantSeen {
				t.Errorf("events handled = %d, want %d", len(fake.events), tt.wantSeen)
			}
		})
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	t.Parallel()

	rec := do(t, New(newFake(t, "")), http.MethodOptions, "/api/v1/onlyoffice/config/1", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
