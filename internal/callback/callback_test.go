package callback_test

// Notes:
// - Downloads are served by httptest servers; no network access is needed.
// - The lock test checks mutual exclusion by counting concurrent holders, not
//   by timing.

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alnah/go-eform/internal/callback"
	"github.com/alnah/go-eform/internal/session"
	"github.com/alnah/go-eform/internal/token"
)

type mapStore map[int64]string

func (m mapStore) FilePath(_ context.Context, id int64) (string, error) {
	p, ok := m[id]
	if !ok {
		return "", errors.New("template not found")
	}
	return p, nil
}

type staticFetcher struct {
	body string
	err  error
}

func (f staticFetcher) Fetch(context.Context, string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

type brokenFetcher struct{}

func (brokenFetcher) Fetch(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(io.MultiReader(strings.NewReader("partial"), brokenReader{})), nil
}

func setup(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "1700000000000_contract.docx")
	if err := os.WriteFile(path, []byte("original"), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

func backups(t *testing.T, dir string) []string {
	t.Helper()
	matches, _ := filepath.Glob(filepath.Join(dir, "*_backup_*.docx"))
	return matches
}

// ---------------------------------------------------------------------------
// TestHandle - Status handling
// ---------------------------------------------------------------------------

func TestHandle_AcknowledgedStatuses(t *testing.T) {
	t.Parallel()

	for _, status := range []callback.Status{0, 1, 3, 4, 7, 9} {
		t.Run(status.String(), func(t *testing.T) {
			t.Parallel()

			dir, path := setup(t)
			p := callback.NewProcessor(mapStore{1: path}, staticFetcher{body: "new"})
			got := p.Handle(context.Background(), 1, callback.Event{Status: status, URL: "http://docs/f"})
			if got != callback.Ack {
				t.Errorf("Handle() = %+v, want ack", got)
			}
			data, _ := os.ReadFile(path)
			if string(data) != "original" {
				t.Errorf("file changed to %q", data)
			}
			if b := backups(t, dir); len(b) != 0 {
				t.Errorf("backups created: %v", b)
			}
		})
	}
}

func TestHandle_Save(t *testing.T) {
	t.Parallel()

	for _, status := range []callback.Status{callback.StatusReady, callback.StatusForceSave} {
		t.Run(status.String(), func(t *testing.T) {
			t.Parallel()

			dir, path := setup(t)
			var saved atomic.Int64
			p := callback.NewProcessor(mapStore{5: path}, staticFetcher{body: "edited"},
				callback.WithClock(func() time.Time { return time.UnixMilli(1700000123456) }),
				callback.WithOnSaved(func(_ context.Context, id int64, _ string) { saved.Store(id) }),
			)

			got := p.Handle(context.Background(), 5, callback.Event{Status: status, URL: "http://docs/f"})
			if got != callback.Ack {
				t.Fatalf("Handle() = %+v, want ack", got)
			}

			data, _ := os.ReadFile(path)
			if string(data) != "edited" {
				t.Errorf("content = %q, want edited", data)
			}
			backup := filepath.Join(dir, "1700000000000_contract_backup_1700000123456.docx")
			old, err := os.ReadFile(backup)
			if err != nil || string(old) != "original" {
				t.Errorf("backup = %q, %v", old, err)
			}
			if saved.Load() != 5 {
				t.Error("OnSaved hook not called")
			}
		})
	}
}

func TestHandle_RepeatedSaveKeepsEveryBackup(t *testing.T) {
	t.Parallel()

	dir, path := setup(t)
	p := callback.NewProcessor(mapStore{1: path}, staticFetcher{body: "edited"},
		callback.WithClock(func() time.Time { return time.UnixMilli(42) }))

	ev := callback.Event{Status: callback.StatusReady, URL: "http://docs/f"}
	for range 2 {
		if got := p.Handle(context.Background(), 1, ev); got != callback.Ack {
			t.Fatalf("Handle() = %+v", got)
		}
	}
	if b := backups(t, dir); len(b) != 2 {
		t.Errorf("backups = %v, want 2 distinct files", b)
	}
}

func TestHandle_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fetcher callback.Fetcher
		event   callback.Event
		store   func(path string) mapStore
		wantMsg string
	}{
		{
			name:    "missing url",
			fetcher: staticFetcher{body: "x"},
			event:   callback.Event{Status: callback.StatusReady},
			wantMsg: "No download URL provided",
		},
		{
			name:    "fetch error",
			fetcher: staticFetcher{err: errors.New("dial tcp: refused")},
			event:   callback.Event{Status: callback.StatusReady, URL: "http://docs/f"},
			wantMsg: "Failed to save document: dial tcp: refused",
		},
		{
			name:    "stream breaks mid-download",
			fetcher: brokenFetcher{},
			event:   callback.Event{Status: callback.StatusForceSave, URL: "http://docs/f"},
			wantMsg: "Failed to save document: ",
		},
		{
			name:    "unknown template",
			fetcher: staticFetcher{body: "x"},
			event:   callback.Event{Status: callback.StatusReady, URL: "http://docs/f"},
			store:   func(string) mapStore { return mapStore{} },
			wantMsg: "Failed to save document: template not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir, path := setup(t)
			store := mapStore{1: path}
			if tt.store != nil {
				store = tt.store(path)
			}
			got := callback.NewProcessor(store, tt.fetcher).Handle(context.Background(), 1, tt.event)
			if got.Error != 1 || !strings.HasPrefix(got.Message, tt.wantMsg) {
				t.Errorf("Handle() = %+v, want error 1 with %q", got, tt.wantMsg)
			}

			data, _ := os.ReadFile(path)
			if string(data) != "original" {
				t.Errorf("original modified: %q", data)
			}
			entries, _ := os.ReadDir(dir)
			for _, e := range entries {
				if strings.HasPrefix(e.Name(), "eform-") {
					t.Errorf("temp file left behind: %s", e.Name())
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestHTTPFetcher - Download client
// ---------------------------------------------------------------------------

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = io.WriteString(w, "document")
		case "/big":
			_, _ = io.WriteString(w, strings.Repeat("x", 64))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	f := &callback.HTTPFetcher{Client: srv.Client(), MaxBytes: 32}

	body, err := f.Fetch(context.Background(), srv.URL+"/ok")
	if err != nil {
		t.Fatalf("Fetch(ok) error = %v", err)
	}
	data, _ := io.ReadAll(body)
	_ = body.Close()
	if string(data) != "document" {
		t.Errorf("body = %q", data)
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); !errors.Is(err, callback.ErrFetch) {
		t.Errorf("Fetch(404) error = %v, want ErrFetch", err)
	}
	for _, raw := range []string{"file:///etc/passwd", "ftp://docs/f.docx", "docs/f.docx", "http:///f.docx"} {
		if _, err := f.Fetch(context.Background(), raw); !errors.Is(err, callback.ErrFetch) {
			t.Errorf("Fetch(%q) error = %v, want ErrFetch", raw, err)
		}
	}

	big, err := f.Fetch(context.Background(), srv.URL+"/big")
	if err != nil {
		t.Fatal(err)
	}
	defer big.Close()
	if _, err := io.ReadAll(big); !errors.Is(err, callback.ErrFetch) {
		t.Errorf("oversized read error = %v, want ErrFetch", err)
	}
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() { close(release); srv.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := (&callback.HTTPFetcher{Client: srv.Client()}).Fetch(ctx, srv.URL)
	if !errors.Is(err, callback.ErrFetch) {
		t.Errorf("error = %v, want ErrFetch", err)
	}
}

// ---------------------------------------------------------------------------
// TestKeyedMutex - Per-template serialization
// ---------------------------------------------------------------------------

func TestKeyedMutex(t *testing.T) {
	t.Parallel()

	m := callback.NewKeyedMutex()
	var active, peak atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock(1)
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	if peak.Load() != 1 {
		t.Errorf("peak holders = %d, want 1", peak.Load())
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d after release, want 0", m.Len())
	}

	// Distinct keys do not block each other.
	u1 := m.Lock(1)
	u2 := m.Lock(2)
	u2()
	u1()
}

// ---------------------------------------------------------------------------
// TestAuthenticate - Callback tokens
// ---------------------------------------------------------------------------

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	signer := token.NewSigner("secret")
	body := map[string]any{"status": float64(2), "url": "http://docs/f", "key": "template_1_x"}
	forged := map[string]any{"status": float64(2), "url": "http://elsewhere.example/f.docx", "key": "template_1_x"}
	bodyToken, _ := signer.Sign(body)
	wrapped, _ := signer.Sign(map[string]any{"payload": body})
	wrappedForged, _ := signer.Sign(map[string]any{"payload": forged})
	foreign, _ := token.NewSigner("other").Sign(body)

	// The editor config token is handed to every browser that opens the
	// editor; it must not authorize a callback.
	editor, err := (&session.Builder{ServerURL: "http://app", Signer: signer}).Build(1, "contract", "u1", "Ana")
	if err != nil {
		t.Fatal(err)
	}

	withToken := map[string]any{"token": bodyToken}
	for k, v := range body {
		withToken[k] = v
	}
	forgedWithToken := map[string]any{"token": bodyToken}
	for k, v := range forged {
		forgedWithToken[k] = v
	}

	tests := []struct {
		name    string
		signer  callback.Verifier
		header  string
		body    map[string]any
		wantErr error
	}{
		{name: "disabled accepts anything", signer: token.NewSigner(""), body: body},
		{name: "header token over body", signer: signer, header: bodyToken, body: body},
		{name: "header token over wrapped payload", signer: signer, header: wrapped, body: body},
		{name: "token inside body", signer: signer, body: withToken},
		{name: "missing token", signer: signer, body: body, wantErr: callback.ErrNoToken},
		{name: "foreign secret", signer: signer, header: foreign, body: body, wantErr: callback.ErrBadToken},
		{name: "garbage", signer: signer, header: "abc", body: body, wantErr: callback.ErrBadToken},
		{name: "editor config token", signer: signer, header: editor.Token, body: forged, wantErr: callback.ErrBadToken},
		{name: "header token for another body", signer: signer, header: bodyToken, body: forged, wantErr: callback.ErrBadToken},
		{name: "wrapped payload of another body", signer: signer, header: wrappedForged, body: body, wantErr: callback.ErrBadToken},
		{name: "body token over changed fields", signer: signer, body: forgedWithToken, wantErr: callback.ErrBadToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := callback.Authenticate(tt.signer, tt.header, tt.body)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authenticate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"Bearer abc.def.ghi": "abc.def.ghi",
		"bearer  xyz ":       "xyz",
		"raw":                "raw",
		"":                   "",
	} {
		if got := callback.BearerToken(in); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}
