package main

// Notes:
// - Only the input side of render is tested here: data files, stdin and
//   prompting. Generating the PDF needs Chrome.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name      string
		path      string
		stdin     string
		want      map[string]any
		wantUsage bool
		wantIO    bool
	}{
		{name: "no file", want: map[string]any{}},
		{name: "json", path: write("a.json", `{"name": "Ana"}`), want: map[string]any{"name": "Ana"}},
		{name: "yaml", path: write("a.yaml", "name: Bao\n"), want: map[string]any{"name": "Bao"}},
		{name: "stdin", path: "-", stdin: `{"name": "Chi"}`, want: map[string]any{"name": "Chi"}},
		{name: "blank file", path: write("blank.yaml", "  \n"), want: map[string]any{}},
		{name: "not a mapping", path: write("list.yaml", "- a\n- b\n"), wantUsage: true},
		{name: "missing file", path: filepath.Join(dir, "absent.json"), wantIO: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := newTestApp(newTestEnv(nil, tt.stdin))
			got, err := a.readValues(tt.path)
			switch {
			case tt.wantUsage:
				if exitCodeFor(err) != ExitUsage {
					t.Errorf("error = %v, want usage error", err)
				}
				return
			case tt.wantIO:
				if exitCodeFor(err) != ExitIO {
					t.Errorf("error = %v, want I/O error", err)
				}
				return
			case err != nil:
				t.Fatalf("readValues() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("values (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAskMissing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil, "")
	p := &fakePrompter{answers: map[string]string{"date": "31/01/2024", "total": "9"}}
	env.Prompter = p
	a := newTestApp(env)

	values := map[string]any{"name": "Ana"}
	if err := a.askMissing(context.Background(), []string{"name", "date", "total"}, values); err != nil {
		t.Fatalf("askMissing() error = %v", err)
	}
	if diff := cmp.Diff([]string{"date", "total"}, p.asked); diff != "" {
		t.Errorf("asked (-want +got):\n%s", diff)
	}
	want := map[string]any{"name": "Ana", "date": "31/01/2024", "total": "9"}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("values (-want +got):\n%s", diff)
	}
}

func TestAskMissing_Interrupted(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil, "")
	env.Prompter = &fakePrompter{err: context.Canceled}
	a := newTestApp(env)

	err := a.askMissing(context.Background(), []string{"name"}, map[string]any{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
