package hints

// Notes:
// - ForBrowserConnect tests cannot use t.Parallel() because they modify the
//   package-level IsInContainer variable.

import (
	"strings"
	"testing"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestForBrowserConnect(t *testing.T) {
	orig := IsInContainer
	defer func() { IsInContainer = orig }()

	tests := []struct {
		name      string
		container bool
		vars      map[string]string
		want      []string
		notWant   []string
	}{
		{name: "in CI", vars: map[string]string{"CI": "true"}, want: []string{"EFORM_BROWSER_NO_SANDBOX", "EFORM_BROWSER_BIN"}},
		{name: "in Docker", container: true, want: []string{"EFORM_BROWSER_NO_SANDBOX"}},
		{name: "sandbox already off", container: true, vars: map[string]string{"EFORM_BROWSER_NO_SANDBOX": "true"}, notWant: []string{"NO_SANDBOX"}},
		{name: "local with browser set", vars: map[string]string{"EFORM_BROWSER_BIN": "/usr/bin/chromium"}, notWant: []string{"hint:"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			IsInContainer = func() bool { return tt.container }
			hint := ForBrowserConnect(env(tt.vars))
			for _, w := range tt.want {
				if !strings.Contains(hint, w) {
					t.Errorf("hint %q missing %q", hint, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(hint, w) {
					t.Errorf("hint %q should not contain %q", hint, w)
				}
			}
		})
	}
}

func TestForConfigNotFound(t *testing.T) {
	t.Parallel()

	hint := ForConfigNotFound([]string{"eform.yaml", "/home/u/.config/eform/eform.yaml"})
	if !strings.HasPrefix(hint, "\n  hint: use --config") || !strings.Contains(hint, "or create /home/u/.config/eform/eform.yaml") {
		t.Errorf("hint = %q", hint)
	}
	if got := ForConfigNotFound(nil); strings.Contains(got, "create") {
		t.Errorf("hint without user path = %q", got)
	}
}

func TestForFontNotFound(t *testing.T) {
	t.Parallel()

	if got := ForFontNotFound("Times New Roman", ""); !strings.Contains(got, "fonts/TimesNewRoman-Regular.ttf") {
		t.Errorf("hint = %q", got)
	}
	if got := ForFontNotFound("Times New Roman", "/srv/assets"); !strings.Contains(got, "TimesNewRoman-Regular.ttf in /srv/assets/fonts") {
		t.Errorf("hint = %q", got)
	}
}

func TestStaticHints(t *testing.T) {
	t.Parallel()

	for _, h := range []string{ForTimeout(), ForToken(), ForTemplate()} {
		if !strings.HasPrefix(h, "\n  hint: ") {
			t.Errorf("hint %q lacks prefix", h)
		}
	}
	if format("") != "" || formatHints(nil) != "" {
		t.Error("empty hints should format to empty strings")
	}
}
