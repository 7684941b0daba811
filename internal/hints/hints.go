// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"path/filepath"
	"strings"

	"github.com/alnah/go-eform/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for browser connection errors. getenv
// reads the caller's environment, usually os.Getenv.
func ForBrowserConnect(getenv func(string) string) string {
	var hints []string

	inCI := getenv("CI") != "" ||
		getenv("GITHUB_ACTIONS") != "" ||
		getenv("GITLAB_CI") != "" ||
		getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && getenv("EFORM_BROWSER_NO_SANDBOX") != "true" {
		hints = append(hints, "set EFORM_BROWSER_NO_SANDBOX=true for Docker/CI")
	}

	if getenv("EFORM_BROWSER_BIN") == "" {
		hints = append(hints, "set EFORM_BROWSER_BIN to use an installed Chrome")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing timeout for slow operations.
func ForTimeout() string {
	return format("for large documents, use --timeout or render.timeoutSeconds")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in the user config directory.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(filepath.ToSlash(p), "/eform/") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForFontNotFound explains where the canonical font family is looked up.
func ForFontNotFound(family, assetsDir string) string {
	base := strings.Join(strings.Fields(family), "")
	if assetsDir == "" {
		return format("set --assets-dir to a directory holding fonts/" + base + "-Regular.ttf")
	}
	return format("place " + base + "-Regular.ttf in " + filepath.Join(assetsDir, "fonts"))
}

// ForToken returns a hint for rejected editor tokens.
func ForToken() string {
	return format("onlyoffice.jwtSecret must match the Document Server JWT secret")
}

// ForTemplate returns a hint for unreadable templates.
func ForTemplate() string {
	return format("templates must be readable .docx (WordprocessingML) files")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
