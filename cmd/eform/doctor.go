package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/cobra"

	"github.com/alnah/go-eform/internal/assets"
	"github.com/alnah/go-eform/internal/config"
	"github.com/alnah/go-eform/internal/fileutil"
	"github.com/alnah/go-eform/internal/hints"
)

// errNotReady is returned when doctor finds blocking problems.
var errNotReady = errors.New("environment not ready")

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorReport is the result of all checks.
type doctorReport struct {
	Status   string      `json:"status"`
	Chrome   chromeCheck `json:"chrome"`
	Env      envCheck    `json:"environment"`
	Storage  dirCheck    `json:"storage"`
	Fonts    fontCheck   `json:"fonts"`
	Signing  bool        `json:"signing"`
	Warnings []string    `json:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

type chromeCheck struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

type envCheck struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

type dirCheck struct {
	TempWritable   bool `json:"temp_writable"`
	UploadWritable bool `json:"upload_writable"`
}

type fontCheck struct {
	Family string `json:"family"`
	Found  bool   `json:"found"`
}

func newDoctorCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check Chrome, fonts, directories and signing",
		Args:  exactArgs(0),
		RunE: func(*cobra.Command, []string) error {
			r := a.doctor(exec.Command)
			if asJSON {
				enc := json.NewEncoder(a.env.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(r); err != nil {
					return err
				}
			} else {
				printReport(a.env.Stdout, r)
			}
			if r.Status == statusErrors {
				return errNotReady
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

// doctor runs every check. command builds the Chrome version probe.
func (a *app) doctor(command func(string, ...string) *exec.Cmd) *doctorReport {
	r := &doctorReport{
		Env:     envCheck{OS: runtime.GOOS, Arch: runtime.GOARCH},
		Signing: a.cfg.OnlyOffice.JWTSecret != "",
	}

	a.checkChrome(r, command)
	a.checkEnvironment(r)
	a.checkStorage(r)
	a.checkFonts(r)
	if !r.Signing {
		r.Warnings = append(r.Warnings, "no JWT secret: editor sessions and callbacks are unsigned")
	}

	switch {
	case len(r.Errors) > 0:
		r.Status = statusErrors
	case len(r.Warnings) > 0:
		r.Status = statusWarnings
	default:
		r.Status = statusReady
	}
	return r
}

func (a *app) checkChrome(r *doctorReport, command func(string, ...string) *exec.Cmd) {
	path := a.cfg.Browser.Bin
	if path == "" {
		var found bool
		if path, found = launcher.LookPath(); !found {
			r.Errors = append(r.Errors, "Chrome/Chromium not found: install it or set EFORM_BROWSER_BIN")
			return
		}
	}
	if !fileutil.FileExists(path) {
		r.Errors = append(r.Errors, "Chrome not found at "+path)
		return
	}

	r.Chrome.Found = true
	r.Chrome.Path = path
	r.Chrome.Sandbox = !a.cfg.Browser.NoSandbox
	if out, err := command(path, "--version").Output(); err == nil {
		r.Chrome.Version = strings.TrimSpace(string(out))
	} else {
		r.Warnings = append(r.Warnings, fmt.Sprintf("could not read Chrome version: %v", err))
	}
}

func (a *app) checkEnvironment(r *doctorReport) {
	getenv := a.env.Getenv
	switch {
	case getenv("EFORM_CONTAINER") == "1":
		r.Env.Container, r.Env.ContainerHint = true, "EFORM_CONTAINER=1"
	case hints.IsInContainer():
		r.Env.Container, r.Env.ContainerHint = true, "/.dockerenv"
	case getenv("container") != "":
		r.Env.Container, r.Env.ContainerHint = true, "container="+getenv("container")
	case getenv("KUBERNETES_SERVICE_HOST") != "":
		r.Env.Container, r.Env.ContainerHint = true, "KUBERNETES_SERVICE_HOST"
	}
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if getenv(v) != "" {
			r.Env.CI = true
			break
		}
	}

	if (r.Env.Container || r.Env.CI) && !a.cfg.Browser.NoSandbox {
		r.Warnings = append(r.Warnings, "container/CI detected but the Chrome sandbox is on: set EFORM_BROWSER_NO_SANDBOX=true")
	}
}

func (a *app) checkStorage(r *doctorReport) {
	r.Storage.TempWritable = writable(a.cfg.Storage.TempDir)
	if !r.Storage.TempWritable {
		r.Errors = append(r.Errors, "temp directory not writable")
	}
	r.Storage.UploadWritable = writable(a.cfg.Storage.UploadDir)
	if !r.Storage.UploadWritable {
		r.Errors = append(r.Errors, "upload directory not writable: "+a.cfg.Storage.UploadDir)
	}
}

// writable reports whether a file can be created in dir, creating dir if
// needed. An empty dir means the system temp dir.
func writable(dir string) bool {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return false
		}
	}
	_, cleanup, err := fileutil.WriteTempFile(dir, "doctor", []byte("ok"), "tmp")
	if err != nil {
		return false
	}
	cleanup()
	return true
}

func (a *app) checkFonts(r *doctorReport) {
	family := a.cfg.Render.FontFamily
	if family == "" {
		family = config.DefaultFontFamily
	}
	r.Fonts.Family = family

	loader, err := assets.NewResolver(a.cfg.Render.AssetsDir)
	if err == nil && !loader.HasFontDir() {
		r.Warnings = append(r.Warnings, fmt.Sprintf("no assets directory configured, Chrome will substitute font %q", family))
		return
	}
	if err == nil {
		_, err = loader.LoadFont(family)
	}
	if err != nil {
		r.Warnings = append(r.Warnings, fmt.Sprintf("font %q unavailable, Chrome will substitute it: %v", family, err))
		return
	}
	r.Fonts.Found = true
}

func printReport(w io.Writer, r *doctorReport) {
	fmt.Fprintln(w, "eform doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] %s\n", r.Chrome.Version)
		}
		if !r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] sandbox disabled")
		}
	} else {
		fmt.Fprintln(w, "  [ERROR] not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] container (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Rendering")
	fmt.Fprintf(w, "  [%s] font %s\n", okOr(r.Fonts.Found, "WARN"), r.Fonts.Family)
	fmt.Fprintf(w, "  [%s] temp directory writable\n", okOr(r.Storage.TempWritable, "ERROR"))
	fmt.Fprintf(w, "  [%s] upload directory writable\n", okOr(r.Storage.UploadWritable, "ERROR"))
	fmt.Fprintf(w, "  [%s] token signing\n", okOr(r.Signing, "WARN"))
	fmt.Fprintln(w)

	for _, msg := range r.Warnings {
		fmt.Fprintf(w, "  [WARN] %s\n", msg)
	}
	for _, msg := range r.Errors {
		fmt.Fprintf(w, "  [ERROR] %s\n", msg)
	}
	if len(r.Warnings)+len(r.Errors) > 0 {
		fmt.Fprintln(w)
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: ready")
	case statusWarnings:
		fmt.Fprintln(w, "Status: ready with warnings")
	default:
		fmt.Fprintln(w, "Status: not ready")
	}
}

func okOr(ok bool, otherwise string) string {
	if ok {
		return "OK"
	}
	return otherwise
}
