package main

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-eform/internal/config"
)

// envConfig holds configuration from EFORM_* environment variables.
// Unset or unparsable values are zero and leave the config untouched.
type envConfig struct {
	ConfigPath string // EFORM_CONFIG

	Addr      string // EFORM_ADDR
	PublicURL string // EFORM_PUBLIC_URL

	UploadDir string // EFORM_UPLOAD_DIR
	TempDir   string // EFORM_TEMP_DIR
	StoreFile string // EFORM_STORE_FILE
	Watch     *bool  // EFORM_WATCH

	DocsURL   string // EFORM_DOCS_URL
	JWTSecret string // EFORM_JWT_SECRET
	Lang      string // EFORM_LANG

	FontFamily string        // EFORM_FONT_FAMILY
	FontSize   int           // EFORM_FONT_SIZE
	AssetsDir  string        // EFORM_ASSETS_DIR
	ImageRoot  string        // EFORM_IMAGE_ROOT
	Workers    int           // EFORM_WORKERS
	Timeout    time.Duration // EFORM_TIMEOUT

	BrowserBin string // EFORM_BROWSER_BIN
	NoSandbox  *bool  // EFORM_BROWSER_NO_SANDBOX
}

// knownEnvVars lists valid EFORM_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"EFORM_CONFIG":             true,
	"EFORM_ADDR":               true,
	"EFORM_PUBLIC_URL":         true,
	"EFORM_UPLOAD_DIR":         true,
	"EFORM_TEMP_DIR":           true,
	"EFORM_STORE_FILE":         true,
	"EFORM_WATCH":              true,
	"EFORM_DOCS_URL":           true,
	"EFORM_JWT_SECRET":         true,
	"EFORM_LANG":               true,
	"EFORM_FONT_FAMILY":        true,
	"EFORM_FONT_SIZE":          true,
	"EFORM_ASSETS_DIR":         true,
	"EFORM_IMAGE_ROOT":         true,
	"EFORM_WORKERS":            true,
	"EFORM_TIMEOUT":            true,
	"EFORM_BROWSER_BIN":        true,
	"EFORM_BROWSER_NO_SANDBOX": true,
}

// loadEnvConfig reads the EFORM_* variables through getenv.
func loadEnvConfig(getenv func(string) string) *envConfig {
	env := &envConfig{
		ConfigPath: getenv("EFORM_CONFIG"),
		Addr:       getenv("EFORM_ADDR"),
		PublicURL:  getenv("EFORM_PUBLIC_URL"),
		UploadDir:  getenv("EFORM_UPLOAD_DIR"),
		TempDir:    getenv("EFORM_TEMP_DIR"),
		StoreFile:  getenv("EFORM_STORE_FILE"),
		DocsURL:    getenv("EFORM_DOCS_URL"),
		JWTSecret:  getenv("EFORM_JWT_SECRET"),
		Lang:       getenv("EFORM_LANG"),
		FontFamily: getenv("EFORM_FONT_FAMILY"),
		AssetsDir:  getenv("EFORM_ASSETS_DIR"),
		ImageRoot:  getenv("EFORM_IMAGE_ROOT"),
		BrowserBin: getenv("EFORM_BROWSER_BIN"),
		Watch:      parseBool(getenv("EFORM_WATCH")),
		NoSandbox:  parseBool(getenv("EFORM_BROWSER_NO_SANDBOX")),
		FontSize:   parsePositive(getenv("EFORM_FONT_SIZE")),
		Workers:    parsePositive(getenv("EFORM_WORKERS")),
	}

	// Bare numbers are seconds, matching render.timeoutSeconds.
	if raw := getenv("EFORM_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			env.Timeout = d
		} else if n := parsePositive(raw); n > 0 {
			env.Timeout = time.Duration(n) * time.Second
		}
	}
	return env
}

func parseBool(raw string) *bool {
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}

func parsePositive(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// warnUnknownEnvVars logs unrecognized EFORM_* variables.
// Helps catch typos like EFORM_JWT_SECRETS.
func warnUnknownEnvVars(logger *slog.Logger, environ []string) {
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "EFORM_") && !knownEnvVars[name] {
			logger.Warn("unknown environment variable (typo?)", "name", name)
		}
	}
}

// applyEnvConfig overrides cfg with every variable that is set.
// Precedence: flags > env > config file > defaults. Flags are applied
// afterwards by each command.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	setString(&cfg.Server.Addr, env.Addr)
	setString(&cfg.Server.PublicURL, env.PublicURL)

	setString(&cfg.Storage.UploadDir, env.UploadDir)
	setString(&cfg.Storage.TempDir, env.TempDir)
	setString(&cfg.Storage.StoreFile, env.StoreFile)
	if env.Watch != nil {
		cfg.Storage.Watch = *env.Watch
	}

	setString(&cfg.OnlyOffice.DocumentServerURL, env.DocsURL)
	setString(&cfg.OnlyOffice.JWTSecret, env.JWTSecret)
	setString(&cfg.OnlyOffice.Lang, env.Lang)

	setString(&cfg.Render.FontFamily, env.FontFamily)
	setString(&cfg.Render.AssetsDir, env.AssetsDir)
	setString(&cfg.Render.ImageRoot, env.ImageRoot)
	if env.FontSize > 0 {
		cfg.Render.FontSize = env.FontSize
	}
	if env.Workers > 0 {
		cfg.Render.Workers = env.Workers
	}
	if env.Timeout > 0 {
		cfg.Render.TimeoutSeconds = seconds(env.Timeout)
	}

	setString(&cfg.Browser.Bin, env.BrowserBin)
	if env.NoSandbox != nil {
		cfg.Browser.NoSandbox = *env.NoSandbox
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// seconds rounds d up to whole seconds.
func seconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
