// Package config loads the YAML configuration of the eform server and CLI.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-eform/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field limits.
const (
	MaxURLLength    = 2048 // Browser limit
	MaxPathLength   = 4096 // PATH_MAX on Linux
	MaxSecretLength = 512
	MaxLangLength   = 10  // "vi", "en-US"
	MaxTextLength   = 100 // author, go-back label
	MaxFamilyLength = 100
	MaxWorkers      = 32
	MinFontSize     = 6
	MaxFontSize     = 72
)

// Defaults.
const (
	DefaultAddr            = ":8080"
	DefaultPublicURL       = "http://localhost:8080"
	DefaultDocsURL         = "http://localhost:8000"
	DefaultUploadDir       = "uploads"
	DefaultFontFamily      = "Times New Roman"
	DefaultFontSize        = 12
	DefaultRenderTimeout   = 60
	DefaultFetchTimeout    = 60
	DefaultMaxDownloadSize = 100 << 20
	DefaultMaxUploadSize   = 50 << 20
)

// Config holds all configuration of the service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	OnlyOffice OnlyOfficeConfig `yaml:"onlyoffice"`
	Render     RenderConfig     `yaml:"render"`
	Browser    BrowserConfig    `yaml:"browser"`
	Callback   CallbackConfig   `yaml:"callback"`
}

// ServerConfig defines the HTTP adapter.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	PublicURL     string `yaml:"publicUrl"`     // Base URL the editor server uses to reach us
	MaxUploadSize int64  `yaml:"maxUploadSize"` // bytes
}

// StorageConfig defines where templates and records live.
type StorageConfig struct {
	UploadDir string `yaml:"uploadDir"`
	TempDir   string `yaml:"tempDir"`   // Empty = system temp dir
	StoreFile string `yaml:"storeFile"` // Empty = in-memory records
	Watch     bool   `yaml:"watch"`     // Re-extract variables on external file changes
}

// OnlyOfficeConfig defines the editing session.
type OnlyOfficeConfig struct {
	DocumentServerURL string `yaml:"documentServerUrl"`
	JWTSecret         string `yaml:"jwtSecret"` // Empty = unsigned sessions (insecure)
	Lang              string `yaml:"lang"`
	Author            string `yaml:"author"`
	GoBackText        string `yaml:"goBackText"`
}

// RenderConfig defines the PDF pipeline.
type RenderConfig struct {
	FontFamily     string `yaml:"fontFamily"`
	FontSize       int    `yaml:"fontSize"`  // points
	AssetsDir      string `yaml:"assetsDir"` // fonts/ and styles/
	ImageRoot      string `yaml:"imageRoot"` // Empty = image paths unrestricted
	ImageKeys      bool   `yaml:"imageKeys"` // Treat image-like keys holding paths as images
	MaxImageWidth  int    `yaml:"maxImageWidth"`
	Workers        int    `yaml:"workers"`        // 0 = auto
	TimeoutSeconds int    `yaml:"timeoutSeconds"` // Per render
}

// BrowserConfig defines the headless Chrome used for printing.
type BrowserConfig struct {
	Bin       string `yaml:"bin"` // Empty = auto-detect or download
	NoSandbox bool   `yaml:"noSandbox"`
}

// CallbackConfig defines how edited documents are fetched back.
type CallbackConfig struct {
	FetchTimeoutSeconds int   `yaml:"fetchTimeoutSeconds"`
	MaxDownloadSize     int64 `yaml:"maxDownloadSize"` // bytes
}

// Validate checks field limits. Called by LoadConfig, and again by the CLI
// after environment and flag overrides.
func (c *Config) Validate() error {
	for _, f := range []struct {
		name, value string
		limit       int
	}{
		{"server.addr", c.Server.Addr, MaxURLLength},
		{"server.publicUrl", c.Server.PublicURL, MaxURLLength},
		{"storage.uploadDir", c.Storage.UploadDir, MaxPathLength},
		{"storage.tempDir", c.Storage.TempDir, MaxPathLength},
		{"storage.storeFile", c.Storage.StoreFile, MaxPathLength},
		{"onlyoffice.documentServerUrl", c.OnlyOffice.DocumentServerURL, MaxURLLength},
		{"onlyoffice.jwtSecret", c.OnlyOffice.JWTSecret, MaxSecretLength},
		{"onlyoffice.lang", c.OnlyOffice.Lang, MaxLangLength},
		{"onlyoffice.author", c.OnlyOffice.Author, MaxTextLength},
		{"onlyoffice.goBackText", c.OnlyOffice.GoBackText, MaxTextLength},
		{"render.fontFamily", c.Render.FontFamily, MaxFamilyLength},
		{"render.assetsDir", c.Render.AssetsDir, MaxPathLength},
		{"render.imageRoot", c.Render.ImageRoot, MaxPathLength},
		{"browser.bin", c.Browser.Bin, MaxPathLength},
	} {
		if err := validateFieldLength(f.name, f.value, f.limit); err != nil {
			return err
		}
	}

	if err := validateHTTPURL("server.publicUrl", c.Server.PublicURL); err != nil {
		return err
	}
	if err := validateHTTPURL("onlyoffice.documentServerUrl", c.OnlyOffice.DocumentServerURL); err != nil {
		return err
	}
	if strings.ContainsAny(c.Render.FontFamily, `"'<>\/;{}`) {
		return fmt.Errorf("%w: render.fontFamily: %q contains reserved characters", ErrInvalidValue, c.Render.FontFamily)
	}
	if c.Render.FontSize != 0 && (c.Render.FontSize < MinFontSize || c.Render.FontSize > MaxFontSize) {
		return fmt.Errorf("%w: render.fontSize: must be between %d and %d, got %d", ErrInvalidValue, MinFontSize, MaxFontSize, c.Render.FontSize)
	}
	if c.Render.Workers < 0 || c.Render.Workers > MaxWorkers {
		return fmt.Errorf("%w: render.workers: must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Render.Workers)
	}
	if c.Render.MaxImageWidth < 0 {
		return fmt.Errorf("%w: render.maxImageWidth: must not be negative", ErrInvalidValue)
	}
	if c.Render.TimeoutSeconds < 0 || c.Callback.FetchTimeoutSeconds < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidValue)
	}
	if c.Callback.MaxDownloadSize < 0 || c.Server.MaxUploadSize < 0 {
		return fmt.Errorf("%w: size limits must not be negative", ErrInvalidValue)
	}
	return nil
}

func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// validateHTTPURL accepts an empty value or an absolute http(s) URL.
func validateHTTPURL(fieldName, value string) error {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s: %q is not an absolute http(s) URL", ErrInvalidValue, fieldName, value)
	}
	return nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          DefaultAddr,
			PublicURL:     DefaultPublicURL,
			MaxUploadSize: DefaultMaxUploadSize,
		},
		Storage: StorageConfig{UploadDir: DefaultUploadDir},
		OnlyOffice: OnlyOfficeConfig{
			DocumentServerURL: DefaultDocsURL,
			Lang:              "vi",
			Author:            "E-Form System",
			GoBackText:        "Đóng Editor",
		},
		Render: RenderConfig{
			FontFamily:     DefaultFontFamily,
			FontSize:       DefaultFontSize,
			MaxImageWidth:  600,
			TimeoutSeconds: DefaultRenderTimeout,
		},
		Callback: CallbackConfig{
			FetchTimeoutSeconds: DefaultFetchTimeout,
			MaxDownloadSize:     DefaultMaxDownloadSize,
		},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it searches for {name}.yaml or {name}.yml in the current
// directory, then in the user config directory under eform/.
//
// Values absent from the file keep their defaults.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !isFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalConfig(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "eform", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
