package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eform.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
	if cfg.Render.FontFamily != "Times New Roman" || cfg.Render.FontSize != 12 {
		t.Errorf("render = %q %d", cfg.Render.FontFamily, cfg.Render.FontSize)
	}
	if cfg.OnlyOffice.JWTSecret != "" {
		t.Error("default config carries a secret")
	}
	if cfg.OnlyOffice.Lang != "vi" || cfg.OnlyOffice.Author != "E-Form System" {
		t.Errorf("onlyoffice = %+v", cfg.OnlyOffice)
	}
	if cfg.Callback.MaxDownloadSize != 100<<20 {
		t.Errorf("MaxDownloadSize = %d", cfg.Callback.MaxDownloadSize)
	}
}

func TestValidateFieldLength(t *testing.T) {
	t.Parallel()

	if err := validateFieldLength("f", "1234567890", 10); err != nil {
		t.Errorf("value at limit: %v", err)
	}
	err := validateFieldLength("f", "12345678901", 10)
	if !errors.Is(err, ErrFieldTooLong) || !strings.Contains(err.Error(), "f (11 chars, max 10)") {
		t.Errorf("value over limit: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "empty urls allowed", modify: func(c *Config) { c.Server.PublicURL = ""; c.OnlyOffice.DocumentServerURL = "" }},
		{name: "https docs url", modify: func(c *Config) { c.OnlyOffice.DocumentServerURL = "https://docs.example.com" }},
		{name: "relative public url", modify: func(c *Config) { c.Server.PublicURL = "/eform" }, wantErr: ErrInvalidValue},
		{name: "ftp docs url", modify: func(c *Config) { c.OnlyOffice.DocumentServerURL = "ftp://docs" }, wantErr: ErrInvalidValue},
		{name: "secret too long", modify: func(c *Config) { c.OnlyOffice.JWTSecret = strings.Repeat("s", MaxSecretLength+1) }, wantErr: ErrFieldTooLong},
		{name: "lang too long", modify: func(c *Config) { c.OnlyOffice.Lang = "vietnamese-long" }, wantErr: ErrFieldTooLong},
		{name: "family with quote", modify: func(c *Config) { c.Render.FontFamily = `Times"` }, wantErr: ErrInvalidValue},
		{name: "family with slash", modify: func(c *Config) { c.Render.FontFamily = "../x" }, wantErr: ErrInvalidValue},
		{name: "font size too small", modify: func(c *Config) { c.Render.FontSize = 5 }, wantErr: ErrInvalidValue},
		{name: "font size zero keeps default", modify: func(c *Config) { c.Render.FontSize = 0 }},
		{name: "too many workers", modify: func(c *Config) { c.Render.Workers = MaxWorkers + 1 }, wantErr: ErrInvalidValue},
		{name: "negative timeout", modify: func(c *Config) { c.Callback.FetchTimeoutSeconds = -1 }, wantErr: ErrInvalidValue},
		{name: "negative download size", modify: func(c *Config) { c.Callback.MaxDownloadSize = -1 }, wantErr: ErrInvalidValue},
		{name: "negative image width", modify: func(c *Config) { c.Render.MaxImageWidth = -1 }, wantErr: ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty name returns ErrEmptyConfigName", func(t *testing.T) {
		_, err := LoadConfig("")
		if !errors.Is(err, ErrEmptyConfigName) {
			t.Errorf("error = %v, want ErrEmptyConfigName", err)
		}
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfig(t, `server:
  addr: ":9090"
onlyoffice:
  jwtSecret: "s3cret"
  documentServerUrl: "https://docs.example.com"
render:
  fontFamily: "Liberation Serif"
  workers: 4
storage:
  watch: true
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Server.Addr != ":9090" || cfg.OnlyOffice.JWTSecret != "s3cret" {
			t.Errorf("server/onlyoffice = %+v %+v", cfg.Server, cfg.OnlyOffice)
		}
		if cfg.Render.FontFamily != "Liberation Serif" || cfg.Render.Workers != 4 || !cfg.Storage.Watch {
			t.Errorf("render/storage = %+v %+v", cfg.Render, cfg.Storage)
		}
		// Unset values keep their defaults.
		if cfg.Render.FontSize != DefaultFontSize || cfg.Storage.UploadDir != DefaultUploadDir {
			t.Errorf("defaults lost: fontSize=%d uploadDir=%q", cfg.Render.FontSize, cfg.Storage.UploadDir)
		}
	})

	t.Run("nonexistent file path returns ErrConfigNotFound", func(t *testing.T) {
		_, err := LoadConfig("/nonexistent/path/config.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("invalid YAML returns ErrConfigParse", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "server: [unclosed"))
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("unknown field returns ErrConfigParse in strict mode", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "render:\n  fontFamliy: Arial\n"))
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("invalid value fails validation", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "render:\n  fontSize: 200\n"))
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("error = %v, want ErrInvalidValue", err)
		}
	})

	t.Run("name resolves in current directory", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "local.yml"), []byte("server:\n  addr: \":7070\"\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Chdir(dir)

		cfg, err := LoadConfig("local")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Server.Addr != ":7070" {
			t.Errorf("Addr = %q", cfg.Server.Addr)
		}
	})

	t.Run("unknown name lists tried paths", func(t *testing.T) {
		t.Chdir(t.TempDir())
		_, err := LoadConfig("missing-config-name")
		if !errors.Is(err, ErrConfigNotFound) || !strings.Contains(err.Error(), "missing-config-name.yaml") {
			t.Errorf("error = %v", err)
		}
	})
}
