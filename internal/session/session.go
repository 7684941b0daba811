// Package session builds the configuration an external document editor needs
// to open a template for collaborative editing.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrKey is returned when a session key cannot be generated.
var ErrKey = errors.New("session key unavailable")

// Defaults for the editor payload.
const (
	DefaultLang       = "vi"
	DefaultAuthor     = "E-Form System"
	DefaultGoBackText = "Đóng Editor"
	apiScriptPath     = "/web-apps/apps/api/documents/api.js"
)

// Signer signs a payload. An empty token means signing is disabled.
type Signer interface {
	Sign(payload any) (string, error)
}

// KeySource produces document keys. Each call must return a key the editor
// has never seen, so it treats every session as a new revision.
type KeySource interface {
	Key(templateID int64) (string, error)
}

// UUIDKeys derives keys from time-ordered random UUIDs:
// "template_<id>_<uuidv7>".
type UUIDKeys struct{}

// Key implements KeySource.
func (UUIDKeys) Key(templateID int64) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKey, err)
	}
	return "template_" + strconv.FormatInt(templateID, 10) + "_" + id.String(), nil
}

// Config is the editor configuration. Token covers every field except
// DocumentServerURL and itself.
type Config struct {
	DocumentServerURL string       `json:"documentServerUrl,omitempty"`
	Document          Document     `json:"document"`
	DocumentType      string       `json:"documentType"`
	EditorConfig      EditorConfig `json:"editorConfig"`
	Width             string       `json:"width"`
	Height            string       `json:"height"`
	Token             string       `json:"token,omitempty"`
}

// Document describes the file being edited.
type Document struct {
	FileType    string      `json:"fileType"`
	Key         string      `json:"key"`
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	Info        Info        `json:"info"`
	Permissions Permissions `json:"permissions"`
}

// Info is document metadata shown by the editor.
type Info struct {
	Author  string `json:"author"`
	Created int64  `json:"created"`
}

// Permissions are the editing rights granted to the session.
type Permissions struct {
	Edit                 bool `json:"edit"`
	Download             bool `json:"download"`
	Print                bool `json:"print"`
	Review               bool `json:"review"`
	Comment              bool `json:"comment"`
	FillForms            bool `json:"fillForms"`
	ModifyFilter         bool `json:"modifyFilter"`
	ModifyContentControl bool `json:"modifyContentControl"`
	Copy                 bool `json:"copy"`
}

// EditorConfig describes the editor instance.
type EditorConfig struct {
	Mode          string        `json:"mode"`
	Lang          string        `json:"lang"`
	CallbackURL   string        `json:"callbackUrl"`
	User          User          `json:"user"`
	Customization Customization `json:"customization"`
}

// User identifies the editing user.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// Customization toggles editor features.
type Customization struct {
	Autosave       bool   `json:"autosave"`
	Forcesave      bool   `json:"forcesave"`
	CompactToolbar bool   `json:"compactToolbar"`
	ToolbarNoTabs  bool   `json:"toolbarNoTabs"`
	Chat           bool   `json:"chat"`
	Comments       bool   `json:"comments"`
	Help           bool   `json:"help"`
	HideRightMenu  bool   `json:"hideRightMenu"`
	Plugins        bool   `json:"plugins"`
	Zoom           int    `json:"zoom"`
	About          bool   `json:"about"`
	Feedback       bool   `json:"feedback"`
	GoBack         GoBack `json:"goback"`
}

// GoBack configures the editor's close button.
type GoBack struct {
	URL          string `json:"url"`
	Text         string `json:"text"`
	RequestClose bool   `json:"requestClose"`
}

// signed is the part of Config covered by the token.
type signed struct {
	Document     Document     `json:"document"`
	DocumentType string       `json:"documentType"`
	EditorConfig EditorConfig `json:"editorConfig"`
	Width        string       `json:"width"`
	Height       string       `json:"height"`
}

// Payload returns the claims the token signs.
func (c *Config) Payload() any {
	return signed{
		Document:     c.Document,
		DocumentType: c.DocumentType,
		EditorConfig: c.EditorConfig,
		Width:        c.Width,
		Height:       c.Height,
	}
}

// Builder assembles editor configurations. ServerURL is this service's
// public base URL; DocsURL is the document server's.
type Builder struct {
	ServerURL  string
	DocsURL    string
	Lang       string
	Author     string
	GoBackText string
	Signer     Signer
	Keys       KeySource
	Now        func() time.Time
}

// Build returns a fresh configuration for editing the template. Every call
// produces a new document key.
func (b *Builder) Build(templateID int64, name, userID, userName string) (*Config, error) {
	keys := b.Keys
	if keys == nil {
		keys = UUIDKeys{}
	}
	key, err := keys.Key(templateID)
	if err != nil {
		return nil, err
	}

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	server := strings.TrimRight(b.ServerURL, "/")
	id := strconv.FormatInt(templateID, 10)

	cfg := &Config{
		Document: Document{
			FileType: "docx",
			Key:      key,
			Title:    name + ".docx",
			URL:      server + "/api/v1/onlyoffice/files/" + id,
			Info: Info{
				Author:  or(b.Author, DefaultAuthor),
				Created: now().UnixMilli(),
			},
			Permissions: Permissions{
				Edit: true, Download: true, Print: true, Review: true, Comment: true,
				FillForms: true, ModifyFilter: true, ModifyContentControl: true, Copy: true,
			},
		},
		DocumentType: "word",
		EditorConfig: EditorConfig{
			Mode:        "edit",
			Lang:        or(b.Lang, DefaultLang),
			CallbackURL: server + "/api/v1/onlyoffice/callback/" + id,
			User:        User{ID: userID, Name: userName},
			Customization: Customization{
				Autosave:  true,
				Forcesave: true,
				Comments:  true,
				Plugins:   true,
				Zoom:      100,
				About:     true,
				GoBack: GoBack{
					URL:          "#",
					Text:         or(b.GoBackText, DefaultGoBackText),
					RequestClose: true,
				},
			},
		},
		Width:  "100%",
		Height: "100%",
	}
	if b.DocsURL != "" {
		cfg.DocumentServerURL = strings.TrimRight(b.DocsURL, "/") + apiScriptPath
	}

	if b.Signer != nil {
		tok, err := b.Signer.Sign(cfg.Payload())
		if err != nil {
			return nil, fmt.Errorf("signing editor config: %w", err)
		}
		cfg.Token = tok
	}
	return cfg, nil
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
