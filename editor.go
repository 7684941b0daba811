package eform

import (
	"context"

	"github.com/alnah/go-eform/internal/callback"
	"github.com/alnah/go-eform/internal/session"
)

// Editor user defaults, used when the request names no user.
const (
	DefaultUserID   = "user1"
	DefaultUserName = "Editor"
)

// EditorConfig returns a new editing session configuration for a template.
// Every call issues a fresh document key and, with a secret configured,
// a token signing the payload.
func (s *Service) EditorConfig(ctx context.Context, templateID int64, userID, userName string) (*session.Config, error) {
	const op = "building editor config"

	tpl, err := s.store.Template(ctx, templateID)
	if err != nil {
		return nil, wrap(op, err)
	}
	if userID == "" {
		userID = DefaultUserID
	}
	if userName == "" {
		userName = DefaultUserName
	}

	b := session.Builder{
		ServerURL:  s.editor.PublicURL,
		DocsURL:    s.editor.DocumentServerURL,
		Lang:       s.editor.Lang,
		Author:     s.editor.Author,
		GoBackText: s.editor.GoBackText,
		Signer:     s.signer,
		Keys:       s.keys,
		Now:        s.now,
	}
	cfg, err := b.Build(tpl.ID, tpl.Name, userID, userName)
	if err != nil {
		return nil, wrap(op, err)
	}
	s.logger.Info("editor session issued", "template_id", tpl.ID, "key", cfg.Document.Key, "signed", cfg.Token != "")
	return cfg, nil
}

// SigningEnabled reports whether a shared secret is configured.
func (s *Service) SigningEnabled() bool {
	return s.signer.Enabled()
}

// VerifyCallback authenticates a callback. authorization is the request's
// Authorization header and body its decoded JSON. It returns an error of
// kind KindToken when signing is enabled and the token is missing or does
// not verify.
func (s *Service) VerifyCallback(authorization string, body map[string]any) error {
	if err := callback.Authenticate(s.signer, callback.BearerToken(authorization), body); err != nil {
		return &Error{Kind: KindToken, Op: "verifying callback", Err: err}
	}
	return nil
}

// HandleCallback applies an authenticated callback event. The response is
// what the editor expects back; failures are reported inside it.
func (s *Service) HandleCallback(ctx context.Context, templateID int64, ev callback.Event) callback.Response {
	return s.callbacks.Handle(ctx, templateID, ev)
}
