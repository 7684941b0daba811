// Package token signs and verifies HS256 JSON Web Tokens exchanged with the
// document server.
//
// Payloads are serialized canonically (object keys sorted at every level, no
// insignificant whitespace, no HTML escaping) so both sides compute the same
// signature for the same logical payload.
package token

import (
	"bytes"
	"crypto/hmac"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors for token parsing.
var (
	ErrMalformed       = errors.New("malformed token")
	ErrSignature       = errors.New("token signature mismatch")
	ErrAlgorithm       = errors.New("unsupported token algorithm")
	ErrNotSerializable = errors.New("payload cannot be serialized")
)

const header = `{"alg":"HS256","typ":"JWT"}`

var (
	enc    = base64.RawURLEncoding
	method = jwt.SigningMethodHS256
)

// Signer signs payloads with a shared secret. A Signer without a secret is
// disabled: it signs nothing and accepts everything.
type Signer struct {
	secret []byte
	parser *jwt.Parser
}

// NewSigner creates a Signer. A blank secret disables signing.
func NewSigner(secret string) *Signer {
	s := &Signer{
		// Callback tokens carry no registered claims; only the signature
		// and the algorithm are checked.
		parser: jwt.NewParser(jwt.WithJSONNumber(), jwt.WithoutClaimsValidation()),
	}
	if strings.TrimSpace(secret) != "" {
		s.secret = []byte(secret)
	}
	return s
}

// Enabled reports whether a secret is configured.
func (s *Signer) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Sign returns header.payload.signature for payload, or "" when disabled.
// The payload segment is the canonical form of payload, so equal payloads
// always produce equal tokens.
func (s *Signer) Sign(payload any) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	body, err := Canonical(payload)
	if err != nil {
		return "", err
	}
	input := enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString(body)
	sig, err := method.Sign(input, s.secret)
	if err != nil {
		return "", fmt.Errorf("signing: %w", err)
	}
	return input + "." + enc.EncodeToString(sig), nil
}

// Verify reports whether token is exactly the token Sign produces for
// payload. Any change to any byte of token fails. A disabled Signer accepts
// any token.
func (s *Signer) Verify(token string, payload any) bool {
	if !s.Enabled() {
		return true
	}
	want, err := s.Sign(payload)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(token), []byte(want))
}

// Parse checks the HS256 signature over the token's own signing input and
// returns its claims, numbers as json.Number. A disabled Signer checks only
// the shape and the algorithm.
func (s *Signer) Parse(token string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	var err error
	if s.Enabled() {
		_, err = s.parser.ParseWithClaims(token, claims, s.key)
	} else {
		var t *jwt.Token
		if t, _, err = s.parser.ParseUnverified(token, claims); err == nil {
			_, err = s.key(t)
		}
	}
	if err != nil {
		return nil, parseError(err)
	}
	return claims, nil
}

// key rejects every algorithm but HS256 before the signature is checked.
func (s *Signer) key(t *jwt.Token) (any, error) {
	if t.Method == nil || t.Method.Alg() != method.Alg() {
		alg, _ := t.Header["alg"].(string)
		return nil, fmt.Errorf("%w: %q", ErrAlgorithm, alg)
	}
	return s.secret, nil
}

// parseError maps jwt errors onto the package sentinels.
func parseError(err error) error {
	switch {
	case errors.Is(err, ErrAlgorithm):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignature
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrAlgorithm, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// Canonical serializes v with sorted object keys, compact separators and no
// HTML escaping. Numbers keep their textual form.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSerializable, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSerializable, err)
	}

	// encoding/json sorts map keys; re-encoding the generic form is enough.
	var buf bytes.Buffer
	e := json.NewEncoder(&buf)
	e.SetEscapeHTML(false)
	if err := e.Encode(generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSerializable, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
