package assets

import (
	"bytes"
	"fmt"
	"unicode"

	"golang.org/x/image/font/sfnt"
)

// Face is one font file of a family.
type Face struct {
	Data []byte
	// Format is the CSS src format() hint: "truetype" or "opentype".
	Format string
}

// StyledFace pairs a face with the style it renders.
type StyledFace struct {
	Bold   bool
	Italic bool
	Face   Face
}

// FontSet holds the faces of one family. Regular is always present; the
// browser synthesizes any other style that is nil.
type FontSet struct {
	Family     string
	Regular    Face
	Bold       *Face
	Italic     *Face
	BoldItalic *Face

	regular *sfnt.Font
}

// ParseFace validates data as a TrueType or OpenType font.
func ParseFace(data []byte) (Face, *sfnt.Font, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return Face{}, nil, fmt.Errorf("%w: %v", ErrInvalidFont, err)
	}
	format := "truetype"
	if bytes.HasPrefix(data, []byte("OTTO")) {
		format = "opentype"
	}
	return Face{Data: data, Format: format}, f, nil
}

// NewFontSet creates a set from the regular face of family.
func NewFontSet(family string, regular []byte) (*FontSet, error) {
	face, parsed, err := ParseFace(regular)
	if err != nil {
		return nil, fmt.Errorf("%s regular: %w", family, err)
	}
	return &FontSet{Family: family, Regular: face, regular: parsed}, nil
}

// Faces lists the available faces, regular first.
func (s *FontSet) Faces() []StyledFace {
	out := []StyledFace{{Face: s.Regular}}
	if s.Bold != nil {
		out = append(out, StyledFace{Bold: true, Face: *s.Bold})
	}
	if s.Italic != nil {
		out = append(out, StyledFace{Italic: true, Face: *s.Italic})
	}
	if s.BoldItalic != nil {
		out = append(out, StyledFace{Bold: true, Italic: true, Face: *s.BoldItalic})
	}
	return out
}

// Missing returns the distinct runes of text that the regular face has no
// glyph for, in order of first appearance. Spaces and control characters are
// not checked. Safe for concurrent use.
func (s *FontSet) Missing(text string) []rune {
	if s.regular == nil {
		return nil
	}
	var buf sfnt.Buffer
	seen := make(map[rune]bool)
	var out []rune
	for _, r := range text {
		if seen[r] || unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		seen[r] = true
		idx, err := s.regular.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			out = append(out, r)
		}
	}
	return out
}
