package assets

import (
	"embed"
	"fmt"
)

//go:embed styles/*
var styles embed.FS

// EmbeddedLoader serves the stylesheet compiled into the binary. Fonts are
// licensed separately and are never compiled in.
type EmbeddedLoader struct{}

func NewEmbeddedLoader() *EmbeddedLoader { return &EmbeddedLoader{} }

// LoadStyle returns styles/<name>.css from the binary.
func (*EmbeddedLoader) LoadStyle(name string) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}
	css, err := styles.ReadFile("styles/" + name + ".css")
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrStyleNotFound, name)
	}
	return string(css), nil
}

func (*EmbeddedLoader) LoadFont(family string) (*FontSet, error) {
	return nil, fmt.Errorf("%w: %q (no assets directory configured)", ErrFontNotFound, family)
}

var _ Loader = (*EmbeddedLoader)(nil)
