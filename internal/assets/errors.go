package assets

import (
	"errors"

	"github.com/alnah/go-eform/internal/fileutil"
)

var (
	// ErrFontNotFound reports a family whose regular face is missing. Other
	// faces are optional.
	ErrFontNotFound = errors.New("font not found")
	ErrInvalidFont  = errors.New("invalid font file")

	ErrStyleNotFound    = errors.New("style not found")
	ErrInvalidAssetName = errors.New("invalid asset name")
	ErrInvalidBasePath  = errors.New("invalid assets directory")
	ErrAssetRead        = errors.New("failed to read asset")

	// ErrPathTraversal is returned when a font or style resolves outside the
	// assets directory.
	ErrPathTraversal = fileutil.ErrPathTraversal
)
