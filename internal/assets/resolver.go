package assets

import "errors"

// Resolver looks styles up in an operator directory before the built-in
// copy. Fonts have no built-in copy, so without a directory every LoadFont
// fails with ErrFontNotFound.
type Resolver struct {
	dir     *FilesystemLoader // nil without an assets directory
	builtin *EmbeddedLoader
}

// NewResolver creates a Resolver over dir, which may be empty.
func NewResolver(dir string) (*Resolver, error) {
	r := &Resolver{builtin: NewEmbeddedLoader()}
	if dir == "" {
		return r, nil
	}
	fsLoader, err := NewFilesystemLoader(dir)
	if err != nil {
		return nil, err
	}
	r.dir = fsLoader
	return r, nil
}

// LoadStyle returns the directory's stylesheet, or the built-in one when
// the directory has none. Invalid names and read errors are not masked.
func (r *Resolver) LoadStyle(name string) (string, error) {
	if r.dir != nil {
		css, err := r.dir.LoadStyle(name)
		if !errors.Is(err, ErrStyleNotFound) {
			return css, err
		}
	}
	return r.builtin.LoadStyle(name)
}

// LoadFont loads family from the assets directory.
func (r *Resolver) LoadFont(family string) (*FontSet, error) {
	if r.dir == nil {
		return r.builtin.LoadFont(family)
	}
	return r.dir.LoadFont(family)
}

// HasFontDir reports whether an assets directory is configured.
func (r *Resolver) HasFontDir() bool { return r.dir != nil }

var _ Loader = (*Resolver)(nil)
