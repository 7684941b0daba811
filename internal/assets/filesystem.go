package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alnah/go-eform/internal/fileutil"
)

// fontExts are tried in order for every face.
var fontExts = []string{".ttf", ".otf"}

// FilesystemLoader loads assets from a directory on the filesystem. Parsed
// font families are cached for the lifetime of the loader.
type FilesystemLoader struct {
	basePath string

	mu    sync.Mutex
	fonts map[string]*FontSet
}

// NewFilesystemLoader creates a FilesystemLoader for the given base path.
// Returns ErrInvalidBasePath if the path is not a valid, readable directory.
func NewFilesystemLoader(basePath string) (*FilesystemLoader, error) {
	if basePath == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidBasePath)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}

	// Containment checks compare resolved paths.
	if realPath, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = realPath
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory does not exist: %s", ErrInvalidBasePath, absPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory: %s", ErrInvalidBasePath, absPath)
	}
	if _, err := os.ReadDir(absPath); err != nil {
		return nil, fmt.Errorf("%w: cannot read directory: %v", ErrInvalidBasePath, err)
	}

	return &FilesystemLoader{basePath: absPath, fonts: make(map[string]*FontSet)}, nil
}

// LoadStyle loads {basePath}/styles/{name}.css.
func (f *FilesystemLoader) LoadStyle(name string) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}

	filePath, err := f.assetPath("styles", name+".css")
	if err != nil {
		return "", err
	}

	content, err := os.ReadFile(filePath) // #nosec G304 -- path validated above
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %q", ErrStyleNotFound, name)
		}
		return "", fmt.Errorf("%w: %v", ErrAssetRead, err)
	}

	return string(content), nil
}

// LoadFont loads the faces of family from {basePath}/fonts.
func (f *FilesystemLoader) LoadFont(family string) (*FontSet, error) {
	base, err := fontFileBase(family)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if set, ok := f.fonts[base]; ok {
		return set, nil
	}

	data, err := f.readFace(base, "Regular")
	if err != nil {
		return nil, err
	}
	set, err := NewFontSet(family, data)
	if err != nil {
		return nil, err
	}

	for _, v := range []struct {
		style string
		dst   **Face
	}{
		{"Bold", &set.Bold},
		{"Italic", &set.Italic},
		{"BoldItalic", &set.BoldItalic},
	} {
		data, err := f.readFace(base, v.style)
		if errors.Is(err, ErrFontNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		face, _, err := ParseFace(data)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", family, v.style, err)
		}
		*v.dst = &face
	}

	f.fonts[base] = set
	return set, nil
}

func (f *FilesystemLoader) readFace(base, style string) ([]byte, error) {
	for _, ext := range fontExts {
		filePath, err := f.assetPath("fonts", base+"-"+style+ext)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filePath) // #nosec G304 -- path validated above
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %v", ErrAssetRead, err)
		}
	}
	return nil, fmt.Errorf("%w: %s-%s in %s", ErrFontNotFound, base, style, filepath.Join(f.basePath, "fonts"))
}

// assetPath joins elem under basePath and rejects results that a symlink
// or a crafted name moves outside it.
func (f *FilesystemLoader) assetPath(elem ...string) (string, error) {
	return fileutil.ContainedPath(f.basePath, filepath.Join(elem...))
}

// fontFileBase turns a family name into the file name prefix of its faces:
// "Times New Roman" is looked up as "TimesNewRoman-Regular.ttf".
func fontFileBase(family string) (string, error) {
	base := strings.Join(strings.Fields(family), "")
	if err := ValidateAssetName(base); err != nil {
		return "", err
	}
	return base, nil
}

// ValidateAssetName rejects names that are empty or could address another
// file: separators, dots and traversal sequences.
func ValidateAssetName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	case strings.ContainsAny(name, "/\\."):
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}

// Compile-time interface check.
var _ Loader = (*FilesystemLoader)(nil)
