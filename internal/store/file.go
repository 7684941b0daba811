package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/alnah/go-eform/internal/fileutil"
	"github.com/alnah/go-eform/internal/yamlutil"
)

// File is a Memory store persisted as one YAML document. Every mutation
// rewrites the file atomically; a failed write rolls the mutation back.
type File struct {
	*Memory
	path string
}

// OpenFile loads the store at path, starting empty when the file does not
// exist yet.
func OpenFile(path string) (*File, error) {
	f := &File{Memory: NewMemory(), path: path}

	data, err := os.ReadFile(path) // #nosec G304 -- operator-configured path
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading store %s: %w", path, err)
	case len(data) > 0:
		var s snapshot
		if err := yamlutil.UnmarshalSnapshot(data, &s); err != nil {
			return nil, fmt.Errorf("parsing store %s: %w", path, err)
		}
		f.restore(s)
	}

	f.changed = f.write
	return f, nil
}

// Path returns the snapshot file.
func (f *File) Path() string { return f.path }

func (f *File) write(s snapshot) error {
	data, err := yamlutil.Marshal(s)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(f.path, data, 0o600); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	return nil
}
