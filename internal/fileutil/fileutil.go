// Package fileutil provides file and path utility functions.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// TempPrefix starts the name of every scratch file the module creates.
const TempPrefix = "eform-"

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
	ErrPathTraversal          = errors.New("path escapes base directory")
	ErrInvalidFilename        = errors.New("invalid file name")
)

// WriteTempFile creates a scratch file in dir (the system temp dir when
// empty) holding content. The name is unique per call, so concurrent writers
// never share a file. The returned cleanup removes the file and is safe to
// call more than once.
func WriteTempFile(dir, kind string, content []byte, extension string) (path string, cleanup func(), err error) {
	if err := ValidateExtension(extension); err != nil {
		return "", nil, err
	}

	tmpFile, err := os.CreateTemp(dir, TempPrefix+kind+"-*."+extension)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}

	path = tmpFile.Name()
	cleanup = func() { _ = os.Remove(path) }

	if _, writeErr := tmpFile.Write(content); writeErr != nil {
		_ = tmpFile.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing temp file: %w", writeErr)
	}

	if closeErr := tmpFile.Close(); closeErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp file: %w", closeErr)
	}

	return path, cleanup, nil
}

// ValidateExtension checks that the extension is safe for use in temp file names.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// WriteFileAtomic writes data next to filename and renames it into place, so
// readers see either the old or the new content.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), TempPrefix+"tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	return commit(tmp, filename, perm)
}

// ReplaceFromReader streams r into a temp file beside filename and renames
// it over filename once fully written. On error filename is untouched.
func ReplaceFromReader(filename string, r io.Reader, perm os.FileMode) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(filename), TempPrefix+"download-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return n, fmt.Errorf("writing temp file: %w", err)
	}
	return n, commit(tmp, filename, perm)
}

func commit(tmp *os.File, filename string, perm os.FileMode) error {
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", filename, err)
	}
	return nil
}

// CopyFile copies src to a new file dst. dst must not exist.
func CopyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- caller-controlled path
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) // #nosec G304 -- caller-controlled path
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

// BackupPath returns an unused backup name for path:
// "<base>_backup_<unix millis><ext>", with "_<n>" added on collision.
func BackupPath(path string, now time.Time) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	stamp := strconv.FormatInt(now.UnixMilli(), 10)

	candidate := base + "_backup_" + stamp + ext
	for n := 1; Exists(candidate); n++ {
		candidate = base + "_backup_" + stamp + "_" + strconv.Itoa(n) + ext
	}
	return candidate
}

// ContainedPath resolves name against base and fails if the result, after
// following symlinks, lies outside base.
func ContainedPath(base, name string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathTraversal, err)
	}
	if resolved, err := filepath.EvalSymlinks(absBase); err == nil {
		absBase = resolved
	}

	target := name
	if !filepath.IsAbs(target) {
		target = filepath.Join(absBase, target)
	}
	target = filepath.Clean(target)
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}

	if !strings.HasPrefix(target, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, name)
	}
	return target, nil
}

// SafeFilename reduces a client-supplied file name to its base name and
// rejects names that cannot be stored.
func SafeFilename(name string) (string, error) {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" || name == "" || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return name, nil
}

// Exists returns true if the path exists.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsURL reports whether s is an absolute http or https URL with a host.
// The scheme is matched case-insensitively.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
