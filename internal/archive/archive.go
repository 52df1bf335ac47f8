// Package archive extracts the zip and tar.gz bundles that helper binaries
// are shipped in.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for entries that would land outside the output
// folder.
var ErrUnsafePath = errors.New("archive entry escapes output folder")

// target resolves name inside root, rejecting absolute paths and traversal.
func target(root, name string) (string, error) {
	clean := filepath.FromSlash(strings.TrimLeft(name, "/"))
	if name == "" || filepath.IsAbs(filepath.FromSlash(name)) || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}

	path := filepath.Join(root, clean)
	if !inside(root, path) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return path, nil
}

func inside(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// resolve follows the symlinks already on disk along path and returns where
// it really points. Components that do not exist yet are appended as is.
func resolve(path string) (string, error) {
	var rest []string
	dir := path
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", err
		}
		rest = append([]string{filepath.Base(dir)}, rest...)
		dir = parent
	}
}

// contained fails with ErrUnsafePath when path, once links already extracted
// are followed, lands outside root. root must already be resolved.
func contained(root, path string) error {
	resolved, err := resolve(path)
	if err != nil {
		return err
	}
	if !inside(root, resolved) {
		return fmt.Errorf("%w: %s resolves to %s", ErrUnsafePath, path, resolved)
	}
	return nil
}

// outputRoot creates outputFolder and returns its resolved form.
func outputRoot(outputFolder string) (string, error) {
	if err := os.MkdirAll(outputFolder, 0o755); err != nil {
		return "", fmt.Errorf("create output folder: %w", err)
	}
	root, err := filepath.EvalSymlinks(outputFolder)
	if err != nil {
		return "", fmt.Errorf("resolve output folder: %w", err)
	}
	return root, nil
}

// writeFile copies r into path, creating parent folders. A symlink already
// at path is replaced rather than followed.
func writeFile(root, path string, r io.Reader, mode os.FileMode) error {
	if err := contained(root, filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if info, err := os.Lstat(path); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
