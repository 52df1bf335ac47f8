package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// ExtractTgz extracts a gzip-compressed tarball into outputFolder.
// Symlinks are kept only when their target stays inside outputFolder.
func ExtractTgz(tgzPath, outputFolder string) error {
	file, err := os.Open(tgzPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", tgzPath, err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("read gzip %s: %w", tgzPath, err)
	}
	defer gz.Close()

	root, err := outputRoot(outputFolder)
	if err != nil {
		return err
	}

	tr := tar.NewReader(gz)
	count := 0
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar %s: %w", tgzPath, err)
		}

		path, err := target(root, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := contained(root, path); err != nil {
				return err
			}
			if err := os.MkdirAll(path, hdr.FileInfo().Mode().Perm()|0o700); err != nil {
				return fmt.Errorf("create %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := writeFile(root, path, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("write %s: %w", hdr.Name, err)
			}
		case tar.TypeSymlink:
			if err := symlink(root, path, hdr.Linkname); err != nil {
				return fmt.Errorf("link %s: %w", hdr.Name, err)
			}
		default:
			log.Printf("[Archive] Skipping %s (type %c)", hdr.Name, hdr.Typeflag)
			continue
		}
		count++
	}

	log.Printf("[Archive] Extracted %d entries from %s", count, tgzPath)
	return nil
}

// symlink creates path -> linkname after checking that the link, read from
// where it will actually live, points inside root.
func symlink(root, path, linkname string) error {
	if linkname == "" || filepath.IsAbs(linkname) {
		return fmt.Errorf("%w: link to %q", ErrUnsafePath, linkname)
	}
	dir, err := resolve(filepath.Dir(path))
	if err != nil {
		return err
	}
	if !inside(root, dir) {
		return fmt.Errorf("%w: %s resolves to %s", ErrUnsafePath, path, dir)
	}
	if err := contained(root, filepath.Join(dir, filepath.FromSlash(linkname))); err != nil {
		return fmt.Errorf("%w: link to %q", ErrUnsafePath, linkname)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	link := filepath.Join(dir, filepath.Base(path))
	_ = os.Remove(link)
	return os.Symlink(linkname, link)
}
