package archive

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/klauspost/compress/zip"
)

// creatorUnix is the "version made by" host byte for Unix archives.
const creatorUnix = 3

// Unzip extracts zipPath into outputFolder, creating it when missing.
// Unix permission bits are restored for archives built on Unix.
func Unzip(zipPath, outputFolder string) error {
	rc, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open zip %s: %w", zipPath, err)
	}
	defer rc.Close()

	root, err := outputRoot(outputFolder)
	if err != nil {
		return err
	}

	for _, f := range rc.File {
		if err := extractZipEntry(f, root); err != nil {
			return err
		}
	}

	log.Printf("[Archive] Extracted %d entries from %s", len(rc.File), zipPath)
	return nil
}

func extractZipEntry(f *zip.File, root string) error {
	path, err := target(root, f.Name)
	if err != nil {
		return err
	}

	if strings.HasSuffix(f.Name, "/") {
		if err := contained(root, path); err != nil {
			return err
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", f.Name, err)
		}
		return applyMode(f, path)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer src.Close()

	if err := writeFile(root, path, src, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.Name, err)
	}
	return applyMode(f, path)
}

func applyMode(f *zip.File, path string) error {
	if runtime.GOOS == "windows" || f.CreatorVersion>>8 != creatorUnix {
		return nil
	}
	if err := os.Chmod(path, f.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", f.Name, err)
	}
	return nil
}
