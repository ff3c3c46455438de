package processor

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fileworks/fileworks/internal/logger"
)

// ZipEntry pairs a file on disk with the name it gets inside the archive.
type ZipEntry struct {
	Path string
	Name string
}

// CreateZip writes the entries into a single archive at outPath, then
// removes the constituent files best-effort so partial outputs never outlive
// the archive.
func CreateZip(ctx context.Context, outPath string, entries []ZipEntry) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	for _, entry := range entries {
		if err := addZipEntry(zw, entry); err != nil {
			_ = zw.Close()
			_ = out.Close()
			_ = os.Remove(outPath)
			return err
		}
	}

	if err := zw.Close(); err != nil {
		_ = out.Close()
		_ = os.Remove(outPath)
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(outPath)
		return fmt.Errorf("close archive: %w", err)
	}

	log := logger.FromContext(ctx)
	for _, entry := range entries {
		if err := os.Remove(entry.Path); err != nil {
			log.Warn("failed to remove archived part", "path", entry.Path, "error", err)
		}
	}
	return nil
}

func addZipEntry(zw *zip.Writer, entry ZipEntry) error {
	f, err := os.Open(entry.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", entry.Name, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", entry.Name, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("archive header %s: %w", entry.Name, err)
	}
	header.Name = filepath.ToSlash(entry.Name)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("archive entry %s: %w", entry.Name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("archive write %s: %w", entry.Name, err)
	}
	return nil
}
