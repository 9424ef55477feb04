package webapp

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ArchiveExt is the extension of packaged web applications.
const ArchiveExt = ".war"

// Package is a deployable entry found in the monitored directory.
type Package struct {
	// Name is the entry name within the monitored directory.
	Name string
	// Path is the full filesystem path of the entry.
	Path string
	// Archive is true for .war files, false for unpacked directories.
	Archive bool
}

// ContextPath derives the routing prefix from the entry name: ROOT maps to
// "/" and everything else to "/<name>" with any archive extension removed.
func (p Package) ContextPath() string {
	name := p.Name
	if p.Archive && strings.EqualFold(filepath.Ext(name), ArchiveExt) {
		name = name[:len(name)-len(ArchiveExt)]
	}
	if strings.EqualFold(name, "root") {
		return "/"
	}
	return "/" + name
}

// Open exposes the package content as a filesystem. Archives are read in
// place unless extract is set, in which case they are unpacked below tempDir
// and the returned closer removes the copy.
func (p Package) Open(extract bool, tempDir string) (fs.FS, io.Closer, error) {
	if !p.Archive {
		info, err := os.Stat(p.Path)
		if err != nil {
			return nil, nil, err
		}
		if !info.IsDir() {
			return nil, nil, fmt.Errorf("%s is not a directory", p.Path)
		}
		return os.DirFS(p.Path), nopCloser{}, nil
	}

	zr, err := zip.OpenReader(p.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive %s: %w", p.Path, err)
	}
	if !extract {
		return zr, zr, nil
	}
	defer zr.Close()

	dest, err := os.MkdirTemp(tempDir, "webapp-"+strings.TrimSuffix(p.Name, filepath.Ext(p.Name))+"-")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create extraction dir: %w", err)
	}
	if err := extractArchive(&zr.Reader, dest); err != nil {
		_ = os.RemoveAll(dest)
		return nil, nil, err
	}
	return os.DirFS(dest), removeDir(dest), nil
}

func extractArchive(zr *zip.Reader, dest string) error {
	for _, f := range zr.File {
		if !filepath.IsLocal(f.Name) {
			return fmt.Errorf("archive entry %q escapes extraction dir", f.Name)
		}
		target := filepath.Join(dest, filepath.FromSlash(f.Name))

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	if f.Modified.IsZero() {
		return nil
	}
	return os.Chtimes(target, f.Modified, f.Modified)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type removeDir string

func (d removeDir) Close() error {
	if err := os.RemoveAll(string(d)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
