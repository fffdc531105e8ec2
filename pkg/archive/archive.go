// Copyright (c) 2025 Sudo-Ivan
// Licensed under the MIT License

// Package archive implements the zip handling shared by readers and writers:
// locating a single payload inside an archive, extracting it, and packing an
// output directory for download.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

// FindSingle returns the one name in files ending with ext (case-insensitive).
// Zero or several matches yield a MultipleOrNoPayloadError.
func FindSingle(files []string, ext string) (string, error) {
	ext = strings.ToLower(ext)
	var matches []string
	for _, f := range files {
		if strings.HasSuffix(strings.ToLower(f), ext) {
			matches = append(matches, f)
		}
	}
	if len(matches) != 1 {
		return "", &dataset.MultipleOrNoPayloadError{Extension: ext, Matches: matches}
	}
	return matches[0], nil
}

// Names lists the file entries of an open archive.
func Names(r *zip.Reader) []string {
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
	}
	return names
}

// ReadEntry returns the content of the named entry.
func ReadEntry(r *zip.Reader, name string) ([]byte, error) {
	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open archive entry %s: %w", name, err)
		}
		defer func() { _ = rc.Close() }()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read archive entry %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("archive entry %s not found", name)
}

// Extract unpacks the archive at src into dir and returns the extracted file
// paths relative to dir. Entries escaping dir are rejected.
func Extract(src, dir string) ([]string, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", src, err)
	}
	defer func() { _ = zr.Close() }()

	var files []string
	for _, f := range zr.File {
		name := path.Clean(strings.ReplaceAll(f.Name, "\\", "/"))
		if name == "." || strings.HasPrefix(name, "../") || path.IsAbs(name) {
			return nil, fmt.Errorf("archive entry %q escapes the extraction directory", f.Name)
		}
		target := filepath.Join(dir, filepath.FromSlash(name))

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, err
		}
		if err := extractFile(f, target); err != nil {
			return nil, err
		}
		files = append(files, name)
	}
	return files, nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return out.Close()
}

// ZipDir writes every file below dir into a new archive at dst, storing
// paths relative to dir.
func ZipDir(dir, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", dst, err)
	}

	zw := zip.NewWriter(out)
	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || p == dst {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		return addFile(zw, p, filepath.ToSlash(rel))
	})

	if err := zw.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if err := out.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if walkErr != nil {
		return fmt.Errorf("failed to archive %s: %w", dir, walkErr)
	}
	return nil
}

func addFile(zw *zip.Writer, src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}
