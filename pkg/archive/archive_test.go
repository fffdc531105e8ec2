package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

func TestFindSingle(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		want    string
		wantErr bool
	}{
		{"single match", []string{"doc.kml", "files/icon.png"}, "doc.kml", false},
		{"case insensitive", []string{"DOC.KML"}, "DOC.KML", false},
		{"no match", []string{"icon.png"}, "", true},
		{"two matches", []string{"a.kml", "b.kml"}, "", true},
		{"empty", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindSingle(tt.files, ".kml")
			if tt.wantErr {
				var payloadErr *dataset.MultipleOrNoPayloadError
				if !errors.As(err, &payloadErr) {
					t.Fatalf("FindSingle() error = %v; want MultipleOrNoPayloadError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindSingle() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FindSingle() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestZipDirAndExtract(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "roads.shp"), "shp")
	writeFile(t, filepath.Join(src, "roads.dbf"), "dbf")
	writeFile(t, filepath.Join(src, "sub", "nested.txt"), "nested")

	dst := filepath.Join(t.TempDir(), "out.zip")
	if err := ZipDir(src, dst); err != nil {
		t.Fatalf("ZipDir() error = %v", err)
	}

	zr, err := zip.OpenReader(dst)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	names := Names(&zr.Reader)
	_ = zr.Close()
	sort.Strings(names)

	want := []string{"roads.dbf", "roads.shp", "sub/nested.txt"}
	if len(names) != len(want) {
		t.Fatalf("archive entries = %v; want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entry %d = %q; want %q", i, names[i], want[i])
		}
	}

	out := t.TempDir()
	files, err := Extract(dst, out)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(files) != 3 {
		t.Errorf("Extract() returned %d files; want 3", len(files))
	}
	data, err := os.ReadFile(filepath.Join(out, "sub", "nested.txt"))
	if err != nil || string(data) != "nested" {
		t.Errorf("extracted content = %q, %v; want nested", data, err)
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "evil.zip")
	f, err := os.Create(dst)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("../escape.txt")
	_, _ = w.Write([]byte("x"))
	_ = zw.Close()
	_ = f.Close()

	if _, err := Extract(dst, t.TempDir()); err == nil {
		t.Error("Extract() accepted an entry outside the target directory")
	}
}

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
