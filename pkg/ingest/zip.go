package ingest

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Sudo-Ivan/geodata-converter/pkg/archive"
	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

// Zip reads an archive holding exactly one shapefile, or failing that
// exactly one file geodatabase directory.
type Zip struct {
	Registry *Registry
}

// Read implements Reader.
func (z Zip) Read(src string) (*dataset.Dataset, error) {
	tmp, err := os.MkdirTemp("", "zip-read-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	files, err := archive.Extract(src, tmp)
	if err != nil {
		return nil, err
	}

	target, err := archive.FindSingle(files, ".shp")
	if err != nil {
		gdb, gerr := archive.FindSingle(gdbDirs(files), ".gdb")
		if gerr != nil {
			return nil, err
		}
		target = gdb
	}

	ds, err := z.Registry.Read(filepath.Join(tmp, filepath.FromSlash(target)))
	if err != nil {
		return nil, err
	}
	ds.Name = stem(target)
	return ds, nil
}

// gdbDirs lists the distinct .gdb directories that extracted files live in.
func gdbDirs(files []string) []string {
	seen := map[string]bool{}
	var dirs []string
	for _, f := range files {
		for dir := path.Dir(f); dir != "." && dir != "/"; dir = path.Dir(dir) {
			if strings.HasSuffix(strings.ToLower(dir), ".gdb") && !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}
