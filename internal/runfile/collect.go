package runfile

// collect.go: gather per-package rows written by the score stage.

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RowFile is the file name the score stage writes its row to.
const RowFile = "row.json"

// Collect walks root and decodes every RowFile below it. Hidden directories
// are skipped, as are directories for which skip returns true (skip may be
// nil). Rows are returned sorted by package id.
func Collect(root string, skip func(rel string) bool) ([]Row, error) {
	var rows []Row
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			rel, _ := filepath.Rel(root, path)
			if skip != nil && skip(filepath.ToSlash(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != RowFile {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		var row Row
		if err := json.Unmarshal(data, &row); err != nil {
			return fmt.Errorf("unmarshal %s: %w", path, err)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].PackageID < rows[j].PackageID
	})
	return rows, nil
}

// WriteRow writes row as indented JSON to dir/RowFile.
func WriteRow(dir string, row Row) error {
	data, err := json.MarshalIndent(row, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}
	path := filepath.Join(dir, RowFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
