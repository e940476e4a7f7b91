package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// excludedNames are files/directories never treated as resources.
var excludedNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	".DS_Store":    true,
}

// walkSource reads every resource under the category directories of one
// source. Records are keyed by id; two files canonicalizing to the same id
// within one source are a DuplicateIDError.
func walkSource(fsys afero.Fs, source Source) (map[ID]*Record, error) {
	ok, err := afero.DirExists(fsys, source.BasePath)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", source.Name, err)
	}
	if !ok {
		return nil, fmt.Errorf("source %q: %s: %w", source.Name, source.BasePath, os.ErrNotExist)
	}

	records := make(map[ID]*Record)
	categories := append(append([]Category{}, Priority...), CategoryTeam)

	for _, cat := range categories {
		catDir := filepath.Join(source.BasePath, cat.Dir())
		if exists, _ := afero.DirExists(fsys, catDir); !exists {
			continue
		}

		err := afero.Walk(fsys, catDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if shouldExclude(info.Name()) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if info.IsDir() || !info.Mode().IsRegular() {
				return nil
			}

			inCategory, err := filepath.Rel(catDir, path)
			if err != nil {
				return err
			}
			relPath, err := filepath.Rel(source.BasePath, path)
			if err != nil {
				return err
			}

			id := NewID(cat, filepath.ToSlash(inCategory))
			relPath = filepath.ToSlash(relPath)
			if existing, dup := records[id]; dup {
				return &DuplicateIDError{
					Source: source.Name,
					ID:     id,
					First:  existing.RelPath,
					Second: relPath,
				}
			}

			content, err := afero.ReadFile(fsys, path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			records[id] = &Record{
				ID:      id,
				Content: content,
				Source:  source.Name,
				RelPath: relPath,
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", catDir, err)
		}
	}

	return records, nil
}

// shouldExclude returns true if the name should be skipped while scanning.
func shouldExclude(name string) bool {
	return excludedNames[name] || strings.HasPrefix(name, ".#")
}
