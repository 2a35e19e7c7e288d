// Package indexer turns files in the namespace into embeddable text chunks:
// a walker selects supported files, per-format extractors pull plain text,
// and the chunker splits it into overlapping windows.
package indexer

import (
	"io/fs"
	"path/filepath"

	"llmproxy/internal/model"
)

// WalkedFile is one indexable file found under the namespace root.
type WalkedFile struct {
	AbsPath string
	RelPath string
	Format  model.FileFormat
}

// Walk collects every supported file under root, depth-first, skipping
// .versions directories. Files with unrecognized extensions are left out
// rather than reported as failures.
func Walk(root string) ([]WalkedFile, error) {
	var files []WalkedFile
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".versions" {
				return filepath.SkipDir
			}
			return nil
		}
		format, ok := model.FormatFromExtension(filepath.Ext(p))
		if !ok {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		files = append(files, WalkedFile{
			AbsPath: p,
			RelPath: filepath.ToSlash(rel),
			Format:  format,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
