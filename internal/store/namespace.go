package store

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"llmproxy/internal/model"
)

var (
	ErrNotFound    = errors.New("path not found")
	ErrConflict    = errors.New("path conflict")
	ErrInvalidPath = errors.New("invalid path")
)

// Namespace is the document tree rooted at the upload directory. Live file
// content lives directly on disk; prior versions are kept by the ledger in
// .versions sibling directories. Writes serialize on a single lock, reads
// take the shared side and never wait behind an indexing run.
type Namespace struct {
	root string
	mu   sync.RWMutex
}

func NewNamespace(root string) (*Namespace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir failed: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}
	return &Namespace{root: abs}, nil
}

func (ns *Namespace) Root() string {
	return ns.root
}

// resolve maps a slash-separated relative path onto the filesystem, confined
// to the namespace root. The empty path denotes the root itself.
func (ns *Namespace) resolve(rel string) (string, error) {
	rel = strings.TrimPrefix(strings.TrimSpace(rel), "/")
	if rel == "" {
		return ns.root, nil
	}
	cleaned := path.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || path.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	for _, seg := range strings.Split(cleaned, "/") {
		if seg == versionsDirName {
			return "", fmt.Errorf("%w: %q is reserved", ErrInvalidPath, versionsDirName)
		}
	}
	return filepath.Join(ns.root, filepath.FromSlash(cleaned)), nil
}

// CreateDirectory creates the directory and any missing ancestors. Creating
// an already existing directory is a no-op; a file in the way is a conflict.
func (ns *Namespace) CreateDirectory(rel string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	abs, err := ns.resolve(rel)
	if err != nil {
		return err
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return fmt.Errorf("%w: a file exists at %q", ErrConflict, rel)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("create directory failed: %w", err)
	}
	return nil
}

// WriteFile creates the file or overwrites it, snapshotting the previous
// content into the version ledger first. The parent directory must exist.
func (ns *Namespace) WriteFile(rel string, content []byte) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	abs, err := ns.resolve(rel)
	if err != nil {
		return err
	}
	if abs == ns.root {
		return fmt.Errorf("%w: empty file path", ErrInvalidPath)
	}
	if info, err := os.Stat(abs); err == nil {
		if info.IsDir() {
			return fmt.Errorf("%w: a directory exists at %q", ErrConflict, rel)
		}
		if _, err := recordVersion(abs, "Saved before overwrite"); err != nil {
			return fmt.Errorf("snapshot previous version failed: %w", err)
		}
	} else if parent := filepath.Dir(abs); parent != ns.root {
		pinfo, perr := os.Stat(parent)
		if perr != nil || !pinfo.IsDir() {
			return fmt.Errorf("%w: parent directory of %q", ErrNotFound, rel)
		}
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		return fmt.Errorf("write file failed: %w", err)
	}
	return nil
}

// Delete removes the node. Directories are removed recursively together with
// every version history below them; a deleted file's history is dropped too.
func (ns *Namespace) Delete(rel string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	abs, err := ns.resolve(rel)
	if err != nil {
		return err
	}
	if abs == ns.root {
		return fmt.Errorf("%w: cannot delete namespace root", ErrInvalidPath)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrNotFound, rel)
	}
	if info.IsDir() {
		if err := os.RemoveAll(abs); err != nil {
			return fmt.Errorf("delete directory failed: %w", err)
		}
		return nil
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("delete file failed: %w", err)
	}
	if err := deleteVersions(abs); err != nil {
		return fmt.Errorf("delete version history failed: %w", err)
	}
	return nil
}

// List returns the immediate children of a directory, directories first then
// alphabetical. Files carry size, format, modified time and version count.
func (ns *Namespace) List(rel string) ([]model.Entry, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	abs, err := ns.resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a directory", ErrNotFound, rel)
	}

	dirents, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read directory failed: %w", err)
	}

	base := strings.TrimPrefix(strings.TrimSpace(rel), "/")
	entries := make([]model.Entry, 0, len(dirents))
	for _, d := range dirents {
		name := d.Name()
		if name == versionsDirName {
			continue
		}
		entry := model.Entry{
			Name:  name,
			Path:  path.Join(base, name),
			IsDir: d.IsDir(),
		}
		if !d.IsDir() {
			finfo, err := d.Info()
			if err != nil {
				continue
			}
			size := finfo.Size()
			modified := finfo.ModTime()
			entry.Size = &size
			entry.ModifiedAt = &modified
			if format, ok := model.FormatFromExtension(filepath.Ext(name)); ok {
				entry.Format = format.String()
			}
			if vc := versionCount(filepath.Join(abs, name)); vc > 0 {
				entry.VersionCount = &vc
			}
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// History returns the live metadata and retained versions for a file.
func (ns *Namespace) History(rel string) (*model.FileVersionHistory, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	abs, err := ns.resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: no file at %q", ErrNotFound, rel)
	}

	meta, err := readVersionMeta(abs)
	if err != nil {
		return nil, fmt.Errorf("read version meta failed: %w", err)
	}
	return &model.FileVersionHistory{
		FilePath:          strings.TrimPrefix(strings.TrimSpace(rel), "/"),
		CurrentSize:       info.Size(),
		CurrentModifiedAt: info.ModTime(),
		Versions:          meta.Versions,
	}, nil
}

// Rollback restores the file to a retained version. The current live content
// is snapshotted first so a rollback never destroys data and can itself be
// rolled back.
func (ns *Namespace) Rollback(rel string, version int) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	abs, err := ns.resolve(rel)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: no file at %q", ErrNotFound, rel)
	}

	content, err := versionContent(abs, version)
	if err != nil {
		return err
	}
	if _, err := recordVersion(abs, fmt.Sprintf("Auto-saved before rollback to v%d", version)); err != nil {
		return fmt.Errorf("snapshot before rollback failed: %w", err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		return fmt.Errorf("restore version content failed: %w", err)
	}
	return nil
}
