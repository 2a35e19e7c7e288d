package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"llmproxy/internal/model"
)

const (
	versionsDirName = ".versions"
	maxVersions     = 10
	metaFileName    = "meta.json"
)

// versionMeta is the on-disk index of a file's retained versions, stored as
// .versions/<file name>/meta.json next to the live file.
type versionMeta struct {
	MaxVersions int                   `json:"max_versions"`
	Versions    []model.VersionRecord `json:"versions"`
}

func versionsDirFor(absFile string) string {
	return filepath.Join(filepath.Dir(absFile), versionsDirName)
}

func fileVersionDir(absFile string) string {
	return filepath.Join(versionsDirFor(absFile), filepath.Base(absFile))
}

func readVersionMeta(absFile string) (*versionMeta, error) {
	metaPath := filepath.Join(fileVersionDir(absFile), metaFileName)
	data, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return &versionMeta{MaxVersions: maxVersions, Versions: []model.VersionRecord{}}, nil
	}
	if err != nil {
		return nil, err
	}
	var meta versionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s failed: %w", metaPath, err)
	}
	return &meta, nil
}

func writeVersionMeta(absFile string, meta *versionMeta) error {
	verDir := fileVersionDir(absFile)
	if err := os.MkdirAll(verDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(verDir, metaFileName), data, 0o644)
}

// findVersionFile locates the stored content file for a version number. The
// "v<N>_" prefix cannot collide across numbers because of the underscore.
func findVersionFile(verDir string, version int) (string, bool) {
	prefix := fmt.Sprintf("v%d_", version)
	dirents, err := os.ReadDir(verDir)
	if err != nil {
		return "", false
	}
	for _, d := range dirents {
		name := d.Name()
		if name != metaFileName && strings.HasPrefix(name, prefix) {
			return filepath.Join(verDir, name), true
		}
	}
	return "", false
}

// recordVersion snapshots the current content of absFile as the next version.
// Version numbers only ever grow; when the cap is reached the oldest record
// and its content file are evicted before the append, so the retained set is
// always the highest numbers issued.
func recordVersion(absFile, comment string) (int, error) {
	info, err := os.Stat(absFile)
	if err != nil || info.IsDir() {
		return 0, fmt.Errorf("%w: no file at %q", ErrNotFound, absFile)
	}

	verDir := fileVersionDir(absFile)
	if err := os.MkdirAll(verDir, 0o755); err != nil {
		return 0, err
	}
	meta, err := readVersionMeta(absFile)
	if err != nil {
		return 0, err
	}

	next := 1
	if n := len(meta.Versions); n > 0 {
		next = meta.Versions[n-1].Version + 1
	}

	for len(meta.Versions) >= meta.MaxVersions {
		oldest := meta.Versions[0]
		meta.Versions = meta.Versions[1:]
		if f, ok := findVersionFile(verDir, oldest.Version); ok {
			_ = os.Remove(f)
		}
	}

	ext := filepath.Ext(absFile)
	if ext == "" {
		ext = ".dat"
	}
	verPath := filepath.Join(verDir, fmt.Sprintf("v%d_%d%s", next, time.Now().Unix(), ext))
	if err := copyFile(absFile, verPath); err != nil {
		return 0, err
	}
	verInfo, err := os.Stat(verPath)
	if err != nil {
		return 0, err
	}

	meta.Versions = append(meta.Versions, model.VersionRecord{
		Version:   next,
		CreatedAt: time.Now().UTC(),
		Size:      verInfo.Size(),
		Comment:   comment,
	})
	if err := writeVersionMeta(absFile, meta); err != nil {
		return 0, err
	}
	return next, nil
}

// versionContent returns the stored bytes of a retained version.
func versionContent(absFile string, version int) ([]byte, error) {
	meta, err := readVersionMeta(absFile)
	if err != nil {
		return nil, err
	}
	found := false
	for _, v := range meta.Versions {
		if v.Version == version {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: version %d", ErrNotFound, version)
	}
	verPath, ok := findVersionFile(fileVersionDir(absFile), version)
	if !ok {
		return nil, fmt.Errorf("%w: content for version %d missing on disk", ErrNotFound, version)
	}
	return os.ReadFile(verPath)
}

func versionCount(absFile string) int {
	meta, err := readVersionMeta(absFile)
	if err != nil {
		return 0
	}
	return len(meta.Versions)
}

// deleteVersions drops the whole history of a file, removing the shared
// .versions directory as well once it is empty.
func deleteVersions(absFile string) error {
	verDir := fileVersionDir(absFile)
	if err := os.RemoveAll(verDir); err != nil {
		return err
	}
	parent := versionsDirFor(absFile)
	if dirents, err := os.ReadDir(parent); err == nil && len(dirents) == 0 {
		_ = os.Remove(parent)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
