package model

import "time"

// Entry is a single node in the document namespace as returned by listings.
// Size, Format, ModifiedAt and VersionCount are only set for files.
type Entry struct {
	Name         string     `json:"name"`
	Path         string     `json:"path"`
	IsDir        bool       `json:"is_dir"`
	Size         *int64     `json:"size,omitempty"`
	Format       string     `json:"format,omitempty"`
	ModifiedAt   *time.Time `json:"modified_at,omitempty"`
	VersionCount *int       `json:"version_count,omitempty"`
}

// VersionRecord is an immutable snapshot of a file's prior content.
// Version numbers are a permanent write counter per file, never renumbered.
type VersionRecord struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
	Comment   string    `json:"comment"`
}

// FileVersionHistory is the live file's current metadata plus its retained
// versions, ascending by version number.
type FileVersionHistory struct {
	FilePath          string          `json:"file_path"`
	CurrentSize       int64           `json:"current_size"`
	CurrentModifiedAt time.Time       `json:"current_modified_at"`
	Versions          []VersionRecord `json:"versions"`
}
