package model

import "time"

// IndexStatus is the process-wide indexing state exposed to polling clients.
// FailedFiles is reset at the start of each run; LastError is sticky until a
// run completes without a fatal fault.
type IndexStatus struct {
	IsIndexing               bool       `json:"is_indexing"`
	LastIndexedAt            *time.Time `json:"last_indexed_at"`
	TotalFiles               int        `json:"total_files"`
	TotalChunks              int        `json:"total_chunks"`
	FailedFiles              []string   `json:"failed_files"`
	LastError                string     `json:"last_error"`
	AutoIndexIntervalMinutes int        `json:"auto_index_interval_minutes"`
	UploadDir                string     `json:"upload_dir"`
}
