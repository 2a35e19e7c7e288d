package app

import (
	"strings"

	"llmproxy/internal/model"
	"llmproxy/internal/store"
)

// FileService orchestrates namespace mutations and their optional
// best-effort reindex requests. The coordinator may be nil when the indexing
// engine failed to initialize; file operations still work in that case.
type FileService struct {
	ns          *store.Namespace
	coordinator *Coordinator
}

func NewFileService(ns *store.Namespace, coordinator *Coordinator) *FileService {
	return &FileService{ns: ns, coordinator: coordinator}
}

func (s *FileService) List(path string) ([]model.Entry, error) {
	return s.ns.List(path)
}

func (s *FileService) CreateDirectory(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrInvalidInput
	}
	return s.ns.CreateDirectory(path)
}

func (s *FileService) CreateOrUpdateFile(path string, content []byte) error {
	if strings.TrimSpace(path) == "" {
		return ErrInvalidInput
	}
	return s.ns.WriteFile(path, content)
}

func (s *FileService) Delete(path string) error {
	return s.ns.Delete(path)
}

func (s *FileService) History(path string) (*model.FileVersionHistory, error) {
	return s.ns.History(path)
}

// Rollback restores a retained version and, when asked, requests a reindex.
// The request is dropped if a run is already active; the caller learns
// whether one actually started.
func (s *FileService) Rollback(path string, version int, reindex bool) (bool, error) {
	if err := s.ns.Rollback(path, version); err != nil {
		return false, err
	}
	if !reindex {
		return false, nil
	}
	return s.TryReindex(), nil
}

// TryReindex asks the coordinator for a run, best effort.
func (s *FileService) TryReindex() bool {
	if s.coordinator == nil {
		return false
	}
	return s.coordinator.TryTrigger()
}
