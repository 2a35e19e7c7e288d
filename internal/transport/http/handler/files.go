package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"llmproxy/internal/app"
	"llmproxy/internal/store"
	"llmproxy/internal/transport/http/response"
)

// FileHandler exposes the document namespace. Paths may contain slashes, so
// the per-file routes are registered as a single wildcard per method and
// dispatched on their suffix here.
type FileHandler struct {
	fileService    *app.FileService
	maxUploadBytes int64
}

type CreateFileRequest struct {
	Path    string `json:"path" binding:"required"`
	Content string `json:"content"`
}

type CreateDirectoryRequest struct {
	Path string `json:"path" binding:"required"`
}

type RollbackRequest struct {
	Version int  `json:"version" binding:"required"`
	Reindex bool `json:"reindex"`
}

func NewFileHandler(fileService *app.FileService, maxUploadBytes int64) *FileHandler {
	return &FileHandler{fileService: fileService, maxUploadBytes: maxUploadBytes}
}

// Upload accepts a multipart form with "file", an optional "path" query
// naming the target directory and an optional "reindex" query flag.
func (h *FileHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	dest := file.Filename
	if dir := strings.Trim(c.Query("path"), "/"); dir != "" {
		dest = dir + "/" + file.Filename
	}

	if err := h.fileService.CreateOrUpdateFile(dest, content); err != nil {
		h.writeError(c, err, "upload failed")
		return
	}

	triggered := false
	if c.Query("reindex") == "true" {
		triggered = h.fileService.TryReindex()
	}
	response.OK(c, gin.H{
		"path":              dest,
		"size":              file.Size,
		"reindex_triggered": triggered,
	})
}

// List returns the entries of the directory named by the "path" query; an
// empty path lists the namespace root.
func (h *FileHandler) List(c *gin.Context) {
	entries, err := h.fileService.List(c.Query("path"))
	if err != nil {
		h.writeError(c, err, "list failed")
		return
	}
	response.OK(c, gin.H{"entries": entries})
}

// Get dispatches GET /rag/files/*path: a "/versions" suffix returns the
// version history, anything else lists the path as a directory.
func (h *FileHandler) Get(c *gin.Context) {
	raw := strings.TrimPrefix(c.Param("path"), "/")
	if target, ok := strings.CutSuffix(raw, "/versions"); ok {
		history, err := h.fileService.History(target)
		if err != nil {
			h.writeError(c, err, "version history failed")
			return
		}
		response.OK(c, history)
		return
	}

	entries, err := h.fileService.List(raw)
	if err != nil {
		h.writeError(c, err, "list failed")
		return
	}
	response.OK(c, gin.H{"entries": entries})
}

// Post dispatches POST /rag/files/*path: the literal "create" path creates a
// file from a JSON body, a "/rollback" suffix restores a retained version.
func (h *FileHandler) Post(c *gin.Context) {
	raw := strings.TrimPrefix(c.Param("path"), "/")

	if raw == "create" {
		var req CreateFileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
			return
		}
		if err := h.fileService.CreateOrUpdateFile(req.Path, []byte(req.Content)); err != nil {
			h.writeError(c, err, "create file failed")
			return
		}
		response.OK(c, gin.H{"path": req.Path})
		return
	}

	if target, ok := strings.CutSuffix(raw, "/rollback"); ok {
		var req RollbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
			return
		}
		triggered, err := h.fileService.Rollback(target, req.Version, req.Reindex)
		if err != nil {
			h.writeError(c, err, "rollback failed")
			return
		}
		response.OK(c, gin.H{
			"path":              target,
			"rolled_back_to":    req.Version,
			"reindex_triggered": triggered,
		})
		return
	}

	response.Error(c, http.StatusNotFound, response.CodeNotFound, "unknown file operation")
}

func (h *FileHandler) Delete(c *gin.Context) {
	target := strings.TrimPrefix(c.Param("path"), "/")
	if err := h.fileService.Delete(target); err != nil {
		h.writeError(c, err, "delete failed")
		return
	}
	response.OK(c, gin.H{"deleted_path": target})
}

func (h *FileHandler) CreateDirectory(c *gin.Context) {
	var req CreateDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if err := h.fileService.CreateDirectory(req.Path); err != nil {
		h.writeError(c, err, "create directory failed")
		return
	}
	response.OK(c, gin.H{"path": req.Path})
}

func (h *FileHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		response.Error(c, http.StatusConflict, response.CodeConflict, err.Error())
	case errors.Is(err, store.ErrInvalidPath), errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
