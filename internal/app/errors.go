package app

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrIndexingBusy      = errors.New("indexing already in progress")
	ErrInvalidInterval   = errors.New("auto index interval must be a positive integer")
	ErrEngineUnavailable = errors.New("indexing engine unavailable")
	ErrUpstream          = errors.New("upstream completion failed")

	// ErrVectorStore marks a failure at the vector-store boundary. Unlike
	// per-file parse or embed errors it aborts the whole indexing run.
	ErrVectorStore = errors.New("vector store failure")
)
