package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"llmproxy/internal/indexer"
	"llmproxy/internal/model"
	"llmproxy/internal/store"
	"llmproxy/internal/vectorstore"
)

// Embedder turns text chunks into vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the upsert side of the vector store. Any error it returns
// is treated as fatal for the current run.
type VectorIndex interface {
	Upsert(ctx context.Context, points []vectorstore.Point) error
	ListIDs(ctx context.Context) ([]string, error)
	DeletePoints(ctx context.Context, ids []string) error
}

// StatusStore optionally persists the status snapshot across restarts.
type StatusStore interface {
	Load(ctx context.Context) (*model.IndexStatus, bool, error)
	Save(ctx context.Context, status model.IndexStatus) error
}

type CoordinatorConfig struct {
	IntervalMinutes int
	ChunkSize       int
	ChunkOverlap    int
	EmbedBatchSize  int
}

var errShutdownInterrupt = errors.New("indexing interrupted by shutdown")

// Coordinator owns the one indexing run the process may have in flight, the
// shared IndexStatus and the periodic schedule. Trigger, scheduled ticks and
// rollback-initiated reindexes all race for the same compare-and-set flag;
// there is no queueing of pending runs.
type Coordinator struct {
	ns          *store.Namespace
	embedder    Embedder
	vectors     VectorIndex
	statusStore StatusStore

	chunkSize    int
	chunkOverlap int
	embedBatch   int

	// tick is the duration of one interval unit. Production always runs on
	// time.Minute; tests shrink it to exercise the scheduler.
	tick time.Duration

	indexing atomic.Bool

	mu     sync.RWMutex
	status model.IndexStatus

	timerMu sync.Mutex
	timer   *time.Timer

	quit      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewCoordinator(ns *store.Namespace, embedder Embedder, vectors VectorIndex, statusStore StatusStore, cfg CoordinatorConfig) *Coordinator {
	if cfg.IntervalMinutes <= 0 {
		cfg.IntervalMinutes = 60
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 5
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 32
	}

	c := &Coordinator{
		ns:           ns,
		embedder:     embedder,
		vectors:      vectors,
		statusStore:  statusStore,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		embedBatch:   cfg.EmbedBatchSize,
		tick:         time.Minute,
		quit:         make(chan struct{}),
		status: model.IndexStatus{
			FailedFiles:              []string{},
			AutoIndexIntervalMinutes: cfg.IntervalMinutes,
			UploadDir:                ns.Root(),
		},
	}
	c.restoreSnapshot()
	return c
}

// restoreSnapshot merges a persisted status from a previous process. The
// indexing flag is never restored; a fresh process has no run in flight.
func (c *Coordinator) restoreSnapshot() {
	if c.statusStore == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	persisted, ok, err := c.statusStore.Load(ctx)
	if err != nil {
		log.Printf("load index status snapshot failed: %v", err)
		return
	}
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.LastIndexedAt = persisted.LastIndexedAt
	c.status.TotalFiles = persisted.TotalFiles
	c.status.TotalChunks = persisted.TotalChunks
	c.status.LastError = persisted.LastError
	if persisted.FailedFiles != nil {
		c.status.FailedFiles = persisted.FailedFiles
	}
	if persisted.AutoIndexIntervalMinutes > 0 {
		c.status.AutoIndexIntervalMinutes = persisted.AutoIndexIntervalMinutes
	}
}

// Trigger starts a run on its own goroutine. The compare-and-set on the
// indexing flag is the single mutual-exclusion point shared with scheduled
// ticks and rollback-initiated reindexes; the loser gets ErrIndexingBusy.
func (c *Coordinator) Trigger() error {
	if !c.indexing.CompareAndSwap(false, true) {
		return ErrIndexingBusy
	}

	c.mu.Lock()
	c.status.IsIndexing = true
	c.status.FailedFiles = []string{}
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runIndex(context.Background())
	}()
	return nil
}

// TryTrigger is the silent variant used by scheduled ticks and best-effort
// reindex requests: a busy coordinator drops the request instead of failing.
func (c *Coordinator) TryTrigger() bool {
	return c.Trigger() == nil
}

// Status returns a snapshot copy; safe to poll at arbitrary frequency.
func (c *Coordinator) Status() model.IndexStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneStatus(c.status)
}

// UpdateInterval validates and persists the new interval and reschedules the
// next tick to fire that many minutes from now, discarding the pending one.
// An in-flight run is unaffected.
func (c *Coordinator) UpdateInterval(minutes int) error {
	if minutes <= 0 {
		return ErrInvalidInterval
	}
	c.mu.Lock()
	c.status.AutoIndexIntervalMinutes = minutes
	snapshot := cloneStatus(c.status)
	c.mu.Unlock()

	c.reschedule(time.Duration(minutes) * c.tick)
	c.saveSnapshot(snapshot)
	return nil
}

// StartScheduler arms the periodic timer. Each tick attempts the same
// compare-and-set as Trigger and is skipped silently when a run is active.
func (c *Coordinator) StartScheduler() {
	c.timerMu.Lock()
	if c.timer != nil {
		c.timerMu.Unlock()
		return
	}
	c.timer = time.NewTimer(c.interval())
	timer := c.timer
	c.timerMu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.quit:
				timer.Stop()
				return
			case <-timer.C:
				c.TryTrigger()
				c.reschedule(c.interval())
			}
		}
	}()
}

// Close stops the scheduler and lets an in-flight run finish its current
// file, waiting at most grace before giving up.
func (c *Coordinator) Close(grace time.Duration) {
	c.closeOnce.Do(func() { close(c.quit) })
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		log.Printf("indexing run did not stop within %s grace period", grace)
	}
}

func (c *Coordinator) interval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.status.AutoIndexIntervalMinutes) * c.tick
}

func (c *Coordinator) reschedule(d time.Duration) {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.timer == nil {
		return
	}
	if !c.timer.Stop() {
		select {
		case <-c.timer.C:
		default:
		}
	}
	c.timer.Reset(d)
}

// runIndex executes one full run and records its outcome. The indexing flag
// is released via defer on every exit path, including panics.
func (c *Coordinator) runIndex(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		c.status.IsIndexing = false
		snapshot := cloneStatus(c.status)
		c.mu.Unlock()
		c.indexing.Store(false)
		c.saveSnapshot(snapshot)
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("indexing panicked: %v", r)
			c.mu.Lock()
			c.status.LastError = fmt.Sprintf("indexing panicked: %v", r)
			c.mu.Unlock()
		}
	}()

	processed, chunks, failed, err := c.doIndex(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.FailedFiles = failed
	if err != nil {
		msg := fmt.Sprintf("indexing error: %v", err)
		log.Print(msg)
		c.status.LastError = msg
		return
	}
	now := time.Now().UTC()
	c.status.TotalFiles = processed
	c.status.TotalChunks = chunks
	c.status.LastIndexedAt = &now
	c.status.LastError = ""
	log.Printf("indexing complete: %d files, %d chunks", processed, chunks)
}

func (c *Coordinator) doIndex(ctx context.Context) (processed, chunks int, failed []string, fatal error) {
	failed = []string{}

	files, err := indexer.Walk(c.ns.Root())
	if err != nil {
		return 0, 0, failed, fmt.Errorf("walk namespace failed: %w", err)
	}
	log.Printf("indexing %d files from %s", len(files), c.ns.Root())

	liveHashes := make(map[string]bool, len(files))
	for _, f := range files {
		liveHashes[fileID(f.RelPath)] = true
	}

	for _, f := range files {
		select {
		case <-c.quit:
			return processed, chunks, failed, errShutdownInterrupt
		default:
		}

		n, err := c.processFile(ctx, f)
		if err != nil {
			if errors.Is(err, ErrVectorStore) {
				return processed, chunks, failed, err
			}
			log.Printf("failed to index %s: %v", f.RelPath, err)
			failed = append(failed, f.RelPath)
			continue
		}
		processed++
		chunks += n
	}

	c.cleanupStalePoints(ctx, liveHashes)
	return processed, chunks, failed, nil
}

// processFile extracts, chunks, embeds and upserts one file. Extraction and
// embedding errors are per-file; upsert errors carry ErrVectorStore and
// abort the run.
func (c *Coordinator) processFile(ctx context.Context, f indexer.WalkedFile) (int, error) {
	text, err := indexer.ExtractText(f.AbsPath, f.Format)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}

	textChunks := indexer.ChunkText(text, c.chunkSize, c.chunkOverlap)
	id := fileID(f.RelPath)
	total := 0
	for start := 0; start < len(textChunks); start += c.embedBatch {
		end := min(start+c.embedBatch, len(textChunks))
		batch := textChunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}
		vectors, err := c.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed batch failed: %w", err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(batch), len(vectors))
		}

		points := make([]vectorstore.Point, len(batch))
		for i, chunk := range batch {
			points[i] = vectorstore.Point{
				ID:     fmt.Sprintf("%s_%d", id, chunk.Index),
				Vector: vectors[i],
				Payload: map[string]any{
					"text": chunk.Text,
					"metadata": map[string]any{
						"file_path":   f.RelPath,
						"chunk_index": chunk.Index,
						"format":      f.Format.String(),
					},
				},
			}
		}
		if err := c.vectors.Upsert(ctx, points); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrVectorStore, err)
		}
		total += len(points)
	}
	return total, nil
}

// cleanupStalePoints drops vector points whose source file no longer exists.
// Best effort: cleanup failures never fail the run.
func (c *Coordinator) cleanupStalePoints(ctx context.Context, liveHashes map[string]bool) {
	ids, err := c.vectors.ListIDs(ctx)
	if err != nil {
		log.Printf("scroll point ids for cleanup failed: %v", err)
		return
	}
	var stale []string
	for _, id := range ids {
		hash, _, _ := strings.Cut(id, "_")
		if !liveHashes[hash] {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return
	}
	log.Printf("cleaning up %d stale points", len(stale))
	if err := c.vectors.DeletePoints(ctx, stale); err != nil {
		log.Printf("delete stale points failed: %v", err)
	}
}

func (c *Coordinator) saveSnapshot(snapshot model.IndexStatus) {
	if c.statusStore == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.statusStore.Save(ctx, snapshot); err != nil {
		log.Printf("save index status snapshot failed: %v", err)
	}
}

func cloneStatus(s model.IndexStatus) model.IndexStatus {
	out := s
	out.FailedFiles = append([]string(nil), s.FailedFiles...)
	if out.FailedFiles == nil {
		out.FailedFiles = []string{}
	}
	if s.LastIndexedAt != nil {
		t := *s.LastIndexedAt
		out.LastIndexedAt = &t
	}
	return out
}

func fileID(relPath string) string {
	sum := sha256.Sum256([]byte(relPath))
	return hex.EncodeToString(sum[:8])
}
