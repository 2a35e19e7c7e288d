package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmproxy/internal/model"
	"llmproxy/internal/store"
	"llmproxy/internal/vectorstore"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	gate  chan struct{} // when set, EmbedBatch blocks until the gate closes
	err   error
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	err := f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{0.1, 0.2}
	}
	return vectors, nil
}

type fakeVectorIndex struct {
	mu        sync.Mutex
	upserted  []vectorstore.Point
	preset    []string // IDs reported by ListIDs on top of upserted points
	deleted   []string
	upsertErr error
}

func (f *fakeVectorIndex) Upsert(ctx context.Context, points []vectorstore.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, points...)
	return nil
}

func (f *fakeVectorIndex) ListIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := append([]string(nil), f.preset...)
	for _, p := range f.upserted {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (f *fakeVectorIndex) DeletePoints(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeVectorIndex) snapshot() (upserted []vectorstore.Point, deleted []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]vectorstore.Point(nil), f.upserted...), append([]string(nil), f.deleted...)
}

func newTestCoordinator(t *testing.T, embedder Embedder, vectors VectorIndex, files map[string]string) *Coordinator {
	t.Helper()
	ns, err := store.NewNamespace(t.TempDir())
	require.NoError(t, err)
	for rel, content := range files {
		require.NoError(t, ns.WriteFile(rel, []byte(content)))
	}
	c := NewCoordinator(ns, embedder, vectors, nil, CoordinatorConfig{
		IntervalMinutes: 60,
		ChunkSize:       1000,
		ChunkOverlap:    100,
		EmbedBatchSize:  4,
	})
	t.Cleanup(func() { c.Close(2 * time.Second) })
	return c
}

func waitIdle(t *testing.T, c *Coordinator) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !c.Status().IsIndexing
	}, 5*time.Second, 10*time.Millisecond)
}

func TestTriggerRunsAndRecordsTotals(t *testing.T) {
	vectors := &fakeVectorIndex{}
	c := newTestCoordinator(t, &fakeEmbedder{}, vectors, map[string]string{
		"a.txt": "alpha content",
		"b.md":  "bravo content",
	})

	require.NoError(t, c.Trigger())
	waitIdle(t, c)

	status := c.Status()
	assert.Equal(t, 2, status.TotalFiles)
	assert.Equal(t, 2, status.TotalChunks)
	assert.Empty(t, status.FailedFiles)
	assert.Empty(t, status.LastError)
	require.NotNil(t, status.LastIndexedAt)

	upserted, _ := vectors.snapshot()
	require.Len(t, upserted, 2)
	for _, p := range upserted {
		assert.Contains(t, p.ID, "_0")
		assert.Contains(t, p.Payload, "text")
	}
}

func TestTriggerSingleFlight(t *testing.T) {
	gate := make(chan struct{})
	embedder := &fakeEmbedder{gate: gate}
	c := newTestCoordinator(t, embedder, &fakeVectorIndex{}, map[string]string{
		"a.txt": "content",
	})

	require.NoError(t, c.Trigger())
	require.Eventually(t, func() bool {
		return c.Status().IsIndexing
	}, 2*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, c.Trigger(), ErrIndexingBusy)
	assert.False(t, c.TryTrigger())

	close(gate)
	waitIdle(t, c)

	// Once idle, the flag is released and a new run may start.
	assert.True(t, c.TryTrigger())
	waitIdle(t, c)
}

func TestConcurrentTriggersExactlyOneWins(t *testing.T) {
	gate := make(chan struct{})
	c := newTestCoordinator(t, &fakeEmbedder{gate: gate}, &fakeVectorIndex{}, map[string]string{
		"a.txt": "content",
	})

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan error, callers)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- c.Trigger()
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	wins, busy := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrIndexingBusy):
			busy++
		default:
			t.Fatalf("unexpected trigger error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, busy)

	close(gate)
	waitIdle(t, c)
}

func TestPerFileFailureIsolation(t *testing.T) {
	vectors := &fakeVectorIndex{}
	c := newTestCoordinator(t, &fakeEmbedder{}, vectors, map[string]string{
		"good.txt":   "fine content",
		"broken.pdf": "this is not a pdf",
	})

	require.NoError(t, c.Trigger())
	waitIdle(t, c)

	status := c.Status()
	assert.Equal(t, 1, status.TotalFiles)
	assert.Equal(t, []string{"broken.pdf"}, status.FailedFiles)
	assert.Empty(t, status.LastError)
	require.NotNil(t, status.LastIndexedAt)
}

func TestEmbedErrorIsPerFile(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedding service down")}
	c := newTestCoordinator(t, embedder, &fakeVectorIndex{}, map[string]string{
		"a.txt": "content",
	})

	require.NoError(t, c.Trigger())
	waitIdle(t, c)

	status := c.Status()
	assert.Equal(t, 0, status.TotalFiles)
	assert.Equal(t, []string{"a.txt"}, status.FailedFiles)
	assert.Empty(t, status.LastError)
}

func TestVectorStoreErrorAbortsRun(t *testing.T) {
	vectors := &fakeVectorIndex{upsertErr: errors.New("qdrant unreachable")}
	c := newTestCoordinator(t, &fakeEmbedder{}, vectors, map[string]string{
		"a.txt": "content",
	})

	require.NoError(t, c.Trigger())
	waitIdle(t, c)

	status := c.Status()
	assert.Contains(t, status.LastError, "indexing error")
	assert.Contains(t, status.LastError, "qdrant unreachable")
	assert.Equal(t, 0, status.TotalFiles)
	assert.Nil(t, status.LastIndexedAt)
}

func TestLastErrorClearedOnCleanRun(t *testing.T) {
	vectors := &fakeVectorIndex{upsertErr: errors.New("down")}
	c := newTestCoordinator(t, &fakeEmbedder{}, vectors, map[string]string{
		"a.txt": "content",
	})

	require.NoError(t, c.Trigger())
	waitIdle(t, c)
	require.NotEmpty(t, c.Status().LastError)

	vectors.mu.Lock()
	vectors.upsertErr = nil
	vectors.mu.Unlock()

	require.NoError(t, c.Trigger())
	waitIdle(t, c)
	assert.Empty(t, c.Status().LastError)
}

func TestStalePointCleanup(t *testing.T) {
	vectors := &fakeVectorIndex{preset: []string{"deadbeefdeadbeef_0", "deadbeefdeadbeef_1"}}
	c := newTestCoordinator(t, &fakeEmbedder{}, vectors, map[string]string{
		"a.txt": "content",
	})

	require.NoError(t, c.Trigger())
	waitIdle(t, c)

	_, deleted := vectors.snapshot()
	assert.ElementsMatch(t, []string{"deadbeefdeadbeef_0", "deadbeefdeadbeef_1"}, deleted)
}

func TestEmptyFileCountsAsProcessed(t *testing.T) {
	vectors := &fakeVectorIndex{}
	c := newTestCoordinator(t, &fakeEmbedder{}, vectors, map[string]string{
		"empty.txt": "   \n",
	})

	require.NoError(t, c.Trigger())
	waitIdle(t, c)

	status := c.Status()
	assert.Equal(t, 1, status.TotalFiles)
	assert.Equal(t, 0, status.TotalChunks)
	assert.Empty(t, status.FailedFiles)
}

func TestUpdateInterval(t *testing.T) {
	c := newTestCoordinator(t, &fakeEmbedder{}, &fakeVectorIndex{}, nil)

	assert.ErrorIs(t, c.UpdateInterval(0), ErrInvalidInterval)
	assert.ErrorIs(t, c.UpdateInterval(-5), ErrInvalidInterval)

	require.NoError(t, c.UpdateInterval(15))
	assert.Equal(t, 15, c.Status().AutoIndexIntervalMinutes)
}

func TestUpdateIntervalDiscardsPendingTick(t *testing.T) {
	ns, err := store.NewNamespace(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, ns.WriteFile("a.txt", []byte("content")))

	embedder := &fakeEmbedder{}
	c := NewCoordinator(ns, embedder, &fakeVectorIndex{}, nil, CoordinatorConfig{IntervalMinutes: 15})
	c.tick = 10 * time.Millisecond // 15 -> 150ms, 60 -> 600ms
	t.Cleanup(func() { c.Close(2 * time.Second) })

	c.StartScheduler()
	require.NoError(t, c.UpdateInterval(60))

	// Well past where the original 15-unit tick would have fired.
	time.Sleep(300 * time.Millisecond)
	embedder.mu.Lock()
	calls := embedder.calls
	embedder.mu.Unlock()
	assert.Zero(t, calls, "discarded tick must not start a run")

	// The rescheduled tick fires once the new interval elapses.
	require.Eventually(t, func() bool {
		embedder.mu.Lock()
		defer embedder.mu.Unlock()
		return embedder.calls > 0
	}, 3*time.Second, 10*time.Millisecond)
	waitIdle(t, c)
}

func TestStatusIsACopy(t *testing.T) {
	c := newTestCoordinator(t, &fakeEmbedder{}, &fakeVectorIndex{}, nil)

	first := c.Status()
	first.FailedFiles = append(first.FailedFiles, "mutated")
	first.AutoIndexIntervalMinutes = 999

	second := c.Status()
	assert.Empty(t, second.FailedFiles)
	assert.Equal(t, 60, second.AutoIndexIntervalMinutes)
}

type recordingStatusStore struct {
	mu    sync.Mutex
	saved []model.IndexStatus
}

func (s *recordingStatusStore) Load(ctx context.Context) (*model.IndexStatus, bool, error) {
	return nil, false, nil
}

func (s *recordingStatusStore) Save(ctx context.Context, status model.IndexStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, status)
	return nil
}

func TestSnapshotSavedAfterRun(t *testing.T) {
	ns, err := store.NewNamespace(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, ns.WriteFile("a.txt", []byte("content")))

	statusStore := &recordingStatusStore{}
	c := NewCoordinator(ns, &fakeEmbedder{}, &fakeVectorIndex{}, statusStore, CoordinatorConfig{IntervalMinutes: 60})
	t.Cleanup(func() { c.Close(2 * time.Second) })

	require.NoError(t, c.Trigger())
	waitIdle(t, c)

	statusStore.mu.Lock()
	defer statusStore.mu.Unlock()
	require.NotEmpty(t, statusStore.saved)
	last := statusStore.saved[len(statusStore.saved)-1]
	assert.False(t, last.IsIndexing)
	assert.Equal(t, 1, last.TotalFiles)
}

func TestRestoreSnapshotMergesPersistedState(t *testing.T) {
	ns, err := store.NewNamespace(t.TempDir())
	require.NoError(t, err)

	at := time.Now().UTC().Add(-time.Hour)
	persisted := &model.IndexStatus{
		IsIndexing:               true, // must not be restored
		LastIndexedAt:            &at,
		TotalFiles:               7,
		TotalChunks:              42,
		FailedFiles:              []string{"old.pdf"},
		LastError:                "previous failure",
		AutoIndexIntervalMinutes: 30,
	}
	c := NewCoordinator(ns, &fakeEmbedder{}, &fakeVectorIndex{}, &staticStatusStore{status: persisted}, CoordinatorConfig{IntervalMinutes: 60})
	t.Cleanup(func() { c.Close(2 * time.Second) })

	status := c.Status()
	assert.False(t, status.IsIndexing)
	assert.Equal(t, 7, status.TotalFiles)
	assert.Equal(t, 42, status.TotalChunks)
	assert.Equal(t, []string{"old.pdf"}, status.FailedFiles)
	assert.Equal(t, "previous failure", status.LastError)
	assert.Equal(t, 30, status.AutoIndexIntervalMinutes)
	require.NotNil(t, status.LastIndexedAt)
	assert.WithinDuration(t, at, *status.LastIndexedAt, time.Second)
}

type staticStatusStore struct {
	status *model.IndexStatus
}

func (s *staticStatusStore) Load(ctx context.Context) (*model.IndexStatus, bool, error) {
	if s.status == nil {
		return nil, false, nil
	}
	return s.status, true, nil
}

func (s *staticStatusStore) Save(ctx context.Context, status model.IndexStatus) error {
	return nil
}

func TestChunkIDsAreStablePerFile(t *testing.T) {
	vectors := &fakeVectorIndex{}
	c := newTestCoordinator(t, &fakeEmbedder{}, vectors, map[string]string{
		"a.txt": "content",
	})

	require.NoError(t, c.Trigger())
	waitIdle(t, c)
	firstRun, _ := vectors.snapshot()

	require.NoError(t, c.Trigger())
	waitIdle(t, c)
	secondRun, _ := vectors.snapshot()

	require.Len(t, firstRun, 1)
	require.Len(t, secondRun, 2)
	assert.Equal(t, firstRun[0].ID, secondRun[1].ID)
	assert.Equal(t, fmt.Sprintf("%s_0", fileID("a.txt")), firstRun[0].ID)
}
