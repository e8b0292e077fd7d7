// Package indexer manages the searchable index of each library: building it
// from a snapshot of the collection store, publishing it atomically and
// serving concurrent searches against it.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shoko/internal/models"
	"github.com/hyperjump/shoko/internal/storage"
	"github.com/hyperjump/shoko/internal/vector"
)

// Index states reported by Status.
const (
	StateUnindexed = "unindexed"
	StateIndexed   = "indexed"
)

const defaultLockTimeout = 5 * time.Second

// ChunkSource is the part of the collection store the manager reads from.
type ChunkSource interface {
	GetLibrary(ctx context.Context, id string) (*models.Library, error)
	ListChunksByLibrary(ctx context.Context, libraryID string) ([]*models.Chunk, error)
}

// IndexInfo describes a published index.
type IndexInfo struct {
	LibraryID  string
	Algorithm  vector.Algorithm
	Metric     vector.Metric
	Size       int
	Dimensions int
	BuiltAt    time.Time
	BuildTime  time.Duration
}

// SearchResult is the outcome of a library search.
type SearchResult struct {
	Results   []vector.Result
	Algorithm vector.Algorithm
	Metric    vector.Metric
	Stale     bool
}

type published struct {
	index vector.Index
	info  IndexInfo
	// version of the library contents the index was built from.
	version uint64
}

type slot struct {
	lock    *rwLock
	build   *rwLock
	current atomic.Pointer[published]
	version atomic.Uint64
}

func (s *slot) stale(p *published) bool {
	return p != nil && s.version.Load() != p.version
}

// Manager owns one index slot per library.
type Manager struct {
	source      ChunkSource
	logger      *zap.Logger
	lockTimeout time.Duration
	indexOpts   []vector.Option
	now         func() time.Time

	mu    sync.RWMutex
	slots map[string]*slot
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for index and search events.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithLockTimeout bounds every wait for a library lock. Zero waits until the
// caller's context is done.
func WithLockTimeout(d time.Duration) Option {
	return func(m *Manager) { m.lockTimeout = d }
}

// WithIndexOptions passes construction options to every index the manager builds.
func WithIndexOptions(opts ...vector.Option) Option {
	return func(m *Manager) { m.indexOpts = append(m.indexOpts, opts...) }
}

// NewManager creates a manager reading library contents from source.
func NewManager(source ChunkSource, opts ...Option) *Manager {
	m := &Manager{
		source:      source,
		logger:      zap.NewNop(),
		lockTimeout: defaultLockTimeout,
		now:         time.Now,
		slots:       make(map[string]*slot),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register creates an unindexed slot for a library. Registering an existing
// library is a no-op.
func (m *Manager) Register(libraryID string) {
	m.slotFor(libraryID)
}

// Drop removes a library's slot and its published index.
func (m *Manager) Drop(libraryID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[libraryID]; ok {
		delete(m.slots, libraryID)
		m.logger.Debug("library index dropped", zap.String("library_id", libraryID))
	}
}

// MarkStale records that a library's contents changed after its index was built.
func (m *Manager) MarkStale(libraryID string) {
	if s := m.lookup(libraryID); s != nil {
		s.version.Add(1)
	}
}

func (m *Manager) lookup(libraryID string) *slot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slots[libraryID]
}

func (m *Manager) slotFor(libraryID string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[libraryID]
	if !ok {
		s = &slot{lock: newRWLock(m.lockTimeout), build: newMutex(m.lockTimeout)}
		m.slots[libraryID] = s
	}
	return s
}

func (m *Manager) owns(libraryID string, s *slot) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slots[libraryID] == s
}

func (m *Manager) libraryErr(libraryID string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("library %s: %w", libraryID, ErrLibraryNotFound)
	}
	return fmt.Errorf("library %s: %w", libraryID, err)
}

// forgetIfGone drops the slot when its library no longer exists in the source,
// so an Index call racing a library delete does not leave a slot behind.
func (m *Manager) forgetIfGone(ctx context.Context, libraryID string, s *slot) {
	if _, err := m.source.GetLibrary(context.WithoutCancel(ctx), libraryID); !errors.Is(err, storage.ErrNotFound) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slots[libraryID] == s {
		delete(m.slots, libraryID)
	}
}

// Index builds a new index of the library's current chunks and publishes it.
// The build runs without holding the library lock; publication waits for
// in-flight searches to finish. On failure the previous index stays published.
func (m *Manager) Index(ctx context.Context, libraryID string, alg vector.Algorithm, metric vector.Metric) (_ *IndexInfo, err error) {
	if _, err := m.source.GetLibrary(ctx, libraryID); err != nil {
		return nil, m.libraryErr(libraryID, err)
	}
	idx, err := vector.New(alg, metric, m.indexOpts...)
	if err != nil {
		return nil, err
	}
	s := m.slotFor(libraryID)
	defer func() {
		if err != nil {
			m.forgetIfGone(ctx, libraryID, s)
		}
	}()

	// One build per library at a time, so an older snapshot never replaces a newer one.
	if err := s.build.lock(ctx); err != nil {
		return nil, err
	}
	defer s.build.unlock()

	version := s.version.Load()
	chunks, err := m.source.ListChunksByLibrary(ctx, libraryID)
	if err != nil {
		return nil, m.libraryErr(libraryID, err)
	}
	entries := make([]vector.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vector.Entry{ID: c.ID, Embedding: c.Embedding}
	}

	start := time.Now()
	if err := idx.Build(entries); err != nil {
		m.logger.Warn("index build failed",
			zap.String("library_id", libraryID),
			zap.String("algorithm", idx.Algorithm().String()),
			zap.Error(err))
		return nil, fmt.Errorf("build %s index for library %s: %w", idx.Algorithm(), libraryID, err)
	}
	p := &published{
		index: idx,
		info: IndexInfo{
			LibraryID:  libraryID,
			Algorithm:  idx.Algorithm(),
			Metric:     idx.Metric(),
			Size:       idx.Size(),
			Dimensions: idx.Dimensions(),
			BuiltAt:    m.now(),
			BuildTime:  time.Since(start),
		},
		version: version,
	}

	if err := s.lock.lock(ctx); err != nil {
		return nil, err
	}
	defer s.lock.unlock()
	if !m.owns(libraryID, s) {
		return nil, fmt.Errorf("library %s dropped during indexing: %w", libraryID, ErrLibraryNotFound)
	}
	s.current.Store(p)

	m.logger.Info("library indexed",
		zap.String("library_id", libraryID),
		zap.String("algorithm", p.info.Algorithm.String()),
		zap.String("metric", string(p.info.Metric)),
		zap.Int("size", p.info.Size),
		zap.Int("dimensions", p.info.Dimensions),
		zap.Duration("build_time", p.info.BuildTime))
	info := p.info
	return &info, nil
}

// Search returns the k nearest chunks to query in the library's published index.
func (m *Manager) Search(ctx context.Context, libraryID string, query []float32, k int) (*SearchResult, error) {
	if len(query) == 0 || k <= 0 {
		return nil, ErrEmptyQuery
	}
	s := m.lookup(libraryID)
	if s == nil {
		if _, err := m.source.GetLibrary(ctx, libraryID); err != nil {
			return nil, m.libraryErr(libraryID, err)
		}
		return nil, fmt.Errorf("library %s: %w", libraryID, ErrNotIndexed)
	}

	if err := s.lock.rlock(ctx); err != nil {
		return nil, err
	}
	defer s.lock.runlock()
	p := s.current.Load()
	if p == nil {
		return nil, fmt.Errorf("library %s: %w", libraryID, ErrNotIndexed)
	}
	results, err := p.index.Search(query, k)
	if err != nil {
		return nil, err
	}
	stale := s.stale(p)
	m.logger.Debug("library searched",
		zap.String("library_id", libraryID),
		zap.Int("k", k),
		zap.Int("results", len(results)),
		zap.Bool("stale", stale))
	return &SearchResult{
		Results:   results,
		Algorithm: p.info.Algorithm,
		Metric:    p.info.Metric,
		Stale:     stale,
	}, nil
}

// Status reports the index currently published for a library.
func (m *Manager) Status(ctx context.Context, libraryID string) (*models.IndexStatus, error) {
	s := m.lookup(libraryID)
	if s == nil {
		if _, err := m.source.GetLibrary(ctx, libraryID); err != nil {
			return nil, m.libraryErr(libraryID, err)
		}
		return &models.IndexStatus{LibraryID: libraryID, State: StateUnindexed}, nil
	}
	p := s.current.Load()
	if p == nil {
		return &models.IndexStatus{LibraryID: libraryID, State: StateUnindexed}, nil
	}
	builtAt := p.info.BuiltAt
	return &models.IndexStatus{
		LibraryID:  libraryID,
		State:      StateIndexed,
		Algorithm:  p.info.Algorithm.String(),
		Metric:     string(p.info.Metric),
		Size:       p.info.Size,
		Dimensions: p.info.Dimensions,
		Stale:      s.stale(p),
		BuiltAt:    &builtAt,
	}, nil
}
