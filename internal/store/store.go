// Package store owns the collection registry, the append-only collection files,
// and the engines that answer similarity queries for each collection.
package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/vecstore/internal/models"
	"github.com/hyperjump/vecstore/internal/vector"
)

// FileSuffix is the extension of collection files in the data directory.
const FileSuffix = ".vsb"

// Store is the only entry point to collections. Create, delete and add are
// serialized with each other; queries and page reads run concurrently with
// everything except writes to the same collection.
type Store struct {
	dataDir         string
	factory         vector.Factory
	logger          *zap.Logger
	loadConcurrency int

	writeMu     sync.Mutex
	mu          sync.RWMutex
	collections map[string]*collection
}

// collection holds documents[i] for the i-th vector ingested by engine.
// engine is nil while the collection is unsized (dims == 0).
type collection struct {
	id        string
	mu        sync.RWMutex
	dims      int
	documents []*models.VectorDocument
	engine    vector.Engine
	deleted   bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for loading, saving and deleting collections.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithLoadConcurrency bounds how many collection files are decoded in parallel at startup.
func WithLoadConcurrency(n int) Option {
	return func(s *Store) { s.loadConcurrency = n }
}

// New opens the store rooted at dataDir, creating the directory if needed, and
// loads every collection file in it. A file that cannot be decoded is skipped
// with a warning so the remaining collections stay available.
func New(ctx context.Context, dataDir string, factory vector.Factory, opts ...Option) (*Store, error) {
	if factory == nil {
		return nil, fmt.Errorf("engine factory is required")
	}
	s := &Store{
		dataDir:         dataDir,
		factory:         factory,
		logger:          zap.NewNop(),
		loadConcurrency: runtime.NumCPU(),
		collections:     make(map[string]*collection),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := s.loadAll(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadAll(ctx context.Context) error {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return fmt.Errorf("failed to read data directory: %w", err)
	}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.loadConcurrency))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, FileSuffix) {
			continue
		}
		id := strings.TrimSuffix(name, FileSuffix)
		g.Go(func() error {
			start := time.Now()
			c, err := s.loadCollection(ctx, id)
			if err != nil {
				s.logger.Warn("skipping collection file", zap.String("collection", id), zap.Error(err))
				if isUnreadable(err) {
					s.quarantine(id)
				}
				return nil
			}
			s.logger.Info("collection loaded",
				zap.String("collection", id),
				zap.Int("documents", len(c.documents)),
				zap.Int("dimensions", c.dims),
				zap.Duration("took", time.Since(start)),
			)
			mu.Lock()
			s.collections[id] = c
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func (s *Store) loadCollection(ctx context.Context, id string) (*collection, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("open collection file: %w", err)
	}
	defer f.Close()
	docs, err := DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("decode collection file: %w", err)
	}
	c := &collection{id: id, documents: docs}
	if len(docs) == 0 {
		return c, nil
	}
	c.dims = len(docs[0].Vector)
	vectors := make([][]float32, len(docs))
	for i, doc := range docs {
		if len(doc.Vector) != c.dims {
			return nil, &DimensionMismatchError{CollectionID: id, Expected: c.dims, Actual: len(doc.Vector), URI: doc.URI, Index: doc.Index}
		}
		if err := checkFinite(doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		vectors[i] = doc.Vector
	}
	engine, err := s.factory(c.dims)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	if err := engine.Ingest(ctx, vectors); err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("ingest vectors: %w", err)
	}
	c.engine = engine
	return c, nil
}

// CorruptSuffix is appended to collection files that fail to load, moving
// them out of the way of a new collection with the same id.
const CorruptSuffix = ".corrupt"

func isUnreadable(err error) bool {
	return errors.Is(err, ErrTruncated) || errors.Is(err, ErrCorrupt) ||
		errors.Is(err, vector.ErrDimensionMismatch)
}

func (s *Store) quarantine(id string) {
	from := s.path(id)
	to := from + CorruptSuffix
	if err := os.Rename(from, to); err != nil {
		s.logger.Warn("could not move corrupt collection file", zap.String("collection", id), zap.Error(err))
		return
	}
	s.logger.Warn("corrupt collection file moved", zap.String("collection", id), zap.String("path", to))
}

// ValidateID rejects ids that are empty or could escape the data directory.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." || len(id) > 200 ||
		strings.ContainsAny(id, `/\`+"\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidCollectionID, id)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dataDir, id+FileSuffix)
}

func (s *Store) lookup(id string) (*collection, error) {
	s.mu.RLock()
	c, ok := s.collections[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, id)
	}
	return c, nil
}

// CreateCollection registers an empty collection. dims == 0 leaves it unsized
// until the first insert. Creating an existing id is a no-op.
func (s *Store) CreateCollection(ctx context.Context, id string, dims int) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if dims < 0 {
		return fmt.Errorf("%w: negative dimensions %d", vector.ErrInvalidArgument, dims)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.createLocked(id, dims)
}

func (s *Store) createLocked(id string, dims int) error {
	s.mu.RLock()
	_, exists := s.collections[id]
	s.mu.RUnlock()
	if exists {
		return nil
	}
	c := &collection{id: id, dims: dims}
	if dims > 0 {
		engine, err := s.factory(dims)
		if err != nil {
			return fmt.Errorf("create engine: %w", err)
		}
		c.engine = engine
	}
	if err := s.createFile(id); err != nil {
		if c.engine != nil {
			_ = c.engine.Close()
		}
		return err
	}
	s.mu.Lock()
	s.collections[id] = c
	s.mu.Unlock()
	s.logger.Debug("collection created", zap.String("collection", id), zap.Int("dimensions", dims))
	return nil
}

// createFile creates the empty collection file. A non-empty file without a
// registry entry holds records that were never loaded and is refused.
func (s *Store) createFile(id string) error {
	f, err := os.OpenFile(s.path(id), os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create collection file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("create collection file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("create collection file: %w", err)
	}
	if info.Size() > 0 {
		return fmt.Errorf("%w: %s already holds %d bytes that were not loaded",
			ErrCorrupt, filepath.Base(s.path(id)), info.Size())
	}
	return nil
}

// DeleteCollection removes the collection and its file. Deleting an unknown id is a no-op.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete collection file: %w", err)
	}
	s.mu.Lock()
	c, ok := s.collections[id]
	delete(s.collections, id)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	c.mu.Lock()
	c.deleted = true
	engine := c.engine
	c.engine = nil
	c.documents = nil
	c.mu.Unlock()
	if engine != nil {
		if err := engine.Close(); err != nil {
			s.logger.Warn("closing engine failed", zap.String("collection", id), zap.Error(err))
		}
	}
	s.logger.Info("collection deleted", zap.String("collection", id))
	return nil
}

// AddDocuments appends docs to the collection. The whole batch is validated,
// normalized and written to the collection file before any in-memory state
// changes, so a failed call leaves both the file and the collection untouched.
func (s *Store) AddDocuments(ctx context.Context, id string, docs []*models.VectorDocument) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	c, err := s.lookup(id)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	dims := c.dims
	if dims == 0 {
		dims = len(docs[0].Vector)
		if dims == 0 {
			return fmt.Errorf("%w: document uri: %s, index: %d has an empty vector",
				vector.ErrInvalidArgument, docs[0].URI, docs[0].Index)
		}
	}
	vectors := make([][]float32, len(docs))
	for i, doc := range docs {
		if len(doc.Vector) != dims {
			return &DimensionMismatchError{CollectionID: id, Expected: dims, Actual: len(doc.Vector), URI: doc.URI, Index: doc.Index}
		}
		if err := checkFinite(doc); err != nil {
			return err
		}
		vectors[i] = doc.Vector
	}
	for _, v := range vectors {
		vector.NormalizeVector(v)
	}

	engine := c.engine
	var created bool
	if engine == nil {
		engine, err = s.factory(dims)
		if err != nil {
			return fmt.Errorf("create engine: %w", err)
		}
		created = true
	}

	if err := s.appendRecords(id, docs); err != nil {
		if created {
			_ = engine.Close()
		}
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := engine.Ingest(ctx, vectors); err != nil {
		return fmt.Errorf("ingest vectors: %w", err)
	}
	if created {
		c.engine = engine
		c.dims = dims
	}
	c.documents = append(c.documents, docs...)
	return nil
}

// nonFinite returns the position of the first NaN or infinite component, or -1.
func nonFinite(v []float32) int {
	for i, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return i
		}
	}
	return -1
}

func checkFinite(doc *models.VectorDocument) error {
	if i := nonFinite(doc.Vector); i >= 0 {
		return fmt.Errorf("%w: document uri: %s, index: %d has component %d = %v",
			vector.ErrInvalidArgument, doc.URI, doc.Index, i, doc.Vector[i])
	}
	return nil
}

// appendRecords appends and fsyncs the batch. On failure the file is truncated
// back to its previous size.
func (s *Store) appendRecords(id string, docs []*models.VectorDocument) error {
	start := time.Now()
	path := s.path(id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open collection file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat collection file: %w", err)
	}
	prevSize := info.Size()

	w := bufio.NewWriterSize(f, 1<<20)
	err = EncodeDocuments(w, docs)
	if err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = f.Sync()
	}
	if err != nil {
		if terr := f.Truncate(prevSize); terr != nil {
			s.logger.Error("rolling back collection file failed", zap.String("path", path), zap.Error(terr))
		}
		_ = f.Close()
		return fmt.Errorf("write collection file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close collection file: %w", err)
	}
	s.logger.Debug("collection saved",
		zap.String("collection", id),
		zap.Int("documents", len(docs)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Query returns up to k documents most similar to probe in descending order.
// The probe is used as given; normalize it for cosine similarity.
func (s *Store) Query(ctx context.Context, id string, probe []float32, k int) ([]*models.VectorSimilarity, error) {
	c, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidK, k)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.deleted {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, id)
	}
	if c.engine == nil {
		return []*models.VectorSimilarity{}, nil
	}
	if len(probe) != c.dims {
		return nil, &DimensionMismatchError{CollectionID: id, Expected: c.dims, Actual: len(probe)}
	}
	if i := nonFinite(probe); i >= 0 {
		return nil, fmt.Errorf("%w: probe component %d is %v", vector.ErrInvalidArgument, i, probe[i])
	}
	hits, err := c.engine.Query(ctx, probe, k)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", id, err)
	}
	results := make([]*models.VectorSimilarity, len(hits))
	for i, hit := range hits {
		results[i] = &models.VectorSimilarity{
			Document:   c.documents[hit.Index],
			Similarity: hit.Similarity,
		}
	}
	return results, nil
}

// GetDocuments returns documents[offset:offset+limit] in insertion order.
// An out-of-range offset or non-positive limit yields an empty page.
func (s *Store) GetDocuments(ctx context.Context, id string, offset, limit int) ([]*models.VectorDocument, error) {
	c, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if offset < 0 || offset >= len(c.documents) || limit <= 0 {
		return []*models.VectorDocument{}, nil
	}
	end := min(offset+limit, len(c.documents))
	page := make([]*models.VectorDocument, end-offset)
	copy(page, c.documents[offset:end])
	return page, nil
}

// GetCollections lists every collection sorted by id.
func (s *Store) GetCollections(ctx context.Context) []models.CollectionInfo {
	s.mu.RLock()
	cs := make([]*collection, 0, len(s.collections))
	for _, c := range s.collections {
		cs = append(cs, c)
	}
	s.mu.RUnlock()

	infos := make([]models.CollectionInfo, 0, len(cs))
	for _, c := range cs {
		c.mu.RLock()
		infos = append(infos, models.CollectionInfo{ID: c.id, Dimensions: c.dims, Documents: len(c.documents)})
		c.mu.RUnlock()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Stats summarizes the store.
type Stats struct {
	Collections int                `json:"collections"`
	Vectors     int                `json:"vectors"`
	Engine      vector.EngineStats `json:"engine"`
}

type statsReporter interface {
	Stats() vector.EngineStats
}

// Stats returns collection and vector counts plus cumulative engine timings.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Collections: len(s.collections)}
	for _, c := range s.collections {
		c.mu.RLock()
		st.Vectors += len(c.documents)
		if r, ok := c.engine.(statsReporter); ok {
			es := r.Stats()
			st.Engine.Queries += es.Queries
			st.Engine.DotTime += es.DotTime
			st.Engine.SelectionTime += es.SelectionTime
		}
		c.mu.RUnlock()
	}
	return st
}

// DataDir returns the directory holding collection files.
func (s *Store) DataDir() string {
	return s.dataDir
}

// Close releases every engine. The store must not be used afterwards.
func (s *Store) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for id, c := range s.collections {
		c.mu.Lock()
		if c.engine != nil {
			if err := c.engine.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", id, err))
			}
			c.engine = nil
		}
		c.deleted = true
		c.mu.Unlock()
	}
	s.collections = make(map[string]*collection)
	return errors.Join(errs...)
}
