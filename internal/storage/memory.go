package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/shoko/internal/models"
)

type libraryRecord struct {
	lib  models.Library
	seq  uint64
	docs map[string]struct{}
}

type documentRecord struct {
	doc    models.Document
	seq    uint64
	chunks map[string]struct{}
}

type chunkRecord struct {
	chunk models.Chunk
	seq   uint64
}

// MemoryStorage implements Storage in process memory. All state is lost on exit.
type MemoryStorage struct {
	mu        sync.RWMutex
	libraries map[string]*libraryRecord
	documents map[string]*documentRecord
	chunks    map[string]*chunkRecord
	seq       uint64
	now       func() time.Time
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		libraries: make(map[string]*libraryRecord),
		documents: make(map[string]*documentRecord),
		chunks:    make(map[string]*chunkRecord),
		now:       time.Now,
	}
}

func (s *MemoryStorage) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// CreateLibrary inserts a library together with any nested documents and
// chunks. Either everything is inserted or nothing is.
func (s *MemoryStorage) CreateLibrary(ctx context.Context, input *models.LibraryInput) (*models.Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in := *input
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if _, ok := s.libraries[in.ID]; ok {
		return nil, fmt.Errorf("library %s: %w", in.ID, ErrAlreadyExists)
	}
	docs := make([]models.DocumentInput, len(in.Documents))
	pending := make(map[string]struct{})
	for i, d := range in.Documents {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if err := s.claimLocked(pending, "document", d.ID, s.documents[d.ID] != nil); err != nil {
			return nil, err
		}
		chunks := make([]models.ChunkInput, len(d.Chunks))
		for j, c := range d.Chunks {
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			if err := s.claimLocked(pending, "chunk", c.ID, s.chunks[c.ID] != nil); err != nil {
				return nil, err
			}
			chunks[j] = c
		}
		d.Chunks = chunks
		docs[i] = d
	}

	now := s.now()
	rec := &libraryRecord{
		lib: models.Library{
			ID:        in.ID,
			Name:      in.Name,
			Metadata:  cloneMetadata(in.Metadata),
			CreatedAt: now,
			UpdatedAt: now,
		},
		seq:  s.nextSeq(),
		docs: make(map[string]struct{}),
	}
	s.libraries[in.ID] = rec
	for i := range docs {
		s.insertDocumentLocked(rec, &docs[i], now)
	}
	return copyLibrary(&rec.lib), nil
}

func (s *MemoryStorage) claimLocked(pending map[string]struct{}, kind, id string, exists bool) error {
	key := kind + ":" + id
	if _, dup := pending[key]; dup || exists {
		return fmt.Errorf("%s %s: %w", kind, id, ErrAlreadyExists)
	}
	pending[key] = struct{}{}
	return nil
}

func (s *MemoryStorage) insertDocumentLocked(lib *libraryRecord, in *models.DocumentInput, now time.Time) *documentRecord {
	rec := &documentRecord{
		doc: models.Document{
			ID:        in.ID,
			LibraryID: lib.lib.ID,
			Title:     in.Title,
			Metadata:  cloneMetadata(in.Metadata),
			CreatedAt: now,
			UpdatedAt: now,
		},
		seq:    s.nextSeq(),
		chunks: make(map[string]struct{}),
	}
	s.documents[in.ID] = rec
	lib.docs[in.ID] = struct{}{}
	for i := range in.Chunks {
		s.insertChunkLocked(rec, &in.Chunks[i], now)
	}
	return rec
}

func (s *MemoryStorage) insertChunkLocked(doc *documentRecord, in *models.ChunkInput, now time.Time) *chunkRecord {
	rec := &chunkRecord{
		chunk: models.Chunk{
			ID:         in.ID,
			DocumentID: doc.doc.ID,
			LibraryID:  doc.doc.LibraryID,
			Text:       in.Text,
			Embedding:  slices.Clone(in.Embedding),
			Metadata:   cloneMetadata(in.Metadata),
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		seq: s.nextSeq(),
	}
	s.chunks[in.ID] = rec
	doc.chunks[in.ID] = struct{}{}
	return rec
}

// GetLibrary returns a library by ID.
func (s *MemoryStorage) GetLibrary(ctx context.Context, id string) (*models.Library, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.libraries[id]
	if !ok {
		return nil, fmt.Errorf("library %s: %w", id, ErrNotFound)
	}
	return copyLibrary(&rec.lib), nil
}

// ListLibraries returns all libraries in creation order.
func (s *MemoryStorage) ListLibraries(ctx context.Context) ([]*models.Library, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]*libraryRecord, 0, len(s.libraries))
	for _, rec := range s.libraries {
		recs = append(recs, rec)
	}
	slices.SortFunc(recs, func(a, b *libraryRecord) int { return cmp.Compare(a.seq, b.seq) })
	out := make([]*models.Library, len(recs))
	for i, rec := range recs {
		out[i] = copyLibrary(&rec.lib)
	}
	return out, nil
}

// UpdateLibrary replaces a library's name and metadata. Nested documents are ignored.
func (s *MemoryStorage) UpdateLibrary(ctx context.Context, id string, input *models.LibraryInput) (*models.Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.libraries[id]
	if !ok {
		return nil, fmt.Errorf("library %s: %w", id, ErrNotFound)
	}
	rec.lib.Name = input.Name
	rec.lib.Metadata = cloneMetadata(input.Metadata)
	rec.lib.UpdatedAt = s.now()
	return copyLibrary(&rec.lib), nil
}

// DeleteLibrary removes a library and all of its documents and chunks.
func (s *MemoryStorage) DeleteLibrary(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.libraries[id]
	if !ok {
		return fmt.Errorf("library %s: %w", id, ErrNotFound)
	}
	for docID := range rec.docs {
		s.deleteDocumentLocked(docID)
	}
	delete(s.libraries, id)
	return nil
}

// CreateDocument inserts a document, and any nested chunks, into an existing library.
func (s *MemoryStorage) CreateDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lib, ok := s.libraries[input.LibraryID]
	if !ok {
		return nil, fmt.Errorf("library %s: %w", input.LibraryID, ErrNotFound)
	}
	in := *input
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	pending := make(map[string]struct{})
	if err := s.claimLocked(pending, "document", in.ID, s.documents[in.ID] != nil); err != nil {
		return nil, err
	}
	chunks := make([]models.ChunkInput, len(in.Chunks))
	for i, c := range in.Chunks {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if err := s.claimLocked(pending, "chunk", c.ID, s.chunks[c.ID] != nil); err != nil {
			return nil, err
		}
		chunks[i] = c
	}
	in.Chunks = chunks
	rec := s.insertDocumentLocked(lib, &in, s.now())
	return copyDocument(&rec.doc), nil
}

// GetDocument returns a document by ID.
func (s *MemoryStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return copyDocument(&rec.doc), nil
}

// ListDocumentsByLibrary returns a library's documents in creation order.
func (s *MemoryStorage) ListDocumentsByLibrary(ctx context.Context, libraryID string) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lib, ok := s.libraries[libraryID]
	if !ok {
		return nil, fmt.Errorf("library %s: %w", libraryID, ErrNotFound)
	}
	recs := s.documentsLocked(lib)
	out := make([]*models.Document, len(recs))
	for i, rec := range recs {
		out[i] = copyDocument(&rec.doc)
	}
	return out, nil
}

func (s *MemoryStorage) documentsLocked(lib *libraryRecord) []*documentRecord {
	recs := make([]*documentRecord, 0, len(lib.docs))
	for id := range lib.docs {
		recs = append(recs, s.documents[id])
	}
	slices.SortFunc(recs, func(a, b *documentRecord) int { return cmp.Compare(a.seq, b.seq) })
	return recs
}

// UpdateDocument replaces a document's title and metadata. The owning library
// and nested chunks are not changed.
func (s *MemoryStorage) UpdateDocument(ctx context.Context, id string, input *models.DocumentInput) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	rec.doc.Title = input.Title
	rec.doc.Metadata = cloneMetadata(input.Metadata)
	rec.doc.UpdatedAt = s.now()
	return copyDocument(&rec.doc), nil
}

// DeleteDocument removes a document and its chunks and returns the removed document.
func (s *MemoryStorage) DeleteDocument(ctx context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	s.deleteDocumentLocked(id)
	if lib, ok := s.libraries[rec.doc.LibraryID]; ok {
		delete(lib.docs, id)
	}
	return copyDocument(&rec.doc), nil
}

func (s *MemoryStorage) deleteDocumentLocked(id string) {
	rec, ok := s.documents[id]
	if !ok {
		return
	}
	for chunkID := range rec.chunks {
		delete(s.chunks, chunkID)
	}
	delete(s.documents, id)
}

// CreateChunk inserts a chunk into an existing document.
func (s *MemoryStorage) CreateChunk(ctx context.Context, input *models.ChunkInput) (*models.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[input.DocumentID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", input.DocumentID, ErrNotFound)
	}
	in := *input
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if _, ok := s.chunks[in.ID]; ok {
		return nil, fmt.Errorf("chunk %s: %w", in.ID, ErrAlreadyExists)
	}
	rec := s.insertChunkLocked(doc, &in, s.now())
	return copyChunk(&rec.chunk), nil
}

// GetChunk returns a chunk by ID.
func (s *MemoryStorage) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.chunks[id]
	if !ok {
		return nil, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	return copyChunk(&rec.chunk), nil
}

// ListChunksByDocument returns a document's chunks in creation order.
func (s *MemoryStorage) ListChunksByDocument(ctx context.Context, docID string) ([]*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[docID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}
	return s.chunksLocked(doc, nil), nil
}

// ListChunksByLibrary returns a point-in-time copy of every chunk in a library,
// ordered by document then chunk creation.
func (s *MemoryStorage) ListChunksByLibrary(ctx context.Context, libraryID string) ([]*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lib, ok := s.libraries[libraryID]
	if !ok {
		return nil, fmt.Errorf("library %s: %w", libraryID, ErrNotFound)
	}
	var out []*models.Chunk
	for _, doc := range s.documentsLocked(lib) {
		out = s.chunksLocked(doc, out)
	}
	return out, nil
}

func (s *MemoryStorage) chunksLocked(doc *documentRecord, out []*models.Chunk) []*models.Chunk {
	recs := make([]*chunkRecord, 0, len(doc.chunks))
	for id := range doc.chunks {
		recs = append(recs, s.chunks[id])
	}
	slices.SortFunc(recs, func(a, b *chunkRecord) int { return cmp.Compare(a.seq, b.seq) })
	for _, rec := range recs {
		out = append(out, copyChunk(&rec.chunk))
	}
	return out
}

// UpdateChunk replaces a chunk's text, embedding and metadata.
func (s *MemoryStorage) UpdateChunk(ctx context.Context, id string, input *models.ChunkInput) (*models.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.chunks[id]
	if !ok {
		return nil, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	rec.chunk.Text = input.Text
	rec.chunk.Embedding = slices.Clone(input.Embedding)
	rec.chunk.Metadata = cloneMetadata(input.Metadata)
	rec.chunk.UpdatedAt = s.now()
	return copyChunk(&rec.chunk), nil
}

// DeleteChunk removes a chunk and returns it.
func (s *MemoryStorage) DeleteChunk(ctx context.Context, id string) (*models.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.chunks[id]
	if !ok {
		return nil, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	delete(s.chunks, id)
	if doc, ok := s.documents[rec.chunk.DocumentID]; ok {
		delete(doc.chunks, id)
	}
	return copyChunk(&rec.chunk), nil
}

// CountLibraries returns the number of libraries.
func (s *MemoryStorage) CountLibraries(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.libraries)), nil
}

// CountDocuments returns the number of documents across all libraries.
func (s *MemoryStorage) CountDocuments(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.documents)), nil
}

// CountChunks returns the number of chunks across all libraries.
func (s *MemoryStorage) CountChunks(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.chunks)), nil
}

// Close is a no-op for MemoryStorage.
func (s *MemoryStorage) Close() error {
	return nil
}

func copyLibrary(l *models.Library) *models.Library {
	out := *l
	out.Metadata = cloneMetadata(l.Metadata)
	return &out
}

func copyDocument(d *models.Document) *models.Document {
	out := *d
	out.Metadata = cloneMetadata(d.Metadata)
	return &out
}

func copyChunk(c *models.Chunk) *models.Chunk {
	out := *c
	out.Embedding = slices.Clone(c.Embedding)
	out.Metadata = cloneMetadata(c.Metadata)
	return &out
}

// cloneMetadata deep-copies nested maps and slices; nil becomes an empty map.
func cloneMetadata(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMetadata(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

var _ Storage = (*MemoryStorage)(nil)
