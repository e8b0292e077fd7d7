// Package storage defines the collection store for libraries, documents and chunks.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/shoko/internal/models"
)

var (
	// ErrNotFound is returned when a library, document or chunk does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a record with an id already in use.
	ErrAlreadyExists = errors.New("already exists")
)

// Storage defines library, document and chunk persistence operations.
// Returned records are copies; mutating them does not affect the store.
type Storage interface {
	// Library operations
	CreateLibrary(ctx context.Context, input *models.LibraryInput) (*models.Library, error)
	GetLibrary(ctx context.Context, id string) (*models.Library, error)
	ListLibraries(ctx context.Context) ([]*models.Library, error)
	UpdateLibrary(ctx context.Context, id string, input *models.LibraryInput) (*models.Library, error)
	DeleteLibrary(ctx context.Context, id string) error

	// Document operations
	CreateDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, error)
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByLibrary(ctx context.Context, libraryID string) ([]*models.Document, error)
	UpdateDocument(ctx context.Context, id string, input *models.DocumentInput) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) (*models.Document, error)

	// Chunk operations
	CreateChunk(ctx context.Context, input *models.ChunkInput) (*models.Chunk, error)
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	ListChunksByDocument(ctx context.Context, docID string) ([]*models.Chunk, error)
	ListChunksByLibrary(ctx context.Context, libraryID string) ([]*models.Chunk, error)
	UpdateChunk(ctx context.Context, id string, input *models.ChunkInput) (*models.Chunk, error)
	DeleteChunk(ctx context.Context, id string) (*models.Chunk, error)

	// Stats
	CountLibraries(ctx context.Context) (int64, error)
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
