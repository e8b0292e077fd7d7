// Package models defines the library, document and chunk records and the
// request/response shapes of the indexing API.
package models

import "time"

// Library is a named collection of documents; the unit an index is built for.
type Library struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name,omitempty"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Document belongs to a library and groups chunks.
type Document struct {
	ID        string                 `json:"id"`
	LibraryID string                 `json:"library_id"`
	Title     string                 `json:"title,omitempty"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Chunk is a text fragment with its embedding. LibraryID is derived from the
// owning document.
type Chunk struct {
	ID         string                 `json:"id"`
	DocumentID string                 `json:"document_id"`
	LibraryID  string                 `json:"library_id"`
	Text       string                 `json:"text"`
	Embedding  []float32              `json:"embedding"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// LibraryInput creates or updates a library. Documents (with their chunks)
// may be supplied inline on create.
type LibraryInput struct {
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Documents []DocumentInput        `json:"documents,omitempty"`
}

// DocumentInput creates or updates a document. LibraryID is required on create
// unless the document is nested in a LibraryInput.
type DocumentInput struct {
	ID        string                 `json:"id,omitempty"`
	LibraryID string                 `json:"library_id,omitempty"`
	Title     string                 `json:"title,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Chunks    []ChunkInput           `json:"chunks,omitempty"`
}

// ChunkInput creates or updates a chunk. DocumentID is required on create
// unless the chunk is nested in a DocumentInput.
type ChunkInput struct {
	ID         string                 `json:"id,omitempty"`
	DocumentID string                 `json:"document_id,omitempty"`
	Text       string                 `json:"text"`
	Embedding  []float32              `json:"embedding"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
