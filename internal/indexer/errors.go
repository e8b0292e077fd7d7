package indexer

import "errors"

var (
	// ErrLibraryNotFound is returned when the library does not exist in the collection store.
	ErrLibraryNotFound = errors.New("library not found")
	// ErrNotIndexed is returned when searching a library that has never been indexed.
	ErrNotIndexed = errors.New("library is not indexed")
	// ErrEmptyQuery is returned for an empty query embedding or a non-positive k.
	ErrEmptyQuery = errors.New("empty query")
	// ErrBusy is returned when a library lock could not be acquired within the lock timeout.
	ErrBusy = errors.New("library index is busy")
)
