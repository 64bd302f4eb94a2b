package store

import "errors"

// ErrNotFound is returned by a Backend when no document has been written yet.
var ErrNotFound = errors.New("not found")

// ErrCorruptStore is returned when the persisted document is not a valid user collection.
var ErrCorruptStore = errors.New("corrupt store")

// ErrPersistenceFailure is returned when the document cannot be read or written.
var ErrPersistenceFailure = errors.New("persistence failure")

// ErrNoChange may be returned from an Update function to skip the save.
var ErrNoChange = errors.New("no change")
