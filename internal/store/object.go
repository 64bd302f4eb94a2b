package store

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/socialnote/apiserver/internal/storage"
)

const documentContentType = "application/json"

// ObjectBackend keeps the user document as a single object in a bucket.
type ObjectBackend struct {
	storage *storage.Storage
	key     string
}

func NewObjectBackend(s *storage.Storage, key string) *ObjectBackend {
	return &ObjectBackend{storage: s, key: key}
}

func (b *ObjectBackend) Read(ctx context.Context) ([]byte, error) {
	reader, err := b.storage.Get(ctx, b.key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (b *ObjectBackend) Write(ctx context.Context, data []byte) error {
	return b.storage.Put(ctx, b.key, bytes.NewReader(data), int64(len(data)), documentContentType)
}
