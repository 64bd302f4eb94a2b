package store

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/socialnote/apiserver/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (f *fakeObjects) EnsureBucket(ctx context.Context) error { return nil }

func (f *fakeObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	f.contentTypes[key] = contentType
	return nil
}

func (f *fakeObjects) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjects) Bucket() string { return "test-bucket" }

func TestObjectBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	objects := newFakeObjects()
	s := NewUserStore(NewObjectBackend(storage.NewStorage(objects), "state/users.json"))

	users, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, s.Save(ctx, sampleStore()))
	assert.Equal(t, "application/json", objects.contentTypes["state/users.json"])

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleStore(), loaded)
}
