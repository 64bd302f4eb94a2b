package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/socialnote/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBackend struct {
	data     []byte
	readErr  error
	writeErr error
	writes   int
}

func (b *failingBackend) Read(ctx context.Context) ([]byte, error) {
	if b.readErr != nil {
		return nil, b.readErr
	}
	if b.data == nil {
		return nil, ErrNotFound
	}
	return b.data, nil
}

func (b *failingBackend) Write(ctx context.Context, data []byte) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	b.writes++
	b.data = data
	return nil
}

func sampleStore() types.Store {
	alice := types.NewUser("id-alice", "alice", "hash-a")
	bob := types.NewUser("id-bob", "bob", "hash-b")
	alice.Friends = []string{"id-bob"}
	bob.Friends = []string{"id-alice"}
	bob.Notifications = []types.Notification{{Type: types.NotificationFriendRequest, From: "id-carol"}}
	bob.Note = "line one\nline two"
	return types.Store{alice.ID: alice, bob.ID: bob}
}

func TestLoadMissingDocumentIsEmpty(t *testing.T) {
	s := NewUserStore(NewFileBackend(filepath.Join(t.TempDir(), "users.json")))

	users, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NotNil(t, users)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore(NewFileBackend(filepath.Join(t.TempDir(), "users.json")))

	require.NoError(t, s.Save(ctx, sampleStore()))
	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleStore(), loaded)

	require.NoError(t, s.Save(ctx, loaded))
	reloaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, loaded, reloaded)
}

func TestLoadCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id-alice": [1, 2`), 0o644))

	_, err := NewUserStore(NewFileBackend(path)).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptStore)
	assert.NotErrorIs(t, err, ErrPersistenceFailure)
}

func TestLoadWrongShapeIsCorrupt(t *testing.T) {
	_, err := Decode([]byte(`["alice", "bob"]`))
	assert.ErrorIs(t, err, ErrCorruptStore)
}

func TestLoadReadFailure(t *testing.T) {
	s := NewUserStore(&failingBackend{readErr: errors.New("permission denied")})

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.NotErrorIs(t, err, ErrCorruptStore)
}

func TestSaveWriteFailure(t *testing.T) {
	s := NewUserStore(&failingBackend{writeErr: errors.New("disk full")})

	err := s.Save(context.Background(), sampleStore())
	assert.ErrorIs(t, err, ErrPersistenceFailure)
}

func TestDecodeFillsDefaults(t *testing.T) {
	users, err := Decode([]byte(`{"u1": {"username": "alice", "credential": "x"}}`))
	require.NoError(t, err)

	alice := users["u1"]
	assert.Equal(t, "u1", alice.ID)
	assert.Equal(t, []string{}, alice.Friends)
	assert.Equal(t, []types.Notification{}, alice.Notifications)
}

func TestDecodeDefaultsUntypedNotifications(t *testing.T) {
	users, err := Decode([]byte(`{"b": {"username": "bob", "notifications": [{"from": "a"}]}}`))
	require.NoError(t, err)

	assert.Equal(t, []types.Notification{{Type: types.NotificationFriendRequest, From: "a"}}, users["b"].Notifications)
	assert.Equal(t, 0, users["b"].PendingFrom("a"))
}

func TestSaveRejectsInvalidUTF8(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{}
	s := NewUserStore(backend)
	require.NoError(t, s.Save(ctx, sampleStore()))

	for name, mutate := range map[string]func(u *types.User){
		"note":     func(u *types.User) { u.Note = "caf\xe9" },
		"username": func(u *types.User) { u.Username = "\xff" },
		"friend":   func(u *types.User) { u.Friends = append(u.Friends, "id-\xfe") },
		"from": func(u *types.User) {
			u.Notifications = append(u.Notifications, types.Notification{Type: types.NotificationFriendRequest, From: "\xc3"})
		},
	} {
		users := sampleStore()
		alice := users["id-alice"]
		mutate(&alice)
		users["id-alice"] = alice

		err := s.Save(ctx, users)
		assert.ErrorIs(t, err, ErrPersistenceFailure, name)
	}
	assert.Equal(t, 1, backend.writes)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleStore(), loaded)
}

func TestDecodeBlankAndNull(t *testing.T) {
	for _, doc := range []string{"", "  \n", "null"} {
		users, err := Decode([]byte(doc))
		require.NoError(t, err, "document %q", doc)
		assert.Empty(t, users)
	}
}

func TestUpdateSkipsSaveOnError(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{}
	s := NewUserStore(backend)
	require.NoError(t, s.Save(ctx, sampleStore()))

	boom := errors.New("boom")
	err := s.Update(ctx, func(users types.Store) error {
		delete(users, "id-alice")
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, backend.writes)

	users, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, users, "id-alice")
}

func TestUpdateNoChangeSkipsSave(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{}
	s := NewUserStore(backend)
	require.NoError(t, s.Save(ctx, sampleStore()))

	err := s.Update(ctx, func(users types.Store) error {
		return ErrNoChange
	})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.writes)
}

func TestUpdateSaveFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{}
	s := NewUserStore(backend)
	require.NoError(t, s.Save(ctx, sampleStore()))

	backend.writeErr = errors.New("disk full")
	err := s.Update(ctx, func(users types.Store) error {
		users["id-dave"] = types.NewUser("id-dave", "dave", "hash-d")
		return nil
	})
	assert.ErrorIs(t, err, ErrPersistenceFailure)

	backend.writeErr = nil
	users, err := s.Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, users, "id-dave")
}

func TestFindByUsername(t *testing.T) {
	users := sampleStore()
	dup := types.NewUser("id-aaa", "bob", "hash-dup")
	users[dup.ID] = dup

	found, ok := FindByUsername(users, "bob")
	require.True(t, ok)
	assert.Equal(t, "id-aaa", found.ID)

	_, ok = FindByUsername(users, "Bob")
	assert.False(t, ok)
}

func TestFindByID(t *testing.T) {
	users := sampleStore()

	found, ok := FindByID(users, "id-alice")
	require.True(t, ok)
	assert.Equal(t, "alice", found.Username)

	_, ok = FindByID(users, "missing")
	assert.False(t, ok)
}

func TestFileBackendLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	backend := NewFileBackend(filepath.Join(dir, "users.json"))
	ctx := context.Background()

	require.NoError(t, backend.Write(ctx, []byte(`{}`)))
	require.NoError(t, backend.Write(ctx, []byte(`{"a":{}}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "users.json", entries[0].Name())

	data, err := backend.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{}}`, string(data))
}

func TestFileBackendWriteFailure(t *testing.T) {
	backend := NewFileBackend(filepath.Join(t.TempDir(), "missing-dir", "users.json"))
	err := NewUserStore(backend).Save(context.Background(), sampleStore())
	assert.ErrorIs(t, err, ErrPersistenceFailure)
}

func TestMemoryBackend(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	_, err := backend.Read(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, backend.Write(ctx, []byte(`{}`)))
	data, err := backend.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}
