package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/socialnote/apiserver/types"
)

// Backend reads and writes the serialized user collection as one document.
// Read returns ErrNotFound when nothing has been written yet.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// UserStore persists the full user collection through a Backend.
// Every mutation is a whole-document load, modify and save.
type UserStore struct {
	backend Backend

	// mu serializes Update cycles inside this process. Writers in other
	// processes sharing the backend can still overwrite each other.
	mu sync.Mutex
}

func NewUserStore(backend Backend) *UserStore {
	return &UserStore{backend: backend}
}

// Load reads the entire collection. A missing document yields an empty store.
func (s *UserStore) Load(ctx context.Context) (types.Store, error) {
	data, err := s.backend.Read(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.Store{}, nil
		}
		return nil, fmt.Errorf("%w: read: %w", ErrPersistenceFailure, err)
	}
	return Decode(data)
}

// Save replaces the persisted collection with users.
func (s *UserStore) Save(ctx context.Context, users types.Store) error {
	data, err := Encode(users)
	if err != nil {
		return err
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return fmt.Errorf("%w: write: %w", ErrPersistenceFailure, err)
	}
	return nil
}

// Update runs fn against a freshly loaded snapshot and saves the result.
// When fn fails nothing is written; when the save fails the mutated
// snapshot is dropped and the persisted state is left untouched.
// Returning ErrNoChange from fn skips the save and Update returns nil.
func (s *UserStore) Update(ctx context.Context, fn func(users types.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(users); err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		return err
	}
	return s.Save(ctx, users)
}

// FindByID looks a user up by id.
func FindByID(users types.Store, id string) (types.User, bool) {
	user, ok := users[id]
	return user, ok
}

// FindByUsername scans users in id order and returns the first match.
// Duplicate usernames are a data defect that is tolerated here, not repaired.
func FindByUsername(users types.Store, username string) (types.User, bool) {
	for _, id := range users.IDs() {
		if users[id].Username == username {
			return users[id], true
		}
	}
	return types.User{}, false
}

// Encode serializes the collection in the on-disk layout.
func Encode(users types.Store) ([]byte, error) {
	if users == nil {
		users = types.Store{}
	}
	if err := checkEncodable(users); err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrPersistenceFailure, err)
	}
	data, err := json.MarshalIndent(users, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrPersistenceFailure, err)
	}
	return data, nil
}

// checkEncodable rejects invalid UTF-8, which encoding/json would
// silently replace with U+FFFD.
func checkEncodable(users types.Store) error {
	for id, user := range users {
		fields := []string{id, user.ID, user.Username, user.Credential, user.Note}
		fields = append(fields, user.Friends...)
		for _, n := range user.Notifications {
			fields = append(fields, n.Type, n.From)
		}
		for _, field := range fields {
			if !utf8.ValidString(field) {
				return fmt.Errorf("user %q holds invalid UTF-8", id)
			}
		}
	}
	return nil
}

// Decode parses a persisted document and fills in defaults so every
// record has the full schema. Blank documents decode to an empty store.
func Decode(data []byte) (types.Store, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return types.Store{}, nil
	}

	var users types.Store
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptStore, err)
	}
	if users == nil {
		return types.Store{}, nil
	}

	for id, user := range users {
		if id == "" {
			return nil, fmt.Errorf("%w: empty user id key", ErrCorruptStore)
		}
		user.ID = id
		if user.Friends == nil {
			user.Friends = []string{}
		}
		if user.Notifications == nil {
			user.Notifications = []types.Notification{}
		}
		for i, n := range user.Notifications {
			if n.Type == "" {
				user.Notifications[i].Type = types.NotificationFriendRequest
			}
		}
		users[id] = user
	}
	return users, nil
}
