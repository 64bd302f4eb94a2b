package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/socialnote/apiserver/internal/store"
	"github.com/socialnote/apiserver/types"
	"go.uber.org/zap"
)

const maxIDAttempts = 5

// UserStore defines persistence operations over the whole user collection.
type UserStore interface {
	Load(ctx context.Context) (types.Store, error)
	Update(ctx context.Context, fn func(users types.Store) error) error
}

// UserService encapsulates account and profile use-cases.
type UserService struct {
	users  UserStore
	hasher PasswordHasher
	ids    IDGenerator
	log    *zap.Logger
}

func NewUserService(users UserStore, hasher PasswordHasher, ids IDGenerator, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{
		users:  users,
		hasher: hasher,
		ids:    ids,
		log:    log.Named("users"),
	}
}

// CheckPasswordConfirmation rejects a registration whose two password
// entries differ.
func CheckPasswordConfirmation(password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

// Register creates an account and returns its new id.
func (s *UserService) Register(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if !utf8.ValidString(username) {
		return "", fmt.Errorf("%w: username is not valid UTF-8", ErrInvalidInput)
	}

	credential, err := s.hasher.Hash(password)
	if err != nil {
		return "", err
	}

	var id string
	err = s.users.Update(ctx, func(users types.Store) error {
		if _, taken := store.FindByUsername(users, username); taken {
			return ErrUsernameTaken
		}
		newID, idErr := s.freshID(users)
		if idErr != nil {
			return idErr
		}
		users[newID] = types.NewUser(newID, username, credential)
		id = newID
		return nil
	})
	if err != nil {
		logFailure(s.log, "register", err, zap.String("username", username))
		return "", err
	}

	s.log.Info("user registered", zap.String("user_id", id), zap.String("username", username))
	return id, nil
}

func (s *UserService) freshID(users types.Store) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.ids.NewID()
		if _, exists := users[id]; !exists && id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique user id after %d attempts", maxIDAttempts)
}

// Authenticate verifies a username/password pair and returns the user id.
// Unknown usernames and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (string, error) {
	users, err := s.users.Load(ctx)
	if err != nil {
		logFailure(s.log, "authenticate", err)
		return "", err
	}

	user, ok := store.FindByUsername(users, username)
	if !ok || !s.hasher.Verify(password, user.Credential) {
		s.log.Debug("authentication failed", zap.String("username", username))
		return "", ErrInvalidCredentials
	}
	return user.ID, nil
}

func (s *UserService) GetProfile(ctx context.Context, id string) (types.User, error) {
	users, err := s.users.Load(ctx)
	if err != nil {
		logFailure(s.log, "get_profile", err, zap.String("user_id", id))
		return types.User{}, err
	}
	user, ok := store.FindByID(users, id)
	if !ok {
		return types.User{}, ErrUnknownUser
	}
	return user, nil
}

// SetNote replaces the user's note.
func (s *UserService) SetNote(ctx context.Context, id, text string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: note is not valid UTF-8", ErrInvalidInput)
	}
	err := s.users.Update(ctx, func(users types.Store) error {
		user, ok := store.FindByID(users, id)
		if !ok {
			return ErrUnknownUser
		}
		user.Note = text
		users[id] = user
		return nil
	})
	if err != nil {
		logFailure(s.log, "set_note", err, zap.String("user_id", id))
		return err
	}
	return nil
}

// ListFriends resolves the user's friend ids. Ids that no longer resolve
// are skipped.
func (s *UserService) ListFriends(ctx context.Context, id string) ([]types.User, error) {
	users, err := s.users.Load(ctx)
	if err != nil {
		logFailure(s.log, "list_friends", err, zap.String("user_id", id))
		return nil, err
	}
	user, ok := store.FindByID(users, id)
	if !ok {
		return nil, ErrUnknownUser
	}

	friends := make([]types.User, 0, len(user.Friends))
	for _, friendID := range user.Friends {
		friend, ok := store.FindByID(users, friendID)
		if !ok {
			s.log.Debug("skipping dangling friend", zap.String("user_id", id), zap.String("friend_id", friendID))
			continue
		}
		friends = append(friends, friend)
	}
	return friends, nil
}
