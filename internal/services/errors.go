package services

import (
	"errors"

	"github.com/socialnote/apiserver/internal/store"
	"go.uber.org/zap"
)

var (
	ErrUnknownUser        = errors.New("unknown user")
	ErrSelfRequest        = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends     = errors.New("already friends")
	ErrDuplicateRequest   = errors.New("friend request already pending")
	ErrNoSuchRequest      = errors.New("no such friend request")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPasswordMismatch   = errors.New("passwords do not match")
)

// IsStoreFailure reports whether err comes from the environment (a corrupt
// or unwritable store) rather than from the caller's input.
func IsStoreFailure(err error) bool {
	return errors.Is(err, store.ErrCorruptStore) || errors.Is(err, store.ErrPersistenceFailure)
}

// logFailure logs store failures at error level and everything else at debug.
func logFailure(log *zap.Logger, op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	if IsStoreFailure(err) {
		log.Error("store failure", fields...)
		return
	}
	log.Debug("operation rejected", fields...)
}
