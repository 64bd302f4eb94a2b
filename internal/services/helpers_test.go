package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/socialnote/apiserver/internal/events"
	"github.com/socialnote/apiserver/internal/store"
	"github.com/socialnote/apiserver/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]events.Kind, 0, len(p.events))
	for _, e := range p.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// switchableBackend wraps a memory backend and can be told to fail writes.
type switchableBackend struct {
	*store.MemoryBackend
	failWrites bool
}

func (b *switchableBackend) Write(ctx context.Context, data []byte) error {
	if b.failWrites {
		return errors.New("disk full")
	}
	return b.MemoryBackend.Write(ctx, data)
}

type sequentialIDs struct {
	mu   sync.Mutex
	next int
}

func (g *sequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("user-%03d", g.next)
}

type fixture struct {
	users     *store.UserStore
	backend   *switchableBackend
	accounts  *UserService
	social    *SocialGraphService
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := &switchableBackend{MemoryBackend: store.NewMemoryBackend()}
	users := store.NewUserStore(backend)
	publisher := &recordingPublisher{}
	return &fixture{
		users:     users,
		backend:   backend,
		accounts:  NewUserService(users, BcryptHasher{Cost: bcrypt.MinCost}, &sequentialIDs{}, nil),
		social:    NewSocialGraphService(users, publisher, nil),
		publisher: publisher,
	}
}

func (f *fixture) register(t *testing.T, username string) string {
	t.Helper()
	id, err := f.accounts.Register(context.Background(), username, username+"-secret")
	require.NoError(t, err)
	return id
}

func (f *fixture) user(t *testing.T, id string) types.User {
	t.Helper()
	users, err := f.users.Load(context.Background())
	require.NoError(t, err)
	user, ok := users[id]
	require.True(t, ok, "user %s not found", id)
	return user
}

func (f *fixture) snapshot(t *testing.T) types.Store {
	t.Helper()
	users, err := f.users.Load(context.Background())
	require.NoError(t, err)
	return users
}

func (f *fixture) deleteUser(t *testing.T, id string) {
	t.Helper()
	err := f.users.Update(context.Background(), func(users types.Store) error {
		delete(users, id)
		return nil
	})
	require.NoError(t, err)
}
