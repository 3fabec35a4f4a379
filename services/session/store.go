// Package session holds the client-side view of the backend session: a
// single state cell that starts Loading and settles to exactly one of
// Authenticated or Anonymous.
package session

import (
	"context"
	"log/slog"
	"sync"

	"scoredeck/models"
	"scoredeck/services/scoreboard"
)

// State is the session lifecycle position.
type State int

const (
	// StateLoading means the restore probe has not settled yet.
	StateLoading State = iota
	// StateAuthenticated means the backend confirmed an active session.
	StateAuthenticated
	// StateAnonymous means there is no active session.
	StateAnonymous
)

// Snapshot is a point-in-time read of the store.
type Snapshot struct {
	State State
	User  *models.User
}

// Store is the auth state cell. Writes happen one at a time; readers see
// the last settled write.
type Store struct {
	client *scoreboard.Client

	mu    sync.RWMutex
	state State
	user  *models.User
}

func NewStore(client *scoreboard.Client) *Store {
	return &Store{client: client, state: StateLoading}
}

// Snapshot returns the current session view.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{State: s.state, User: s.user}
}

// Restore probes the backend for an existing session. Any failure,
// unauthorized included, settles the store to Anonymous: absence of a
// session is an expected outcome here, not an error to surface.
func (s *Store) Restore(ctx context.Context) {
	user, err := s.client.Me(ctx)
	if err != nil {
		slog.Debug("session restore probe settled anonymous", "error", err)
		s.set(StateAnonymous, nil)
		return
	}
	s.set(StateAuthenticated, user)
}

// Login authenticates and, on success, transitions to Authenticated.
func (s *Store) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	s.set(StateAuthenticated, user)
	return user, nil
}

// Logout ends the backend session and transitions to Anonymous. The local
// state clears even if the backend call fails; the session cookie is gone
// either way from the user's point of view.
func (s *Store) Logout(ctx context.Context) error {
	err := s.client.Logout(ctx)
	s.set(StateAnonymous, nil)
	return err
}

func (s *Store) set(state State, user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.user = user
}
