// Package userdir resolves user identifiers to display attributes.
package userdir

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("user not found")

// User is what the presentation side needs to show a participant.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Name returns the display name, falling back to the id.
func (u User) Name() string {
	if n := strings.TrimSpace(u.DisplayName); n != "" {
		return n
	}
	return u.ID
}

// Directory looks users up by id. Implementations return ErrNotFound for
// unknown ids.
type Directory interface {
	Lookup(ctx context.Context, userID string) (User, error)
}

// Memory is an in-process Directory for tests and local runs.
type Memory struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemory(users ...User) *Memory {
	m := &Memory{users: make(map[string]User, len(users))}
	for _, u := range users {
		m.Put(u)
	}
	return m
}

func (m *Memory) Put(u User) {
	id := strings.TrimSpace(u.ID)
	if id == "" {
		return
	}
	u.ID = id
	m.mu.Lock()
	m.users[id] = u
	m.mu.Unlock()
}

func (m *Memory) Lookup(_ context.Context, userID string) (User, error) {
	m.mu.RLock()
	u, ok := m.users[strings.TrimSpace(userID)]
	m.mu.RUnlock()
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}
