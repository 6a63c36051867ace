// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package nspi

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Subscription is a newsletter subscription.
type Subscription struct {
	ID        string    `json:"id" yaml:"id"`
	Email     string    `json:"email" yaml:"email"`
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	Owner     string    `json:"owner" yaml:"owner"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Store is an in-memory subscription store. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	subs map[string]Subscription
	now  func() time.Time
}

// NewStore
func NewStore() *Store {
	return &Store{
		subs: make(map[string]Subscription),
		now:  time.Now,
	}
}

// Create adds a new subscription and returns it.
func (s *Store) Create(owner, email, name string) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	sub := Subscription{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.subs[sub.ID] = sub
	return sub
}

// Get returns the subscription with the given id.
func (s *Store) Get(id string) (Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	return sub, ok
}

// Update replaces the email and name of an existing subscription.
func (s *Store) Update(id, email, name string) (Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return Subscription{}, false
	}
	sub.Email = email
	sub.Name = name
	sub.UpdatedAt = s.now().UTC()
	s.subs[id] = sub
	return sub, true
}

// List returns every subscription owned by owner, oldest first.
func (s *Store) List(owner string) []Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subs := make([]Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.Owner != owner {
			continue
		}
		subs = append(subs, sub)
	}
	slices.SortFunc(subs, func(a, b Subscription) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return subs
}

// Delete removes the subscription with the given id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subs, id)
}
