package attempts

import (
	"sync"
	"time"

	"github.com/hal9ai/h9login/internal/errors"
)

type attemptEntry struct {
	attempt Attempt
	done    chan struct{}
}

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.RWMutex
	entries map[string]*attemptEntry
	nowTime func() time.Time
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory login attempt repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		entries: make(map[string]*attemptEntry),
		nowTime: time.Now,
	}
}

// Create registers a fresh pending attempt for a token
func (r *InMemoryRepo) Create(token string) error {
	if token == "" {
		return errors.Wrapf(errors.ErrInternal, "token is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[token]; ok {
		return errors.ErrAttemptExists
	}
	r.entries[token] = &attemptEntry{
		attempt: Attempt{Token: token, CreatedAt: r.nowTime()},
		done:    make(chan struct{}),
	}
	return nil
}

// Get returns a copy of the attempt for a token
func (r *InMemoryRepo) Get(token string) (Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[token]
	if !ok {
		return Attempt{}, errors.ErrAttemptNotFound
	}
	return entry.attempt, nil
}

// Complete marks the attempt done and unblocks every waiting poll
func (r *InMemoryRepo) Complete(token, user, photo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[token]
	if !ok {
		return errors.ErrAttemptNotFound
	}
	if entry.attempt.Done {
		return nil
	}
	entry.attempt.User = user
	entry.attempt.Photo = photo
	entry.attempt.Done = true
	entry.attempt.CompletedAt = r.nowTime()
	close(entry.done)
	return nil
}

// Wait returns the attempt's completion channel
func (r *InMemoryRepo) Wait(token string) (<-chan struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[token]
	if !ok {
		return nil, errors.ErrAttemptNotFound
	}
	return entry.done, nil
}

// Delete removes an attempt
func (r *InMemoryRepo) Delete(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, token)
	return nil
}

// Prune drops attempts created before the cutoff and returns how many were
// removed. Run periodically; tokens are one-time credentials and have no
// business outliving their login flow by much.
func (r *InMemoryRepo) Prune(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, entry := range r.entries {
		if entry.attempt.CreatedAt.Before(cutoff) {
			delete(r.entries, token)
			removed++
		}
	}
	return removed
}
