package attempts

import "time"

// Attempt is one pending or completed login, keyed by its one-time token.
type Attempt struct {
	Token string

	// Identity, set on completion
	User  string
	Photo string

	Done        bool
	CreatedAt   time.Time
	CompletedAt time.Time
}

type Repo interface {
	Create(token string) error
	Get(token string) (Attempt, error)
	// Complete records the resolved identity and releases all held polls.
	// Completing an already-completed attempt is a no-op.
	Complete(token, user, photo string) error
	// Wait returns a channel closed when the attempt completes. Pollers
	// select on it against their hold timer.
	Wait(token string) (<-chan struct{}, error)
	Delete(token string) error
}
