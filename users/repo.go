package users

// Repo is the user repository consumed by the login page handlers.
type Repo interface {
	GetByEmail(email string) (*User, error)
	Upsert(user *User) error
}
