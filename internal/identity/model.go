package identity

import "time"

// Account is a registered wallet owner. Immutable after registration.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Profile is the public view of an account.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile strips the credential material from an account.
func (a Account) Profile() Profile {
	return Profile{ID: a.ID, Name: a.Name, Email: a.Email, CreatedAt: a.CreatedAt}
}

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Credentials is a login request.
type Credentials struct {
	Email    string
	Password string
}
