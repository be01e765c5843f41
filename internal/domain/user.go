package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
)

// User is an account that can sign in to the admin dashboard
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// RefreshToken is a persisted sign-in session. Its ID doubles as the session id.
type RefreshToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Token     string    `json:"-" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
}

// Identity exposes the parts of a signed-in user the dashboard reads
type Identity interface {
	ID() string
	Email() string
}

type userIdentity struct {
	id    string
	email string
}

func (u userIdentity) ID() string    { return u.id }
func (u userIdentity) Email() string { return u.email }

// IdentityOf returns the identity view of a user
func IdentityOf(u *User) Identity {
	return userIdentity{id: u.ID.String(), email: u.Email}
}
