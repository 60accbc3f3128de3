package domain

import (
	"context"
	"strings"
	"time"
)

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the entity invariants. Field shape rules (length, email
// syntax) belong to the request schema; this only guards what storage must
// never hold.
func (u *User) Validate() error {
	if u.Name == "" {
		return &ValidationError{Field: "name", Message: "Name is required"}
	}
	if u.Email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	if !strings.Contains(u.Email, "@") {
		return &ValidationError{Field: "email", Message: "Invalid email format"}
	}
	return nil
}

// UserRepository is the persistence boundary for users. GetByID returns
// nil, nil when the user does not exist.
type UserRepository interface {
	Create(ctx context.Context, user *User) (*User, error)
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type UserService interface {
	Create(ctx context.Context, user *User) (*User, error)
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
