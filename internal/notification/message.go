package notification

import (
	"context"
	"fmt"

	"shape/internal/domain"
)

type WelcomeEmail struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

func NewWelcomeEmail(user *domain.User) WelcomeEmail {
	return WelcomeEmail{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
	}
}

func (m WelcomeEmail) Subject() string {
	return "Welcome!"
}

func (m WelcomeEmail) Body() string {
	return fmt.Sprintf("<p>Hello %s,</p><p>your account has been created.</p>", m.Name)
}

// Sender delivers a single welcome email. Implementations must honour ctx.
type Sender interface {
	Send(ctx context.Context, msg WelcomeEmail) error
}
