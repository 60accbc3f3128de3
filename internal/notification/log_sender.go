package notification

import (
	"context"

	"shape/pkg/logger"
)

// LogSender only records the email in the log. It is the default driver.
type LogSender struct {
	logger logger.Logger
}

func NewLogSender(logger logger.Logger) *LogSender {
	return &LogSender{logger: logger.Named("welcome_email")}
}

func (s *LogSender) Send(ctx context.Context, msg WelcomeEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Welcome email sent", map[string]interface{}{
		"user_id": msg.UserID,
		"email":   msg.Email,
		"name":    msg.Name,
	})
	return nil
}
