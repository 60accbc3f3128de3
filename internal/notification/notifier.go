package notification

import (
	"context"
	"fmt"
	"io"

	"shape/internal/concurrent"
	"shape/internal/config"
	"shape/internal/domain"
	"shape/pkg/circuitbreaker"
	"shape/pkg/logger"
	"shape/pkg/metrics"
)

const (
	OutcomeSent     = "sent"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// NewSender builds the sender selected by NOTIFY_DRIVER. Senders that
// leave the process sit behind a circuit breaker.
func NewSender(cfg config.NotificationConfig, logger logger.Logger) (Sender, error) {
	var sender Sender

	switch cfg.Driver {
	case config.NotifyDriverLog, "":
		return NewLogSender(logger), nil
	case config.NotifyDriverSMTP:
		s, err := NewSMTPSender(cfg.SMTP)
		if err != nil {
			return nil, err
		}
		sender = s
	case config.NotifyDriverRedis:
		s, err := NewRedisSender(cfg.Redis)
		if err != nil {
			return nil, err
		}
		sender = s
	default:
		return nil, fmt.Errorf("unknown notify driver %q", cfg.Driver)
	}

	return NewBreakerSender(sender, circuitbreaker.Settings{
		Name:             cfg.Driver + "_sender",
		FailureThreshold: cfg.BreakerFailures,
		OpenTimeout:      cfg.BreakerTimeout,
	}, logger), nil
}

// Notifier sends welcome emails in the background. Callers never wait on
// delivery and never see its errors.
type Notifier struct {
	driver string
	sender Sender
	pool   *concurrent.WorkerPool[WelcomeEmail]
	logger logger.Logger
}

func NewNotifier(cfg config.NotificationConfig, sender Sender, logger logger.Logger) *Notifier {
	n := &Notifier{
		driver: cfg.Driver,
		sender: sender,
		logger: logger.Named("notifier"),
	}
	if n.driver == "" {
		n.driver = config.NotifyDriverLog
	}
	n.pool = concurrent.NewWorkerPool[WelcomeEmail]("welcome_email", cfg.Workers, cfg.QueueSize, cfg.SendTimeout, n.deliver, logger)
	return n
}

func (n *Notifier) Start() {
	n.pool.Start()
}

func (n *Notifier) deliver(ctx context.Context, msg WelcomeEmail) error {
	n.logger.Info("Starting welcome email task", map[string]interface{}{
		"email": msg.Email,
		"name":  msg.Name,
	})

	if err := n.sender.Send(ctx, msg); err != nil {
		metrics.RecordNotification(n.driver, OutcomeFailed)
		n.logger.Error("Failed to send welcome email", map[string]interface{}{
			"email": msg.Email,
			"error": err,
		})
		return err
	}

	metrics.RecordNotification(n.driver, OutcomeSent)
	n.logger.Info("Welcome email sent successfully", map[string]interface{}{"email": msg.Email})
	return nil
}

// NotifyUserCreated queues a welcome email for user. It reports whether the
// message was accepted; a full queue drops it.
func (n *Notifier) NotifyUserCreated(ctx context.Context, user *domain.User) bool {
	if user == nil {
		return false
	}

	if !n.pool.Submit(NewWelcomeEmail(user)) {
		metrics.RecordNotification(n.driver, OutcomeRejected)
		n.logger.WarnContext(ctx, "Welcome email dropped", map[string]interface{}{
			"user_id": user.ID,
			"email":   user.Email,
		})
		return false
	}
	return true
}

func (n *Notifier) Stats() concurrent.Stats {
	return n.pool.GetStats()
}

// Stop drains queued emails and releases the sender.
func (n *Notifier) Stop(ctx context.Context) error {
	err := n.pool.Stop(ctx)

	if closer, ok := n.sender.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
