package factory

import (
	"context"
	"errors"
	"fmt"

	"shape/internal/config"
	"shape/internal/domain"
	"shape/internal/notification"
	"shape/internal/repository"
	"shape/internal/service"
	"shape/pkg/database"
	"shape/pkg/logger"
	"shape/pkg/tracing"
)

type Factory interface {
	GetLogger() logger.Logger
	GetConfig() *config.Config
	GetConnectionManager() *database.ConnectionManager
	GetNotifier() *notification.Notifier

	NewUserService() domain.UserService
	Close(ctx context.Context) error
}

// AppFactory owns the process-wide infrastructure. Repositories and
// services are cheap and built per request on top of it.
type AppFactory struct {
	config            *config.Config
	logger            logger.Logger
	connectionManager *database.ConnectionManager
	notifier          *notification.Notifier
	shutdownTracing   tracing.ShutdownFunc

	// Only set for the memory dialect, shared so data outlives a request.
	memoryRepository *repository.MemoryUserRepository
}

func NewFactory(ctx context.Context, cfg *config.Config, log logger.Logger) (*AppFactory, error) {
	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	cm, err := database.NewConnectionManager(ctx, cfg.Database, log)
	if err != nil {
		shutdownTracing(ctx)
		return nil, err
	}

	sender, err := notification.NewSender(cfg.Notification, log)
	if err != nil {
		cm.Close()
		shutdownTracing(ctx)
		return nil, fmt.Errorf("failed to create %s notification sender: %w", cfg.Notification.Driver, err)
	}

	notifier := notification.NewNotifier(cfg.Notification, sender, log)
	notifier.Start()

	f := &AppFactory{
		config:            cfg,
		logger:            log,
		connectionManager: cm,
		notifier:          notifier,
		shutdownTracing:   shutdownTracing,
	}
	if cm.Dialect() == database.DialectMemory {
		f.memoryRepository = repository.NewMemoryUserRepository()
	}

	return f, nil
}

func (f *AppFactory) GetLogger() logger.Logger {
	return f.logger
}

func (f *AppFactory) GetConfig() *config.Config {
	return f.config
}

func (f *AppFactory) GetConnectionManager() *database.ConnectionManager {
	return f.connectionManager
}

func (f *AppFactory) GetNotifier() *notification.Notifier {
	return f.notifier
}

func (f *AppFactory) newUserRepository() domain.UserRepository {
	if f.memoryRepository != nil {
		return f.memoryRepository
	}
	return repository.NewUserRepository(
		f.connectionManager.GetDB(),
		f.connectionManager.Dialect(),
		f.config.Database.OperationTimeout,
		f.logger,
	)
}

// NewUserService wires a fresh repository and service over the shared pool.
func (f *AppFactory) NewUserService() domain.UserService {
	return service.NewUserService(f.newUserRepository(), f.logger)
}

// Close drains pending notifications, flushes spans and closes the pool, in
// that order.
func (f *AppFactory) Close(ctx context.Context) error {
	var errs []error

	if err := f.notifier.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("notifier: %w", err))
	}
	if err := f.shutdownTracing(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	if err := f.connectionManager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}

	return errors.Join(errs...)
}
