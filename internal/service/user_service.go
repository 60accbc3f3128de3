package service

import (
	"context"

	"shape/internal/domain"
	"shape/pkg/logger"
)

// UserService guards the entity invariants before anything reaches the
// repository. Errors from either step are returned unchanged.
type UserService struct {
	repo   domain.UserRepository
	logger logger.Logger
}

func NewUserService(repo domain.UserRepository, logger logger.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger.Named("user_service"),
	}
}

func (s *UserService) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := user.Validate(); err != nil {
		s.logger.DebugContext(ctx, "Rejected invalid user", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "User created", map[string]interface{}{"id": created.ID})
	return created, nil
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := user.Validate(); err != nil {
		s.logger.DebugContext(ctx, "Rejected invalid user update", map[string]interface{}{"id": user.ID, "error": err.Error()})
		return nil, err
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "User updated", map[string]interface{}{"id": updated.ID})
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}

	if deleted {
		s.logger.InfoContext(ctx, "User deleted", map[string]interface{}{"id": id})
	}
	return deleted, nil
}
