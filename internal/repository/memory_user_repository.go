package repository

import (
	"context"
	"sync"

	"shape/internal/domain"
)

// MemoryUserRepository keeps users in process memory with the same
// semantics as the SQL adapter, including email uniqueness.
type MemoryUserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]domain.User
	order  []int64
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		nextID: 1,
		users:  make(map[int64]domain.User),
	}
}

func (r *MemoryUserRepository) emailTaken(email string, exceptID int64) bool {
	for id, u := range r.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(user.Email, 0) {
		return nil, &domain.DuplicateEmailError{Email: user.Email}
	}

	ts := now()
	created := domain.User{
		ID:        r.nextID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	r.nextID++
	r.users[created.ID] = created
	r.order = append(r.order, created.ID)

	return &created, nil
}

func (r *MemoryUserRepository) List(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]domain.User, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, r.users[id])
	}
	return users, nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[user.ID]
	if !ok {
		return nil, &domain.UserNotFoundError{ID: user.ID}
	}
	if r.emailTaken(user.Email, user.ID) {
		return nil, &domain.DuplicateEmailError{Email: user.Email}
	}

	current.Name = user.Name
	current.Email = user.Email
	current.UpdatedAt = now()
	r.users[user.ID] = current

	return &current, nil
}

func (r *MemoryUserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}
