package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	migrations "shape/internal/database"
	"shape/internal/domain"
	"shape/pkg/database"
	"shape/pkg/logger"
)

func newSQLiteRepository(t *testing.T) domain.UserRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// One shared connection keeps the in-memory database alive.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = migrations.NewMigrationService(db, database.DialectSQLite, logger.NewNop()).RunMigrations(context.Background())
	require.NoError(t, err)

	return NewUserRepository(db, database.DialectSQLite, 5*time.Second, logger.NewNop())
}

func newMemoryRepository(t *testing.T) domain.UserRepository {
	return NewMemoryUserRepository()
}

var implementations = map[string]func(t *testing.T) domain.UserRepository{
	"sqlite": newSQLiteRepository,
	"memory": newMemoryRepository,
}

func forEachRepository(t *testing.T, fn func(t *testing.T, repo domain.UserRepository)) {
	for name, factory := range implementations {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func mustCreate(t *testing.T, repo domain.UserRepository, name, email string) *domain.User {
	t.Helper()
	created, err := repo.Create(context.Background(), &domain.User{Name: name, Email: email})
	require.NoError(t, err)
	return created
}

func TestUserRepository_CreateAssignsIDAndTimestamps(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo domain.UserRepository) {
		before := time.Now().Add(-time.Second)

		created := mustCreate(t, repo, "João Silva", "joao@example.com")

		assert.NotZero(t, created.ID)
		assert.Equal(t, "João Silva", created.Name)
		assert.Equal(t, "joao@example.com", created.Email)
		assert.True(t, created.CreatedAt.After(before))
		assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	})
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo domain.UserRepository) {
		ctx := context.Background()
		first := mustCreate(t, repo, "João Silva", "joao@example.com")

		_, err := repo.Create(ctx, &domain.User{Name: "Maria Santos", Email: "joao@example.com"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
		assert.Contains(t, err.Error(), "already exists")

		users, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, first.ID, users[0].ID)
		assert.Equal(t, "João Silva", users[0].Name)
	})
}

func TestUserRepository_ListEmpty(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo domain.UserRepository) {
		users, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, users)
		assert.Empty(t, users)
	})
}

func TestUserRepository_ListInInsertionOrder(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo domain.UserRepository) {
		mustCreate(t, repo, "João Silva", "joao@example.com")
		mustCreate(t, repo, "Maria Santos", "maria@example.com")
		mustCreate(t, repo, "Pedro Costa", "pedro@example.com")

		users, err := repo.List(context.Background())
		require.NoError(t, err)
		require.Len(t, users, 3)
		assert.Equal(t, "João Silva", users[0].Name)
		assert.Equal(t, "Maria Santos", users[1].Name)
		assert.Equal(t, "Pedro Costa", users[2].Name)
	})
}

func TestUserRepository_GetByIDRoundTrip(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo domain.UserRepository) {
		created := mustCreate(t, repo, "João Silva", "joao@example.com")

		got, err := repo.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, created.Name, got.Name)
		assert.Equal(t, created.Email, got.Email)
		assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)
	})
}

func TestUserRepository_GetByIDMissingReturnsNil(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo domain.UserRepository) {
		got, err := repo.GetByID(context.Background(), 999)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestUserRepository_Update(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo domain.UserRepository) {
		ctx := context.Background()
		created := mustCreate(t, repo, "João Silva", "joao@example.com")

		updated, err := repo.Update(ctx, &domain.User{ID: created.ID, Name: "João Updated", Email: "joao.updated@example.com"})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "João Updated", updated.Name)
		assert.Equal(t, "joao.updated@example.com", updated.Email)
		assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "João Updated", got.Name)
		assert.Equal(t, "joao.updated@example.com", got.Email)
	})
}

func TestUserRepository_UpdateKeepingOwnEmail(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo domain.UserRepository) {
		created := mustCreate(t, repo, "João Silva", "joao@example.com")

		updated, err := repo.Update(context.Background(), &domain.User{ID: created.ID, Name: "João Renamed", Email: "joao@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "João Renamed", updated.Name)
		assert.Equal(t, "joao@example.com", updated.Email)
	})
}

func TestUserRepository_UpdateNotFound(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo domain.UserRepository) {
		_, err := repo.Update(context.Background(), &domain.User{ID: 999, Name: "Nobody", Email: "nobody@example.com"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		var notFound *domain.UserNotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.EqualValues(t, 999, notFound.ID)
	})
}

func TestUserRepository_UpdateDuplicateEmailRollsBack(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo domain.UserRepository) {
		ctx := context.Background()
		joao := mustCreate(t, repo, "João Silva", "joao@example.com")
		mustCreate(t, repo, "Maria Santos", "maria@example.com")

		_, err := repo.Update(ctx, &domain.User{ID: joao.ID, Name: "João Changed", Email: "maria@example.com"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

		got, err := repo.GetByID(ctx, joao.ID)
		require.NoError(t, err)
		assert.Equal(t, "João Silva", got.Name)
		assert.Equal(t, "joao@example.com", got.Email)
	})
}

func TestUserRepository_DeleteTwice(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo domain.UserRepository) {
		ctx := context.Background()
		created := mustCreate(t, repo, "João Silva", "joao@example.com")

		deleted, err := repo.Delete(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestUserRepository_ConcurrentUpdatesSerialize(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo domain.UserRepository) {
		ctx := context.Background()
		created := mustCreate(t, repo, "João Silva", "joao@example.com")

		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Update(ctx, &domain.User{ID: created.ID, Name: "Concurrent Name", Email: "joao@example.com"})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Concurrent Name", got.Name)
	})
}

func TestUserRepository_OperationTimeoutIsStorageUnavailable(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = migrations.NewMigrationService(db, database.DialectSQLite, logger.NewNop()).RunMigrations(context.Background())
	require.NoError(t, err)

	// Hold the only connection so the repository cannot acquire one.
	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	repo := NewUserRepository(db, database.DialectSQLite, 50*time.Millisecond, logger.NewNop())

	_, err = repo.List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.True(t, isUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}))
	assert.False(t, isUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}))
	assert.False(t, isUniqueViolation(errors.New("plain")))
}

func TestClassify(t *testing.T) {
	user := &domain.User{Email: "joao@example.com"}

	assert.NoError(t, classify("op", user, nil))
	assert.ErrorIs(t, classify("op", user, &pq.Error{Code: "23505"}), domain.ErrDuplicateEmail)
	assert.ErrorIs(t, classify("op", nil, context.DeadlineExceeded), domain.ErrStorageUnavailable)

	plain := errors.New("disk on fire")
	err := classify("op", nil, plain)
	assert.ErrorIs(t, err, plain)
	assert.NotErrorIs(t, err, domain.ErrStorageUnavailable)
}
