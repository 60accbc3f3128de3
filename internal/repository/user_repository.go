package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shape/internal/domain"
	"shape/pkg/database"
	"shape/pkg/logger"
	"shape/pkg/metrics"
	"shape/pkg/tracing"
)

const userEntity = "user"

// Placeholders must appear once each and in ascending order: go-sqlite3
// binds "$n" parameters by position of first appearance.
const (
	insertUserQuery = `INSERT INTO users (name, email, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
	listUsersQuery  = `SELECT id, name, email, created_at, updated_at FROM users ORDER BY id`
	getUserQuery    = `SELECT id, name, email, created_at, updated_at FROM users WHERE id = $1`
	updateUserQuery = `UPDATE users SET name = $1, email = $2, updated_at = $3 WHERE id = $4`
	deleteUserQuery = `DELETE FROM users WHERE id = $1`
)

type UserRepository struct {
	db      *sql.DB
	dialect database.Dialect
	timeout time.Duration
	logger  logger.Logger
}

// NewUserRepository builds a repository over a pooled connection. timeout
// bounds each operation including the wait for a free connection; zero
// leaves only the caller's deadline.
func NewUserRepository(db *sql.DB, dialect database.Dialect, timeout time.Duration, logger logger.Logger) *UserRepository {
	return &UserRepository{
		db:      db,
		dialect: dialect,
		timeout: timeout,
		logger:  logger.Named("user_repository"),
	}
}

func (r *UserRepository) lockClause() string {
	if r.dialect == database.DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// begin starts the span, metrics clock and operation deadline shared by all
// repository methods. The returned finish must be deferred with the final
// error.
func (r *UserRepository) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "UserRepository."+op, trace.WithAttributes(attrs...))

	cancel := context.CancelFunc(func() {})
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	}

	return ctx, func(err error) {
		cancel()
		if err != nil && !errors.Is(err, domain.ErrDuplicateEmail) && !errors.Is(err, domain.ErrUserNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		metrics.RecordDatabaseOperation(op, userEntity, err, time.Since(start))
	}
}

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (created *domain.User, err error) {
	ctx, finish := r.begin(ctx, "create")
	defer func() { finish(err) }()

	ts := now()
	result := &domain.User{
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	err = r.db.QueryRowContext(ctx, insertUserQuery, result.Name, result.Email, ts, ts).Scan(&result.ID)
	if err != nil {
		err = classify("create user", result, err)
		if !errors.Is(err, domain.ErrDuplicateEmail) {
			r.logger.ErrorContext(ctx, "Failed to create user", map[string]interface{}{"error": err.Error()})
		}
		return nil, err
	}

	return result, nil
}

func (r *UserRepository) List(ctx context.Context) (users []domain.User, err error) {
	ctx, finish := r.begin(ctx, "list")
	defer func() { finish(err) }()

	rows, err := r.db.QueryContext(ctx, listUsersQuery)
	if err != nil {
		err = classify("list users", nil, err)
		r.logger.ErrorContext(ctx, "Failed to list users", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	defer rows.Close()

	users = make([]domain.User, 0)
	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			err = classify("scan user", nil, scanErr)
			r.logger.ErrorContext(ctx, "Failed to scan user row", map[string]interface{}{"error": err.Error()})
			return nil, err
		}
		users = append(users, *user)
	}

	if err = rows.Err(); err != nil {
		err = classify("list users", nil, err)
		r.logger.ErrorContext(ctx, "Failed to iterate users", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (user *domain.User, err error) {
	ctx, finish := r.begin(ctx, "get_by_id", attribute.Int64("user.id", id))
	defer func() { finish(err) }()

	user, err = scanUser(r.db.QueryRowContext(ctx, getUserQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		err = classify("get user", nil, err)
		r.logger.ErrorContext(ctx, "Failed to get user", map[string]interface{}{"id": id, "error": err.Error()})
		return nil, err
	}

	return user, nil
}

// Update locks the row, applies name and email, and refreshes updated_at in
// one transaction so concurrent updates of the same id serialize.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) (updated *domain.User, err error) {
	ctx, finish := r.begin(ctx, "update", attribute.Int64("user.id", user.ID))
	defer func() { finish(err) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err = classify("begin update", nil, err)
		r.logger.ErrorContext(ctx, "Failed to begin transaction", map[string]interface{}{"id": user.ID, "error": err.Error()})
		return nil, err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.ErrorContext(ctx, "Failed to roll back update", map[string]interface{}{"id": user.ID, "error": rbErr.Error()})
			}
		}
	}()

	current, err := scanUser(tx.QueryRowContext(ctx, getUserQuery+r.lockClause(), user.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.UserNotFoundError{ID: user.ID}
		}
		err = classify("lock user", nil, err)
		r.logger.ErrorContext(ctx, "Failed to lock user", map[string]interface{}{"id": user.ID, "error": err.Error()})
		return nil, err
	}

	current.Name = user.Name
	current.Email = user.Email
	current.UpdatedAt = now()

	if _, err = tx.ExecContext(ctx, updateUserQuery, current.Name, current.Email, current.UpdatedAt, current.ID); err != nil {
		err = classify("update user", current, err)
		if !errors.Is(err, domain.ErrDuplicateEmail) {
			r.logger.ErrorContext(ctx, "Failed to update user", map[string]interface{}{"id": user.ID, "error": err.Error()})
		}
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = classify("commit update", current, err)
		r.logger.ErrorContext(ctx, "Failed to commit update", map[string]interface{}{"id": user.ID, "error": err.Error()})
		return nil, err
	}

	return current, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) (deleted bool, err error) {
	ctx, finish := r.begin(ctx, "delete", attribute.Int64("user.id", id))
	defer func() { finish(err) }()

	result, err := r.db.ExecContext(ctx, deleteUserQuery, id)
	if err != nil {
		err = classify("delete user", nil, err)
		r.logger.ErrorContext(ctx, "Failed to delete user", map[string]interface{}{"id": id, "error": err.Error()})
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		err = classify("delete user", nil, err)
		return false, err
	}

	return affected > 0, nil
}
