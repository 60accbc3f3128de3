package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"shape/internal/domain"
	"shape/pkg/logger"
)

// UserServiceFactory builds the service used for a single request.
type UserServiceFactory func() domain.UserService

type WelcomeNotifier interface {
	NotifyUserCreated(ctx context.Context, user *domain.User) bool
}

type UserHandler struct {
	newService UserServiceFactory
	notifier   WelcomeNotifier
	logger     logger.Logger
}

func NewUserHandler(newService UserServiceFactory, notifier WelcomeNotifier, logger logger.Logger) *UserHandler {
	return &UserHandler{
		newService: newService,
		notifier:   notifier,
		logger:     logger.Named("user_handler"),
	}
}

func (h *UserHandler) RegisterRoutes(r *mux.Router) {
	for _, prefix := range []string{"/users", "/users/"} {
		r.HandleFunc(prefix, h.CreateUser).Methods(http.MethodPost)
		r.HandleFunc(prefix, h.ListUsers).Methods(http.MethodGet)
	}
	r.HandleFunc("/users/{id}", h.GetUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", h.UpdateUser).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}", h.DeleteUser).Methods(http.MethodDelete)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateUserRequest
	if err := decodeRequest(r, &req); err != nil {
		h.logger.WarnContext(ctx, "POST /users failed - invalid request", map[string]interface{}{"error": err})
		writeDomainError(ctx, w, h.logger, err)
		return
	}

	created, err := h.newService().Create(ctx, &domain.User{Name: req.Name, Email: req.Email})
	if err != nil {
		h.logger.ErrorContext(ctx, "POST /users failed", map[string]interface{}{"email": req.Email, "error": err})
		writeDomainError(ctx, w, h.logger, err)
		return
	}

	if h.notifier != nil {
		h.notifier.NotifyUserCreated(ctx, created)
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.newService().List(ctx)
	if err != nil {
		writeDomainError(ctx, w, h.logger, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}

	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	user, err := h.newService().GetByID(ctx, id)
	if err != nil {
		writeDomainError(ctx, w, h.logger, err)
		return
	}
	if user == nil {
		h.logger.WarnContext(ctx, "GET /users/{id} failed - not found", map[string]interface{}{"id": id})
		writeError(w, http.StatusNotFound, notFoundDetail(id))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := decodeRequest(r, &req); err != nil {
		h.logger.WarnContext(ctx, "PUT /users/{id} failed - invalid request", map[string]interface{}{"id": id, "error": err})
		writeDomainError(ctx, w, h.logger, err)
		return
	}

	svc := h.newService()

	existing, err := svc.GetByID(ctx, id)
	if err != nil {
		writeDomainError(ctx, w, h.logger, err)
		return
	}
	if existing == nil {
		h.logger.WarnContext(ctx, "PUT /users/{id} failed - not found", map[string]interface{}{"id": id})
		writeError(w, http.StatusNotFound, notFoundDetail(id))
		return
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Email != nil {
		existing.Email = *req.Email
	}

	updated, err := svc.Update(ctx, existing)
	if err != nil {
		h.logger.ErrorContext(ctx, "PUT /users/{id} failed", map[string]interface{}{"id": id, "error": err})
		writeDomainError(ctx, w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	deleted, err := h.newService().Delete(ctx, id)
	if err != nil {
		writeDomainError(ctx, w, h.logger, err)
		return
	}
	if !deleted {
		h.logger.WarnContext(ctx, "DELETE /users/{id} failed - not found", map[string]interface{}{"id": id})
		writeError(w, http.StatusNotFound, notFoundDetail(id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pathID writes a 422 and returns false when {id} is not an integer.
func (h *UserHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, []FieldError{{Field: "id", Message: "must be an integer"}})
		return 0, false
	}
	return id, true
}

func notFoundDetail(id int64) string {
	return fmt.Sprintf("User with id %d not found", id)
}
