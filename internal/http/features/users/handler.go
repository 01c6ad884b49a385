// Package users serves staff account administration endpoints.
package users

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tendant/healthcard-slim/internal/http/features/common"
	"github.com/tendant/healthcard-slim/internal/http/middleware"
	"github.com/tendant/healthcard-slim/internal/httputil"
	"github.com/tendant/healthcard-slim/pkg/auth"
	"github.com/tendant/healthcard-slim/pkg/domain"
	"github.com/tendant/healthcard-slim/pkg/policy"
)

// Store persists staff accounts.
type Store interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context, limit int) ([]domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// Handler handles user endpoints.
type Handler struct {
	logger         *zap.Logger
	users          Store
	passwordPolicy *auth.PasswordPolicy
	strictEmail    bool
	defaultLimit   int
}

// NewHandler creates a new users handler.
func NewHandler(logger *zap.Logger, users Store, passwordPolicy *auth.PasswordPolicy, strictEmail bool, defaultLimit int) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if passwordPolicy == nil {
		passwordPolicy = &auth.PasswordPolicy{}
	}
	return &Handler{
		logger:         logger,
		users:          users,
		passwordPolicy: passwordPolicy,
		strictEmail:    strictEmail,
		defaultLimit:   defaultLimit,
	}
}

// CreateRequest represents a staff account created by an administrator.
type CreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// RegisterRoutes registers user routes on an authenticated router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	gate := func(action policy.Action) func(http.Handler) http.Handler {
		return middleware.Authorize(policy.ResourceUsers, action, h.logger)
	}

	r.Route("/users", func(r chi.Router) {
		r.With(gate(policy.ActionList)).Get("/", h.List)
		r.With(gate(policy.ActionCreate)).Post("/", h.Create)
		r.With(gate(policy.ActionRead)).Get("/{id}", h.Get)
	})
}

// List returns staff accounts.
// GET /users?limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := common.ListLimit(w, r, h.defaultLimit)
	if !ok {
		return
	}

	users, err := h.users.List(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "list", uuid.Nil, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	httputil.JSON(w, http.StatusOK, users)
}

// Get returns one staff account.
// GET /users/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := common.PathID(w, r, domain.ErrUserNotFound)
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get", id, err)
		return
	}
	httputil.JSON(w, http.StatusOK, user)
}

// Create adds a staff account with a role and an initial password.
// POST /users
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	name := auth.SanitizeName(req.Name)
	if err := auth.ValidateStringLength("name", name, 1, 100); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := auth.ValidateEmail(req.Email, h.strictEmail); err != nil {
		httputil.WriteError(w, err)
		return
	}
	email := auth.NormalizeEmail(req.Email)
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "password is required")
		return
	}
	if err := h.passwordPolicy.ValidatePassword(req.Password); err != nil {
		httputil.WriteError(w, err)
		return
	}

	exists, err := h.users.ExistsByEmail(r.Context(), email)
	if err != nil {
		h.fail(w, r, "create", uuid.Nil, err)
		return
	}
	if exists {
		httputil.WriteError(w, domain.ErrUserAlreadyExists)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.fail(w, r, "create", uuid.Nil, err)
		return
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// The unique index still rejects a concurrent create with the same email.
	if err := h.users.Create(r.Context(), user); err != nil {
		h.fail(w, r, "create", user.ID, err)
		return
	}

	h.logger.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	httputil.JSON(w, http.StatusCreated, user)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, id uuid.UUID, err error) {
	common.LogFailure(h.logger, r, "users."+op, id, err)
	httputil.WriteError(w, err)
}
