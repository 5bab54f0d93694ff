package handler

import (
	"errors"
	"net/http"

	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type UserHandler struct {
	userRepo repository.UserRepository
	hasher   auth_usecase.PasswordHasher
	clock    auth_usecase.Clock
	logger   *zap.Logger
}

func NewUserHandler(
	userRepo repository.UserRepository,
	hasher auth_usecase.PasswordHasher,
	clock auth_usecase.Clock,
	logger *zap.Logger,
) *UserHandler {
	return &UserHandler{
		userRepo: userRepo,
		hasher:   hasher,
		clock:    clock,
		logger:   logger,
	}
}

// GET /api/users/me
func (h *UserHandler) GetMe(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "UNAUTHORIZED"})
	}
	return c.JSON(http.StatusOK, newUserRead(user))
}

// PATCH /api/users/me
// emailを変えたら再検証が必要になる。
func (h *UserHandler) UpdateMe(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "UNAUTHORIZED"})
	}

	var req struct {
		Email    *string `json:"email"`
		Password *string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "INVALID_BODY"})
	}

	changed := false

	if req.Email != nil && *req.Email != user.Email {
		if err := auth_usecase.ValidateEmail(*req.Email); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "UPDATE_USER_INVALID_EMAIL"})
		}
		user.Email = *req.Email
		user.IsVerified = false
		changed = true
	}

	if req.Password != nil {
		if err := auth_usecase.ValidatePassword(*req.Password); err != nil {
			return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "UPDATE_USER_INVALID_PASSWORD"})
		}
		hashed, err := h.hasher.Hash(*req.Password)
		if err != nil {
			return h.serverError(c, err)
		}
		user.HashedPassword = hashed
		changed = true
	}

	if changed {
		user.UpdatedAt = h.clock.Now()
		if err := h.userRepo.Update(c.Request().Context(), user); err != nil {
			if errors.Is(err, repository.ErrEmailTaken) {
				return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "UPDATE_USER_EMAIL_ALREADY_EXISTS"})
			}
			return h.serverError(c, err)
		}
	}

	return c.JSON(http.StatusOK, newUserRead(user))
}

func (h *UserHandler) serverError(c echo.Context, err error) error {
	h.logger.Error("user handler error", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, DetailResponse{Detail: "INTERNAL_SERVER_ERROR"})
}
