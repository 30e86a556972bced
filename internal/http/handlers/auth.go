package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JeandreDegenaar/q1-profiles/internal/auth"
	"github.com/JeandreDegenaar/q1-profiles/internal/domain/user"
	"github.com/JeandreDegenaar/q1-profiles/internal/observability"
	"github.com/JeandreDegenaar/q1-profiles/internal/security"
	"github.com/gin-gonic/gin"
)

// UsersAuthStore is the slice of the users repo signup and login need.
type UsersAuthStore interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (user.User, error)
	Create(ctx context.Context, n user.NewUser) (user.User, error)
}

type AuthHandler struct {
	users   UsersAuthStore
	hasher  *security.Hasher
	jwt     *auth.Manager
	metrics *observability.Prom
	log     *slog.Logger
}

func NewAuthHandler(users UsersAuthStore, hasher *security.Hasher, jwtManager *auth.Manager, metrics *observability.Prom, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:   users,
		hasher:  hasher,
		jwt:     jwtManager,
		metrics: metrics,
		log:     log,
	}
}

type SignupRequest struct {
	Username string    `json:"username" binding:"required,uname"`
	Password string    `json:"password" binding:"required"`
	Email    string    `json:"email" binding:"required,email"`
	Phone    *string   `json:"phone" binding:"omitempty,len=10,numeric"`
	DOB      user.Date `json:"dob" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignupRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx := ctx.Request.Context()

	// Pre-check either field; the users table constraints close the race
	// between concurrent signups.
	existing, err := h.users.GetByUsernameOrEmail(cctx, req.Username, req.Email)

	if err == nil && existing.ID != "" {
		h.metrics.CountAuth("signup", "rejected")
		RespondBadRequest(ctx, "Username or email already exists")
		return
	}

	if err != nil && !errors.Is(err, user.ErrNotFound) {
		h.log.Error("signup conflict check failed", "err", err)
		h.metrics.CountAuth("signup", "error")
		RespondInternal(ctx)
		return
	}

	hash, err := h.hasher.Hash(req.Password)

	if err != nil {
		h.log.Error("signup hash failed", "err", err)
		h.metrics.CountAuth("signup", "error")
		RespondInternal(ctx)
		return
	}

	u, err := h.users.Create(cctx, user.NewUser{
		Username:     req.Username,
		PasswordHash: hash,
		Email:        req.Email,
		Phone:        req.Phone,
		DOB:          req.DOB,
	})

	if err != nil {
		if errors.Is(err, user.ErrConflict) {
			h.metrics.CountAuth("signup", "rejected")
			RespondBadRequest(ctx, "Username or email already exists")
			return
		}

		var fieldErr *user.FieldError

		if errors.As(err, &fieldErr) {
			h.metrics.CountAuth("signup", "rejected")
			RespondBadRequest(ctx, fmt.Sprintf("Field %q %s", fieldErr.Field, fieldErr.Reason))
			return
		}

		h.log.Error("signup create failed", "err", err)
		h.metrics.CountAuth("signup", "error")
		RespondInternal(ctx)
		return
	}

	token, err := h.jwt.Generate(u.ID)

	if err != nil {
		h.log.Error("signup token generation failed", "err", err)
		h.metrics.CountAuth("signup", "error")
		RespondInternal(ctx)
		return
	}

	h.metrics.CountAuth("signup", "ok")
	ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx := ctx.Request.Context()

	// Unknown username and wrong password must be indistinguishable to the
	// caller.
	foundUser, err := h.users.GetByUsername(cctx, req.Username)

	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			h.log.Error("login lookup failed", "err", err)
			h.metrics.CountAuth("login", "error")
			RespondInternal(ctx)
			return
		}

		h.metrics.CountAuth("login", "rejected")
		RespondUnauthorized(ctx, "Invalid username or password")
		return
	}

	err = h.hasher.Check(foundUser.PasswordHash, req.Password)

	if err != nil {
		h.metrics.CountAuth("login", "rejected")
		RespondUnauthorized(ctx, "Invalid username or password")
		return
	}

	token, err := h.jwt.Generate(foundUser.ID)

	if err != nil {
		h.log.Error("login token generation failed", "err", err)
		h.metrics.CountAuth("login", "error")
		RespondInternal(ctx)
		return
	}

	h.metrics.CountAuth("login", "ok")
	ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}
