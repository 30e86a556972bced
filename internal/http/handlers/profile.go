package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JeandreDegenaar/q1-profiles/internal/cache"
	"github.com/JeandreDegenaar/q1-profiles/internal/domain/user"
	"github.com/JeandreDegenaar/q1-profiles/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// UsersProfileStore is the slice of the users repo the profile routes need.
type UsersProfileStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdateByID(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error)
}

type ProfileHandler struct {
	users UsersProfileStore
	cache cache.Cache
	log   *slog.Logger
}

func NewProfileHandler(users UsersProfileStore, c cache.Cache, log *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		users: users,
		cache: c,
		log:   log,
	}
}

type UpdateProfileRequest struct {
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	DOB      user.Date `json:"dob"`
}

func cacheKey(userID string) string {
	return "profile:" + userID
}

func (h *ProfileHandler) Get(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Invalid token")
		return
	}

	cctx := ctx.Request.Context()

	if payload, hit := h.cache.Get(cctx, cacheKey(id)); hit {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", payload)
		return
	}

	u, err := h.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		h.log.Error("profile fetch failed", "err", err)
		RespondInternal(ctx)
		return
	}

	// Marshal once so the cached bytes and the response are identical.
	payload, err := json.Marshal(u.Profile())

	if err != nil {
		h.log.Error("profile marshal failed", "err", err)
		RespondInternal(ctx)
		return
	}

	h.cache.Set(cctx, cacheKey(id), payload)

	ctx.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

func (h *ProfileHandler) Update(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Invalid token")
		return
	}

	var req UpdateProfileRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(ctx, "All fields are required")
		return
	}

	if req.Username == "" || req.Email == "" || req.Phone == "" || req.DOB.IsZero() {
		RespondBadRequest(ctx, "All fields are required")
		return
	}

	phone := req.Phone

	cctx := ctx.Request.Context()

	updated, err := h.users.UpdateByID(cctx, id, user.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
		Phone:    &phone,
		DOB:      req.DOB,
	})

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrConflict):
			RespondBadRequest(ctx, "Username or email already exists")
		default:
			var fieldErr *user.FieldError

			if errors.As(err, &fieldErr) {
				RespondBadRequest(ctx, fmt.Sprintf("Field %q %s", fieldErr.Field, fieldErr.Reason))
				return
			}

			h.log.Error("profile update failed", "err", err)
			RespondMessage(ctx, http.StatusInternalServerError, "Failed to update profile")
		}
		return
	}

	h.cache.Delete(cctx, cacheKey(id))

	ctx.JSON(http.StatusOK, updated.Profile())
}
