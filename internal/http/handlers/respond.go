package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The API speaks flat envelopes: {"token": "..."} on success and
// {"message": "..."} on failure. Message strings are part of the contract.

func RespondMessage(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"message": message})
}

func RespondBadRequest(ctx *gin.Context, message string) {
	RespondMessage(ctx, http.StatusBadRequest, message)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondMessage(ctx, http.StatusUnauthorized, message)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondMessage(ctx, http.StatusNotFound, message)
}

// RespondInternal leaks no internal detail; the cause is logged server-side
// by the caller.
func RespondInternal(ctx *gin.Context) {
	RespondMessage(ctx, http.StatusInternalServerError, "Server error")
}
