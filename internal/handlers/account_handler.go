package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/Tobless-scripts/Snap-Card/internal/middleware"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
	"github.com/Tobless-scripts/Snap-Card/internal/services"
)

type AccountHandler struct {
	accounts *services.AccountService
	log      *zap.Logger
}

func NewAccountHandler(accounts *services.AccountService, log *zap.Logger) *AccountHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountHandler{accounts: accounts, log: log}
}

// DeleteAccount removes the caller's profile and saved contacts and returns
// image URLs the client should delete from storage (best effort).
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), services.DefaultAccountTimeout())
	defer cancel()

	result, err := h.accounts.DeleteAccount(ctx, userID)
	if err != nil {
		h.log.Error("delete account", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to delete account"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(result))
}
