package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Tobless-scripts/Snap-Card/internal/middleware"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
	"github.com/Tobless-scripts/Snap-Card/internal/services"
)

type ContactsHandler struct {
	contacts *services.ContactService
	log      *zap.Logger
}

func NewContactsHandler(contacts *services.ContactService, log *zap.Logger) *ContactsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContactsHandler{contacts: contacts, log: log}
}

// ListContacts returns the caller's saved contacts, de-duplicated by email.
// ?q= filters by name.
func (h *ContactsHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	q := models.ListContactsQuery{Search: strings.TrimSpace(r.URL.Query().Get("q"))}
	list, err := h.contacts.List(ctx, userID, q)
	if err != nil {
		h.log.Error("list contacts", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load contacts"))
		return
	}
	if list == nil {
		list = []models.ScannedContact{}
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}
