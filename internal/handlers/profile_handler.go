package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Tobless-scripts/Snap-Card/internal/middleware"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
	"github.com/Tobless-scripts/Snap-Card/internal/services"
)

// UserLookup resolves identity-provider records. *auth.Client satisfies it.
type UserLookup interface {
	GetUser(ctx context.Context, uid string) (*fbauth.UserRecord, error)
}

// PhotoModerator screens a pending profile photo and returns its final URL.
type PhotoModerator interface {
	ModerateAndPromote(ctx context.Context, pendingPath, userID string) (string, error)
}

type ProfileHandler struct {
	profiles  services.ProfileStore
	users     UserLookup
	moderator PhotoModerator
	log       *zap.Logger
}

// NewProfileHandler wires the profile endpoints. users and moderator may be
// nil.
func NewProfileHandler(profiles services.ProfileStore, users UserLookup, moderator PhotoModerator, log *zap.Logger) *ProfileHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileHandler{profiles: profiles, users: users, moderator: moderator, log: log}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	email := middleware.GetUserEmail(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	prof, err := h.profiles.GetOrCreate(ctx, userID, email)
	if err != nil {
		h.log.Error("load profile", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(prof))
}

func (h *ProfileHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	email := middleware.GetUserEmail(r.Context())

	var req models.UpsertProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if req.PhotoURL != nil && strings.HasPrefix(*req.PhotoURL, services.PendingPrefix) {
		if h.moderator == nil {
			writeJSON(w, http.StatusServiceUnavailable, models.NewErrorResponse("Photo uploads are not enabled"))
			return
		}
		url, err := h.moderator.ModerateAndPromote(ctx, *req.PhotoURL, userID)
		if errors.Is(err, services.ErrImageRejected) {
			writeJSON(w, http.StatusUnprocessableEntity, models.NewErrorResponse("Profile photo rejected"))
			return
		}
		if err != nil {
			h.log.Error("moderate profile photo", zap.String("user_id", userID), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, models.NewErrorResponse("Photo moderation failed"))
			return
		}
		req.PhotoURL = &url
	}

	prof, err := h.profiles.Upsert(ctx, userID, email, &req)
	if err != nil {
		h.log.Error("upsert profile", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update profile"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(prof))
}

// GetPublicProfileByUserID returns the shareable part of another user's
// profile, falling back to the identity provider's record.
func (h *ProfileHandler) GetPublicProfileByUserID(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserID(r.Context()) == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	targetID := chi.URLParam(r, "userId")
	if targetID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing userId"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var pub models.PublicProfile
	prof, err := h.profiles.GetByUserID(ctx, targetID)
	switch {
	case err == nil:
		pub = models.PublicProfile{
			UserID:      prof.UserID,
			Email:       prof.Email,
			DisplayName: prof.DisplayName,
			Company:     prof.Company,
			Role:        prof.Role,
			PhotoURL:    prof.PhotoURL,
			Links:       prof.Links,
		}
	case errors.Is(err, services.ErrProfileNotFound):
		pub.UserID = targetID
	default:
		h.log.Error("load public profile", zap.String("target", targetID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}

	if pub.Email == "" || pub.DisplayName == "" || pub.PhotoURL == "" {
		h.fillFromIdentity(ctx, &pub)
	}
	if prof == nil && pub.Email == "" && pub.DisplayName == "" {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(pub))
}

// fillFromIdentity copies missing fields from the identity provider. Best
// effort.
func (h *ProfileHandler) fillFromIdentity(ctx context.Context, pub *models.PublicProfile) {
	if h.users == nil {
		return
	}
	u, err := h.users.GetUser(ctx, pub.UserID)
	if err != nil || u == nil || u.UserInfo == nil {
		return
	}
	if pub.Email == "" {
		pub.Email = u.Email
	}
	if pub.DisplayName == "" {
		pub.DisplayName = u.DisplayName
	}
	if pub.PhotoURL == "" {
		pub.PhotoURL = u.PhotoURL
	}
}
