package services

import (
	"context"
	"errors"
	"strings"

	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileStore persists card profiles keyed by identity-provider UID.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	// GetOrCreate returns the profile, creating an empty one seeded with
	// email when missing.
	GetOrCreate(ctx context.Context, userID, email string) (*models.Profile, error)
	Upsert(ctx context.Context, userID, email string, req *models.UpsertProfileRequest) (*models.Profile, error)
	Delete(ctx context.Context, userID string) error
	ApprovePendingProfilePhoto(ctx context.Context, pendingPath, approvedURL string) error
	RejectPendingProfilePhoto(ctx context.Context, pendingPath string) error
}

// applyUpsert copies the fields present in req onto p.
func applyUpsert(p *models.Profile, req *models.UpsertProfileRequest) {
	if req.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Company != nil {
		p.Company = strings.TrimSpace(*req.Company)
	}
	if req.Role != nil {
		p.Role = strings.TrimSpace(*req.Role)
	}
	if req.Phone != nil {
		p.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.PhotoURL != nil {
		p.PhotoURL = strings.TrimSpace(*req.PhotoURL)
	}
	if req.Links != nil {
		p.Links = normalizeLinks(req.Links)
	}
}

// normalizeLinks lowercases platform keys, folds "x" into twitter and drops
// empty values.
func normalizeLinks(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if k == "x" {
			if _, ok := in[models.PlatformTwitter]; ok {
				continue
			}
			k = models.PlatformTwitter
		}
		out[k] = v
	}
	return out
}
