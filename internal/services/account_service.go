package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type AccountService struct {
	profiles ProfileStore
	contacts ContactStore
}

func NewAccountService(profiles ProfileStore, contacts ContactStore) *AccountService {
	return &AccountService{profiles: profiles, contacts: contacts}
}

type DeleteAccountResult struct {
	// ImageURLs are storage objects the client should delete.
	ImageURLs       []string `json:"image_urls"`
	DeletedContacts int64    `json:"deleted_contacts"`
}

// DeleteAccount removes the profile and every saved contact of userID. The
// profile photo URL is returned so the client can remove it from storage.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) (*DeleteAccountResult, error) {
	out := &DeleteAccountResult{ImageURLs: []string{}}

	prof, err := s.profiles.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		if prof.PhotoURL != "" {
			out.ImageURLs = append(out.ImageURLs, prof.PhotoURL)
		}
	case errors.Is(err, ErrProfileNotFound):
	default:
		return nil, fmt.Errorf("load profile: %w", err)
	}

	// Contacts first so a failure never leaves orphans behind a deleted profile.
	n, err := s.contacts.DeleteByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("delete contacts: %w", err)
	}
	out.DeletedContacts = n

	if err := s.profiles.Delete(ctx, userID); err != nil {
		return nil, fmt.Errorf("delete profile: %w", err)
	}
	return out, nil
}

// DefaultAccountTimeout bounds account deletion in handlers.
func DefaultAccountTimeout() time.Duration { return 20 * time.Second }
