package services

import (
	"context"
	"fmt"
)

// ModerationActions applies an out-of-band moderation verdict to stored
// profiles.
type ModerationActions struct {
	Profiles ProfileStore
	Flags    FlagStore
}

// Approve repoints profiles still showing pendingPath at approvedURL.
func (m *ModerationActions) Approve(ctx context.Context, pendingPath, approvedURL string) error {
	if m.Profiles == nil {
		return nil
	}
	return m.Profiles.ApprovePendingProfilePhoto(ctx, pendingPath, approvedURL)
}

// Reject clears the pending photo and records a strike against userID.
func (m *ModerationActions) Reject(ctx context.Context, userID, pendingPath string) error {
	if m.Flags != nil && userID != "" {
		if _, err := m.Flags.AddStrike(ctx, userID, "profile_photo"); err != nil {
			return fmt.Errorf("add strike: %w", err)
		}
	}
	if m.Profiles == nil {
		return nil
	}
	return m.Profiles.RejectPendingProfilePhoto(ctx, pendingPath)
}
