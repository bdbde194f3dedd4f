package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

type mockObjects struct {
	mock.Mock
}

func (m *mockObjects) Promote(ctx context.Context, from, to, token string) error {
	return m.Called(ctx, from, to, token).Error(0)
}

func (m *mockObjects) Delete(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func detectorReturning(r *SafeSearchResult, err error) Detector {
	return func(context.Context, string) (*SafeSearchResult, error) { return r, err }
}

func TestModerate_PassesThroughApprovedPaths(t *testing.T) {
	objs := new(mockObjects)
	m := NewModerationServiceWith(objs, detectorReturning(nil, errors.New("must not run")), "b", nil, nil)

	got, err := m.ModerateAndPromote(context.Background(), "https://cdn/me.jpg", "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/me.jpg", got)
}

func TestModerate_PromotesSafeImage(t *testing.T) {
	objs := new(mockObjects)
	objs.On("Promote", mock.Anything, "pending/u1/me.jpg", "u1/me.jpg", mock.AnythingOfType("string")).Return(nil)
	m := NewModerationServiceWith(objs, detectorReturning(&SafeSearchResult{Adult: "UNLIKELY"}, nil), "snap-bucket", nil, nil)

	got, err := m.ModerateAndPromote(context.Background(), "pending/u1/me.jpg", "u1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "https://firebasestorage.googleapis.com/v0/b/snap-bucket/o/u1%2Fme.jpg?alt=media&token="), got)
	objs.AssertExpectations(t)
}

func TestModerate_RejectsUnsafeImage(t *testing.T) {
	objs := new(mockObjects)
	objs.On("Delete", mock.Anything, "pending/u1/bad.jpg").Return(nil)
	flags := NewMemoryUserFlagService()
	m := NewModerationServiceWith(objs, detectorReturning(&SafeSearchResult{Racy: "VERY_LIKELY"}, nil), "b", flags, nil)

	_, err := m.ModerateAndPromote(context.Background(), "pending/u1/bad.jpg", "u1")
	assert.ErrorIs(t, err, ErrImageRejected)
	objs.AssertExpectations(t)

	f, _ := flags.AddStrike(context.Background(), "u1", "recount")
	assert.Equal(t, 2, f.Strikes)
}

func TestModerate_DetectorFailure(t *testing.T) {
	m := NewModerationServiceWith(new(mockObjects), detectorReturning(nil, errors.New("quota")), "b", nil, nil)
	_, err := m.ModerateAndPromote(context.Background(), "pending/x.jpg", "u1")
	assert.ErrorContains(t, err, "quota")
}

func TestSafeSearchResult_IsUnsafe(t *testing.T) {
	assert.False(t, (&SafeSearchResult{Adult: "POSSIBLE", Spoof: "VERY_LIKELY"}).IsUnsafe())
	assert.True(t, (&SafeSearchResult{Violence: "LIKELY"}).IsUnsafe())
}

func TestModerationActions(t *testing.T) {
	profiles := NewMemoryProfileService()
	flags := NewMemoryUserFlagService()
	ctx := context.Background()
	_, err := profiles.Upsert(ctx, "u1", "", &models.UpsertProfileRequest{PhotoURL: strPtr("pending/u1/a.jpg")})
	require.NoError(t, err)

	actions := &ModerationActions{Profiles: profiles, Flags: flags}
	require.NoError(t, actions.Reject(ctx, "u1", "pending/u1/a.jpg"))

	p, _ := profiles.GetByUserID(ctx, "u1")
	assert.Empty(t, p.PhotoURL)
	f, _ := flags.AddStrike(ctx, "u1", "recount")
	assert.Equal(t, 2, f.Strikes)
	assert.Equal(t, "recount", f.LastReason)
}
