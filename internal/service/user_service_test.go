package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lify-app/lify-backend/internal/repository"
	"github.com/lify-app/lify-backend/internal/service"
	"github.com/lify-app/lify-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_FollowAndPrivacy(t *testing.T) {
	ctx := context.Background()
	testDB := testutil.SetupTestDatabase(t)
	defer testDB.Teardown(t)

	userRepo := repository.NewUserRepository(testDB.DB)
	users := service.NewUserService(userRepo)

	alice := testutil.CreateTestUser(t, testDB.DB, "alice", false)
	bob := testutil.CreateTestUser(t, testDB.DB, "bob", false)

	updated, err := users.SetPrivacy(ctx, bob.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsPrivate)

	stored, err := users.GetUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPrivate)

	require.NoError(t, users.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, users.Follow(ctx, alice.ID, bob.ID))

	following, err := userRepo.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	following, err = userRepo.IsFollowing(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, following)

	require.NoError(t, users.Unfollow(ctx, alice.ID, bob.ID))
	following, err = userRepo.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	assert.ErrorIs(t, users.Follow(ctx, alice.ID, alice.ID), service.ErrSelfFollow)
	assert.ErrorIs(t, users.Follow(ctx, alice.ID, uuid.New()), service.ErrUserNotFound)

	_, err = users.SetPrivacy(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}
