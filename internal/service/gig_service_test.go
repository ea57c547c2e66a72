package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/gigmarket_server/internal/model"
	"github.com/qs3c/gigmarket_server/internal/model/dto"
	"github.com/qs3c/gigmarket_server/internal/testutil"
)

func gigRequest(title string) *dto.CreateGigRequest {
	return &dto.CreateGigRequest{
		Title:            title,
		Price:            50,
		DeliveryDays:     5,
		RevisionsAllowed: 2,
	}
}

func TestGigService_Create_RequiresSubscription(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	seller := testutil.TestUser(t, env.db)

	_, err := env.gigs.Create(seller.ID, gigRequest("logo design"))
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	testutil.TestSubscription(t, env.db, seller.ID, testutil.WithSubscriptionStatus(model.SubscriptionCancelled))
	_, err = env.gigs.Create(seller.ID, gigRequest("logo design"))
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestGigService_Create_PlanLimit(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	seller := testutil.TestUser(t, env.db)
	testutil.TestSubscription(t, env.db, seller.ID)

	for i := 0; i < 2; i++ {
		item, err := env.gigs.Create(seller.ID, gigRequest("gig"))
		require.NoError(t, err)
		assert.Equal(t, model.GigStatusActive, item.Status)
		assert.Equal(t, seller.ID, item.SellerID)
	}

	_, err := env.gigs.Create(seller.ID, gigRequest("third"))
	assert.ErrorIs(t, err, ErrGigLimitReached)
	assert.Equal(t, int64(2), testutil.Count(t, env.db, &model.Gig{}, "seller_id = ?", seller.ID))
}

func TestGigService_Create_UnlimitedPlan(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	seller := testutil.TestUser(t, env.db)
	testutil.TestSubscription(t, env.db, seller.ID, testutil.WithPlan(model.PlanTier2))

	for i := 0; i < 3; i++ {
		_, err := env.gigs.Create(seller.ID, gigRequest("gig"))
		require.NoError(t, err)
	}
}

func TestGigService_GetAndList(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	seller := testutil.TestUser(t, env.db)
	gig := testutil.TestGig(t, env.db, seller.ID)
	testutil.TestGig(t, env.db, testutil.TestUser(t, env.db).ID)

	item, err := env.gigs.Get(gig.ID)
	require.NoError(t, err)
	assert.Equal(t, gig.Title, item.Title)

	_, err = env.gigs.Get(99999)
	assert.ErrorIs(t, err, ErrGigNotFound)

	items, total, err := env.gigs.List(seller.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)
}
