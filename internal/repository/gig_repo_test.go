package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/internal/model"
	"github.com/qs3c/gigmarket_server/internal/testutil"
)

func TestGigRepository_GetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewGigRepository(db)
	seller := testutil.TestUser(t, db)
	gig := testutil.TestGig(t, db, seller.ID, testutil.WithDeliveryDays(7))

	found, err := repo.GetByID(gig.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, found.DeliveryDays)

	_, err = repo.GetByID(99999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGigRepository_CountActiveBySeller(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewGigRepository(db)
	seller := testutil.TestUser(t, db)
	testutil.TestGig(t, db, seller.ID)
	testutil.TestGig(t, db, seller.ID)
	paused := testutil.TestGig(t, db, seller.ID)
	require.NoError(t, db.Model(paused).Update("status", model.GigStatusPaused).Error)

	count, err := repo.CountActiveBySeller(seller.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestGigRepository_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewGigRepository(db)
	a := testutil.TestUser(t, db)
	b := testutil.TestUser(t, db)
	testutil.TestGig(t, db, a.ID)
	testutil.TestGig(t, db, a.ID)
	testutil.TestGig(t, db, b.ID)

	_, total, err := repo.List(0, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	items, total, err := repo.List(a.ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 1)
}
