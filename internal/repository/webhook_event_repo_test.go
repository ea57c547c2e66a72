package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/internal/model"
	"github.com/qs3c/gigmarket_server/internal/testutil"
)

func TestWebhookEventRepository_DeliveryIDUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewWebhookEventRepository(db)
	e := testutil.TestWebhookEvent(t, db, "payment.failed", `{}`)

	found, err := repo.GetByDeliveryID(e.DeliveryID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, found.ID)

	dup := &model.WebhookEvent{DeliveryID: e.DeliveryID, Gateway: "razorpay", EventType: "payment.failed", Payload: `{}`}
	assert.ErrorIs(t, repo.Create(dup), gorm.ErrDuplicatedKey)
}

func TestWebhookEventRepository_RecordAttempt(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewWebhookEventRepository(db)
	e := testutil.TestWebhookEvent(t, db, "subscription.charged", `{}`, testutil.WithProcessingError("db down", 1))

	at := time.Now()
	require.NoError(t, repo.RecordAttempt(e.ID, "failed", "db down again", at))

	found, err := repo.GetByID(e.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.Attempts)
	assert.True(t, found.Failed())
	assert.Nil(t, found.ProcessedAt)

	require.NoError(t, repo.RecordAttempt(e.ID, "applied", "", at))

	found, err = repo.GetByID(e.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, found.Attempts)
	assert.False(t, found.Failed())
	assert.Equal(t, "applied", found.Outcome)
	require.NotNil(t, found.ProcessedAt)
}

func TestWebhookEventRepository_ListFailed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewWebhookEventRepository(db)
	first := testutil.TestWebhookEvent(t, db, "subscription.charged", `{}`, testutil.WithProcessingError("boom", 1))
	testutil.TestWebhookEvent(t, db, "subscription.charged", `{}`, testutil.WithProcessingError("boom", 5))
	testutil.TestWebhookEvent(t, db, "payment.captured", `{}`)
	second := testutil.TestWebhookEvent(t, db, "payment.failed", `{}`, testutil.WithProcessingError("boom", 2))

	events, err := repo.ListFailed(5, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, first.ID, events[0].ID)
	assert.Equal(t, second.ID, events[1].ID)

	events, err = repo.ListFailed(5, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
