package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SubscriptionCharged(t *testing.T) {
	raw := []byte(`{"event":"subscription.charged","payload":{"subscription":{"entity":{"id":"sub_1","plan_id":"plan_yearly"}},"payment":{"entity":{"id":"pay_1","amount":9900,"status":"captured"}}}}`)

	ev, err := Parse(raw)
	require.NoError(t, err)

	charged, ok := ev.(SubscriptionCharged)
	require.True(t, ok)
	assert.Equal(t, EventSubscriptionCharged, charged.Type())
	assert.Equal(t, "sub_1", charged.SubscriptionID)
	assert.Equal(t, "plan_yearly", charged.PlanID)
	assert.Equal(t, "pay_1", charged.Payment.ID)
	assert.Equal(t, int64(9900), charged.Payment.AmountMinor)
	assert.InDelta(t, 99.00, charged.Payment.Amount(), 0.0001)
	assert.True(t, charged.Payment.Captured())
	assert.Equal(t, raw, charged.Raw())
}

func TestParse_SubscriptionLifecycle(t *testing.T) {
	tests := []struct {
		event string
		check func(t *testing.T, ev Event)
	}{
		{EventSubscriptionCancelled, func(t *testing.T, ev Event) {
			e, ok := ev.(SubscriptionCancelled)
			require.True(t, ok)
			assert.Equal(t, "sub_9", e.SubscriptionID)
		}},
		{EventSubscriptionHalted, func(t *testing.T, ev Event) {
			e, ok := ev.(SubscriptionHalted)
			require.True(t, ok)
			assert.Equal(t, "sub_9", e.SubscriptionID)
		}},
		{EventSubscriptionActivated, func(t *testing.T, ev Event) {
			e, ok := ev.(SubscriptionActivated)
			require.True(t, ok)
			assert.Equal(t, "sub_9", e.SubscriptionID)
			assert.Equal(t, "plan_m", e.PlanID)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			raw := []byte(`{"event":"` + tt.event + `","payload":{"subscription":{"entity":{"id":"sub_9","plan_id":"plan_m"}}}}`)
			ev, err := Parse(raw)
			require.NoError(t, err)
			tt.check(t, ev)
		})
	}
}

func TestParse_PaymentFailedNotes(t *testing.T) {
	raw := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_2","amount":500,"status":"failed","error_description":"card declined","notes":{"type":"subscription","subscriptionId":"sub_1","userId":42}}}}}`)

	ev, err := Parse(raw)
	require.NoError(t, err)

	failed, ok := ev.(PaymentFailed)
	require.True(t, ok)
	assert.Equal(t, "pay_2", failed.Payment.ID)
	assert.False(t, failed.Payment.Captured())
	assert.Equal(t, "card declined", failed.Payment.ErrorDescription)
	assert.Equal(t, "subscription", failed.Payment.Notes.Type)
	assert.Equal(t, "sub_1", failed.Payment.Notes.SubscriptionID)
	assert.Equal(t, "42", failed.Payment.Notes.UserID)
}

func TestParse_PaymentCapturedEmptyNotesArray(t *testing.T) {
	raw := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_3","amount":100,"status":"captured","notes":[]}}}}`)

	ev, err := Parse(raw)
	require.NoError(t, err)

	captured, ok := ev.(PaymentCaptured)
	require.True(t, ok)
	assert.Equal(t, Notes{}, captured.Payment.Notes)
}

func TestParse_Unknown(t *testing.T) {
	ev, err := Parse([]byte(`{"event":"invoice.paid","payload":{}}`))
	require.NoError(t, err)

	_, ok := ev.(Unknown)
	assert.True(t, ok)
	assert.Equal(t, "invoice.paid", ev.Type())
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"event":`},
		{"empty body", ``},
		{"missing event", `{"payload":{}}`},
		{"charged without payment", `{"event":"subscription.charged","payload":{"subscription":{"entity":{"id":"sub_1"}}}}`},
		{"charged without subscription", `{"event":"subscription.charged","payload":{"payment":{"entity":{"id":"pay_1"}}}}`},
		{"cancelled without id", `{"event":"subscription.cancelled","payload":{"subscription":{"entity":{}}}}`},
		{"payment without id", `{"event":"payment.failed","payload":{"payment":{"entity":{"amount":1}}}}`},
		{"negative amount", `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"p","amount":-1}}}}`},
		{"amount is string", `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"p","amount":"100"}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Parse([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrMalformedPayload)
			assert.Nil(t, ev)
		})
	}
}
