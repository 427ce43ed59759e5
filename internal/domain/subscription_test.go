package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveSubscriptionStatus(t *testing.T) {
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)
	trialStart := now.Add(-5 * 24 * time.Hour)
	trialExpired := now.Add(-40 * 24 * time.Hour)
	periodEndFuture := now.Add(10 * 24 * time.Hour)
	periodEndPast := now.Add(-1 * time.Hour)

	tests := []struct {
		name   string
		fields SubscriptionFields
		want   SubscriptionStatus
	}{
		{
			name:   "admin sentinel always resolves active",
			fields: SubscriptionFields{StoredStatus: StoredStatusAdmin},
			want:   SubscriptionActive,
		},
		{
			name: "admin wins over every other signal",
			fields: SubscriptionFields{
				StoredStatus:              StoredStatusAdmin,
				CancelAtPeriodEnd:         true,
				CancellationEffectiveDate: &periodEndPast,
			},
			want: SubscriptionActive,
		},
		{
			name: "active with full billing identity",
			fields: SubscriptionFields{
				StoredStatus:     "active",
				StripeCustomerID: "cus_123",
				SubscriptionID:   "sub_123",
			},
			want: SubscriptionActive,
		},
		{
			name: "stored active without subscription id is not trusted",
			fields: SubscriptionFields{
				StoredStatus:     "active",
				StripeCustomerID: "cus_123",
			},
			want: SubscriptionExpired,
		},
		{
			name:   "paused collection",
			fields: SubscriptionFields{StoredStatus: "paused", StripeCustomerID: "cus_123", SubscriptionID: "sub_123"},
			want:   SubscriptionPaused,
		},
		{
			name: "pending cancellation keeps access until period end",
			fields: SubscriptionFields{
				StoredStatus:              "canceled",
				StripeCustomerID:          "cus_123",
				SubscriptionID:            "sub_123",
				CancelAtPeriodEnd:         true,
				CancellationEffectiveDate: &periodEndFuture,
			},
			want: SubscriptionActive,
		},
		{
			name: "cancellation past its effective date",
			fields: SubscriptionFields{
				StoredStatus:              "canceled",
				StripeCustomerID:          "cus_123",
				SubscriptionID:            "sub_123",
				CancelAtPeriodEnd:         true,
				CancellationEffectiveDate: &periodEndPast,
			},
			want: SubscriptionCanceled,
		},
		{
			name:   "inside trial window",
			fields: SubscriptionFields{StoredStatus: "trial", TrialStartDate: &trialStart},
			want:   SubscriptionTrial,
		},
		{
			name:   "trial window elapsed, no billing identity",
			fields: SubscriptionFields{StoredStatus: "trial", TrialStartDate: &trialExpired},
			want:   SubscriptionExpired,
		},
		{
			name:   "no signals at all",
			fields: SubscriptionFields{},
			want:   SubscriptionExpired,
		},
		{
			name: "unrecognized stored status with billing identity passes through",
			fields: SubscriptionFields{
				StoredStatus:     "incomplete",
				StripeCustomerID: "cus_123",
				SubscriptionID:   "sub_123",
			},
			want: SubscriptionIncomplete,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveSubscriptionStatus(tc.fields, now))
		})
	}
}

func TestResolveSubscriptionStatus_TrialBoundaryExclusive(t *testing.T) {
	start := time.Date(2025, time.April, 1, 9, 30, 0, 0, time.UTC)
	fields := SubscriptionFields{TrialStartDate: &start}

	justInside := start.Add(TrialPeriod - time.Second)
	assert.Equal(t, SubscriptionTrial, ResolveSubscriptionStatus(fields, justInside))

	exactly := start.Add(TrialPeriod)
	assert.Equal(t, SubscriptionExpired, ResolveSubscriptionStatus(fields, exactly))
}

func TestResolveSubscriptionStatus_CancellationOutranksTrial(t *testing.T) {
	// A user who subscribed and then canceled may still be inside the
	// original trial window; the cancellation rules decide first.
	now := time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC)
	trialStart := now.Add(-10 * 24 * time.Hour)
	effectivePast := now.Add(-24 * time.Hour)

	fields := SubscriptionFields{
		StripeCustomerID:          "cus_123",
		SubscriptionID:            "sub_123",
		TrialStartDate:            &trialStart,
		CancelAtPeriodEnd:         true,
		CancellationEffectiveDate: &effectivePast,
	}
	assert.Equal(t, SubscriptionCanceled, ResolveSubscriptionStatus(fields, now))
}

func TestEntitlesAccess(t *testing.T) {
	assert.True(t, EntitlesAccess(SubscriptionActive))
	assert.True(t, EntitlesAccess(SubscriptionTrial))
	assert.False(t, EntitlesAccess(SubscriptionPaused))
	assert.False(t, EntitlesAccess(SubscriptionCanceled))
	assert.False(t, EntitlesAccess(SubscriptionExpired))
	assert.False(t, EntitlesAccess(SubscriptionIncomplete))
}
