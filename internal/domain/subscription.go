package domain

import "time"

// SubscriptionStatus is the single authoritative value gating feature access.
type SubscriptionStatus string

const (
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionTrial      SubscriptionStatus = "trial"
	SubscriptionPaused     SubscriptionStatus = "paused"
	SubscriptionCanceled   SubscriptionStatus = "canceled"
	SubscriptionExpired    SubscriptionStatus = "expired"
	SubscriptionIncomplete SubscriptionStatus = "incomplete"
)

// StoredStatusAdmin is a stored sentinel, not a member of the resolved enum.
// Administrators always resolve to active.
const StoredStatusAdmin = "admin"

// TrialPeriod is the fixed entitlement window starting at account creation,
// independent of payment status.
const TrialPeriod = 30 * 24 * time.Hour

// SubscriptionFields are the stored signals the resolver reconciles.
type SubscriptionFields struct {
	StoredStatus              string
	StripeCustomerID          string
	SubscriptionID            string
	TrialStartDate            *time.Time
	CancelAtPeriodEnd         bool
	CancellationEffectiveDate *time.Time
}

// subscriptionRule is one (predicate, result) pair of the ordered decision
// list. First match wins.
type subscriptionRule struct {
	name   string
	when   func(f SubscriptionFields, now time.Time) bool
	result func(f SubscriptionFields) SubscriptionStatus
}

func fixedStatus(s SubscriptionStatus) func(SubscriptionFields) SubscriptionStatus {
	return func(SubscriptionFields) SubscriptionStatus { return s }
}

// subscriptionRules is evaluated top to bottom. The ordering is load-bearing:
// a pending cancellation keeps the user entitled until its effective date
// even when the stored status already says canceled, and the trial check only
// applies once no explicit status matched.
var subscriptionRules = []subscriptionRule{
	{
		name: "admin override",
		when: func(f SubscriptionFields, _ time.Time) bool {
			return f.StoredStatus == StoredStatusAdmin
		},
		result: fixedStatus(SubscriptionActive),
	},
	{
		name: "active with billing identity",
		when: func(f SubscriptionFields, _ time.Time) bool {
			return f.StoredStatus == string(SubscriptionActive) &&
				f.StripeCustomerID != "" && f.SubscriptionID != ""
		},
		result: fixedStatus(SubscriptionActive),
	},
	{
		name: "paused collection",
		when: func(f SubscriptionFields, _ time.Time) bool {
			return f.StoredStatus == string(SubscriptionPaused)
		},
		result: fixedStatus(SubscriptionPaused),
	},
	{
		name: "canceling, still in paid period",
		when: func(f SubscriptionFields, now time.Time) bool {
			return f.CancelAtPeriodEnd && f.CancellationEffectiveDate != nil &&
				now.Before(*f.CancellationEffectiveDate)
		},
		result: fixedStatus(SubscriptionActive),
	},
	{
		name: "cancellation took effect",
		when: func(f SubscriptionFields, now time.Time) bool {
			return f.CancelAtPeriodEnd && f.CancellationEffectiveDate != nil &&
				!now.Before(*f.CancellationEffectiveDate)
		},
		result: fixedStatus(SubscriptionCanceled),
	},
	{
		name: "in trial window",
		when: func(f SubscriptionFields, now time.Time) bool {
			// Boundary is exclusive: exactly 30 days after the start is no
			// longer a trial.
			return f.TrialStartDate != nil && now.Before(f.TrialStartDate.Add(TrialPeriod))
		},
		result: fixedStatus(SubscriptionTrial),
	},
	{
		name: "no billing identity",
		when: func(f SubscriptionFields, _ time.Time) bool {
			return f.StripeCustomerID == "" || f.SubscriptionID == ""
		},
		result: fixedStatus(SubscriptionExpired),
	},
	{
		name: "stored status verbatim",
		when: func(SubscriptionFields, time.Time) bool { return true },
		result: func(f SubscriptionFields) SubscriptionStatus {
			if f.StoredStatus == "" {
				return SubscriptionExpired
			}
			return SubscriptionStatus(f.StoredStatus)
		},
	},
}

// ResolveSubscriptionStatus reconciles the stored subscription fields into a
// single status. Pure and total: every input maps to exactly one status.
func ResolveSubscriptionStatus(f SubscriptionFields, now time.Time) SubscriptionStatus {
	for _, rule := range subscriptionRules {
		if rule.when(f, now) {
			return rule.result(f)
		}
	}
	// The last rule always matches; this is unreachable.
	return SubscriptionExpired
}

// EntitlesAccess reports whether a resolved status grants access to training
// features.
func EntitlesAccess(s SubscriptionStatus) bool {
	return s == SubscriptionActive || s == SubscriptionTrial
}
