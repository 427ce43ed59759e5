package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

const (
	RoleAthlete Role = "athlete"
	RoleAdmin   Role = "admin"
)

// Experience levels offered at signup.
const (
	ExperienceBeginner     = "beginner"
	ExperienceIntermediate = "intermediate"
	ExperienceAdvanced     = "advanced"
)

// Training goal values offered at signup.
const (
	GoalStrength  = "strength"
	GoalEndurance = "endurance"
	GoalHybrid    = "hybrid"
)

// StravaTokens holds a user's Strava OAuth credentials. Refreshed lazily with
// a 5-minute safety buffer; the refreshed token is written back to the user
// document immediately so later calls in the same request reuse it.
type StravaTokens struct {
	AccessToken  string    `bson:"accessToken" json:"-"`
	RefreshToken string    `bson:"refreshToken" json:"-"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	Scope        string    `bson:"scope" json:"scope"`
	AthleteID    int64     `bson:"athleteId" json:"athleteId"`
}

// PersonalRecords stores lift and race PRs as display strings keyed by
// record name ("backSquat", "run5k", ...). Free-form keys are allowed.
type PersonalRecords map[string]string

// RunningProfile holds benchmark race times used to derive training paces.
type RunningProfile struct {
	// BenchmarkPaces maps a race ("mile", "fiveK", "tenK", "halfMarathon")
	// to the total finish time in seconds.
	BenchmarkPaces map[string]int `bson:"benchmarkPaces" json:"benchmarkPaces"`
	InjuryHistory  []string       `bson:"injuryHistory,omitempty" json:"injuryHistory,omitempty"`
}

// User represents an account in the system.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"` // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	FirstName    string             `bson:"firstName" json:"firstName"`
	LastName     string             `bson:"lastName" json:"lastName"`
	Experience   string             `bson:"experience" json:"experience"`
	Frequency    string             `bson:"frequency" json:"frequency"` // sessions per week: "3" | "4" | "5+"
	Goal         string             `bson:"goal" json:"goal"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Active program schedule. Both present or both absent: the pair is what
	// establishes the mapping from calendar date to program day.
	ProgramID *primitive.ObjectID `bson:"programId,omitempty" json:"programId,omitempty"`
	StartDate *time.Time          `bson:"startDate,omitempty" json:"startDate,omitempty"`

	PersonalRecords PersonalRecords `bson:"personalRecords,omitempty" json:"personalRecords,omitempty"`
	RunningProfile  *RunningProfile `bson:"runningProfile,omitempty" json:"runningProfile,omitempty"`

	Strava         *StravaTokens `bson:"strava,omitempty" json:"strava,omitempty"`
	LastStravaSync *time.Time    `bson:"lastStravaSync,omitempty" json:"lastStravaSync,omitempty"`

	// Subscription fields, written by Stripe webhook handlers and read by the
	// status resolver. StoredStatus may carry the "admin" sentinel, which is
	// distinct from the resolved status enum.
	StoredStatus              string     `bson:"subscriptionStatus,omitempty" json:"subscriptionStatus,omitempty"`
	StripeCustomerID          string     `bson:"stripeCustomerId,omitempty" json:"-"`
	SubscriptionID            string     `bson:"subscriptionId,omitempty" json:"-"`
	TrialStartDate            *time.Time `bson:"trialStartDate,omitempty" json:"trialStartDate,omitempty"`
	CancelAtPeriodEnd         bool       `bson:"cancel_at_period_end,omitempty" json:"cancelAtPeriodEnd,omitempty"`
	CancellationEffectiveDate *time.Time `bson:"cancellation_effective_date,omitempty" json:"cancellationEffectiveDate,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasSchedule reports whether the user has an active program mapping.
func (u *User) HasSchedule() bool {
	return u.ProgramID != nil && u.StartDate != nil
}

// SubscriptionFields extracts the inputs of the subscription status resolver.
func (u *User) SubscriptionFields() SubscriptionFields {
	return SubscriptionFields{
		StoredStatus:              u.StoredStatus,
		StripeCustomerID:          u.StripeCustomerID,
		SubscriptionID:            u.SubscriptionID,
		TrialStartDate:            u.TrialStartDate,
		CancelAtPeriodEnd:         u.CancelAtPeriodEnd,
		CancellationEffectiveDate: u.CancellationEffectiveDate,
	}
}
