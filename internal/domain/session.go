package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionOrigin identifies where a session's workout came from: a real
// program (the origin holds the program's hex id) or one of the sentinel
// origins for sessions not derived from any program. Persisted in the
// session's programId field.
type SessionOrigin string

const (
	OriginOneOffAI      SessionOrigin = "one-off-ai"
	OriginCustomWorkout SessionOrigin = "custom-workout"
	OriginStravaLinked  SessionOrigin = "strava-linked"
)

// ProgramOrigin wraps a program id as a session origin.
func ProgramOrigin(id primitive.ObjectID) SessionOrigin {
	return SessionOrigin(id.Hex())
}

// IsOneOff reports whether the origin is one of the ad-hoc sentinels that
// take display precedence over program-derived sessions.
func (o SessionOrigin) IsOneOff() bool {
	return o == OriginOneOffAI || o == OriginCustomWorkout
}

// IsProgram reports whether the origin refers to a real program.
func (o SessionOrigin) IsProgram() bool {
	switch o {
	case OriginOneOffAI, OriginCustomWorkout, OriginStravaLinked:
		return false
	}
	return o != ""
}

// ProgramID returns the program id an origin refers to, if any.
func (o SessionOrigin) ProgramID() (primitive.ObjectID, bool) {
	if !o.IsProgram() {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(string(o))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// StravaActivitySummary stores key details of a linked Strava activity on
// the session itself, so the session stays self-describing.
type StravaActivitySummary struct {
	Distance   float64 `bson:"distance,omitempty" json:"distance,omitempty"`     // meters
	MovingTime int64   `bson:"moving_time,omitempty" json:"movingTime,omitempty"` // seconds
	Name       string  `bson:"name,omitempty" json:"name,omitempty"`
	SportType  string  `bson:"sportType,omitempty" json:"sportType,omitempty"`
}

// WorkoutSession is the single source of truth for what happened for a user
// on a calendar date. At most one session exists per (userId, workoutDate);
// a unique index backs that up against concurrent creates.
type WorkoutSession struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	Origin       SessionOrigin      `bson:"programId" json:"programId"`
	WorkoutDate  time.Time          `bson:"workoutDate" json:"workoutDate"` // midnight-aligned
	WorkoutTitle string             `bson:"workoutTitle" json:"workoutTitle"`
	ProgramType  ProgramType        `bson:"programType" json:"programType"`
	StartedAt    time.Time          `bson:"startedAt" json:"startedAt"`
	FinishedAt   *time.Time         `bson:"finishedAt,omitempty" json:"finishedAt,omitempty"` // absent = not yet completed

	CompletedItems map[string]bool `bson:"completedItems" json:"completedItems"`
	Notes          string          `bson:"notes" json:"notes"`
	Duration       string          `bson:"duration,omitempty" json:"duration,omitempty"`

	// ExtendedExercises are AI-appended exercises added after the fact.
	ExtendedExercises []Exercise `bson:"extendedExercises,omitempty" json:"extendedExercises,omitempty"`

	// WorkoutDetails is the materialized override: a denormalized snapshot of
	// the workout performed. Present for one-off/custom sessions and for
	// swapped sessions. Present means use it; absent means re-resolve from
	// the program. "No override" and "override is empty" are distinct states.
	WorkoutDetails *Workout `bson:"workoutDetails,omitempty" json:"workoutDetails,omitempty"`

	// Strava linkage.
	StravaID         string                 `bson:"stravaId,omitempty" json:"stravaId,omitempty"`
	UploadedToStrava bool                   `bson:"uploadedToStrava,omitempty" json:"uploadedToStrava,omitempty"`
	StravaUploadedAt *time.Time             `bson:"stravaUploadedAt,omitempty" json:"stravaUploadedAt,omitempty"`
	StravaActivity   *StravaActivitySummary `bson:"stravaActivity,omitempty" json:"stravaActivity,omitempty"`
}

// Finished reports whether the workout was completed or skipped.
func (s *WorkoutSession) Finished() bool {
	return s.FinishedAt != nil
}

// Date returns the session's calendar date.
func (s *WorkoutSession) Date() CalendarDate {
	return NewCalendarDate(s.WorkoutDate)
}
