package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgramType distinguishes the two workout payload shapes.
type ProgramType string

const (
	ProgramTypeHyrox   ProgramType = "hyrox"
	ProgramTypeRunning ProgramType = "running"
)

// PaceZone classifies a planned run's intensity band.
type PaceZone string

const (
	PaceRecovery   PaceZone = "recovery"
	PaceEasy       PaceZone = "easy"
	PaceMarathon   PaceZone = "marathon"
	PaceThreshold  PaceZone = "threshold"
	PaceInterval   PaceZone = "interval"
	PaceRepetition PaceZone = "repetition"
)

// Exercise is a single exercise line within a hyrox-style workout.
type Exercise struct {
	Name    string `bson:"name" json:"name"`
	Details string `bson:"details" json:"details"` // e.g. "3x10 reps", "5 min AMRAP"
}

// PlannedRun is a single run within a running workout.
type PlannedRun struct {
	Type        string   `bson:"type" json:"type"` // easy | tempo | intervals | long | recovery
	Distance    float64  `bson:"distance" json:"distance"` // kilometers
	PaceZone    PaceZone `bson:"paceZone" json:"paceZone"`
	Description string   `bson:"description" json:"description"`
	TargetPace  int      `bson:"targetPace,omitempty" json:"targetPace,omitempty"` // seconds per kilometer, derived from the runner's profile
	EffortLevel int      `bson:"effortLevel,omitempty" json:"effortLevel,omitempty"` // 1-10
	Intervals   int      `bson:"noIntervals,omitempty" json:"noIntervals,omitempty"`
}

// Workout is one day-numbered entry in a Program. Exactly one of Exercises or
// Runs carries the payload, discriminated by ProgramType.
type Workout struct {
	Day         int          `bson:"day" json:"day"` // 1-based, not necessarily contiguous
	Title       string       `bson:"title" json:"title"`
	ProgramType ProgramType  `bson:"programType" json:"programType"`
	Exercises   []Exercise   `bson:"exercises,omitempty" json:"exercises,omitempty"`
	Runs        []PlannedRun `bson:"runs,omitempty" json:"runs,omitempty"`
	TargetRace  string       `bson:"targetRace,omitempty" json:"targetRace,omitempty"` // mile | 5k | 10k | half-marathon | marathon
}

// CompletionKeys returns the identifiers a session uses to track per-item
// completion: the run description for running workouts, the exercise name
// otherwise.
func (w *Workout) CompletionKeys() []string {
	if w.ProgramType == ProgramTypeRunning {
		keys := make([]string, 0, len(w.Runs))
		for _, run := range w.Runs {
			keys = append(keys, run.Description)
		}
		return keys
	}
	keys := make([]string, 0, len(w.Exercises))
	for _, ex := range w.Exercises {
		keys = append(keys, ex.Name)
	}
	return keys
}

// Program is an administrator-authored, cyclic, day-indexed sequence of
// workouts. Trainees never mutate it; sessions carry denormalized snapshots
// where history must survive later edits.
type Program struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	ProgramType ProgramType        `bson:"programType" json:"programType"`
	TargetRace  string             `bson:"targetRace,omitempty" json:"targetRace,omitempty"`
	Workouts    []Workout          `bson:"workouts" json:"workouts"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CycleLength is the program's effective length: max(day) over well-formed
// entries. Entries with day < 1 can come in through admin forms or CSV
// imports and are treated as absent rather than an error.
func (p *Program) CycleLength() int {
	maxDay := 0
	for i := range p.Workouts {
		if p.Workouts[i].Day > maxDay {
			maxDay = p.Workouts[i].Day
		}
	}
	return maxDay
}

// WorkoutForCycleDay returns the workout tagged with the given 1-based cycle
// day, or nil when none exists (a rest day under sparse numbering).
func (p *Program) WorkoutForCycleDay(day int) *Workout {
	for i := range p.Workouts {
		if p.Workouts[i].Day == day && p.Workouts[i].Day >= 1 {
			return &p.Workouts[i]
		}
	}
	return nil
}

// IsRestTitle reports whether a workout title marks a rest/recovery day.
// This is calendar-coloring sugar layered on top of schedule resolution,
// not part of the mapper's contract.
func IsRestTitle(title string) bool {
	lower := strings.ToLower(title)
	return strings.Contains(lower, "rest") || strings.Contains(lower, "recover")
}
