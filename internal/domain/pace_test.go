package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateTrainingPaces_NoProfile(t *testing.T) {
	_, ok := CalculateTrainingPaces(nil)
	assert.False(t, ok)

	_, ok = CalculateTrainingPaces(&RunningProfile{})
	assert.False(t, ok)

	// Unknown races and non-positive times are skipped entirely.
	_, ok = CalculateTrainingPaces(&RunningProfile{
		BenchmarkPaces: map[string]int{"marathon": 10800, "fiveK": 0},
	})
	assert.False(t, ok)
}

func TestCalculateTrainingPaces_ZoneOrdering(t *testing.T) {
	// 22:30 5k runner.
	paces, ok := CalculateTrainingPaces(&RunningProfile{
		BenchmarkPaces: map[string]int{"fiveK": 1350},
	})
	require.True(t, ok)

	// Slower zones must have strictly larger seconds-per-km targets.
	assert.Greater(t, paces[PaceRecovery], paces[PaceEasy])
	assert.Greater(t, paces[PaceEasy], paces[PaceMarathon])
	assert.Greater(t, paces[PaceMarathon], paces[PaceThreshold])
	assert.Greater(t, paces[PaceThreshold], paces[PaceInterval])
	assert.Greater(t, paces[PaceInterval], paces[PaceRepetition])

	// Sanity window: a 22:30 5k is a 4:30/km race pace, so interval pace
	// lands near it and easy pace is materially slower.
	assert.InDelta(t, 270, paces[PaceInterval], 30)
	assert.Greater(t, paces[PaceEasy], 300)
}

func TestCalculateTrainingPaces_BestBenchmarkWins(t *testing.T) {
	// The 5k time implies a much fitter runner than the mile time; the
	// resolver must use the stronger signal.
	strong, ok := CalculateTrainingPaces(&RunningProfile{
		BenchmarkPaces: map[string]int{"fiveK": 1200, "mile": 600},
	})
	require.True(t, ok)

	weak, ok := CalculateTrainingPaces(&RunningProfile{
		BenchmarkPaces: map[string]int{"mile": 600},
	})
	require.True(t, ok)

	assert.LessOrEqual(t, strong[PaceThreshold], weak[PaceThreshold])
}

func TestApplyTargetPaces(t *testing.T) {
	paces := TrainingPaces{PaceEasy: 330, PaceThreshold: 260}
	workout := &Workout{
		ProgramType: ProgramTypeRunning,
		Runs: []PlannedRun{
			{Description: "warmup", PaceZone: PaceEasy},
			{Description: "tempo", PaceZone: PaceThreshold},
			{Description: "strides", PaceZone: PaceRepetition}, // not in map
		},
	}

	ApplyTargetPaces(workout, paces)
	assert.Equal(t, 330, workout.Runs[0].TargetPace)
	assert.Equal(t, 260, workout.Runs[1].TargetPace)
	assert.Zero(t, workout.Runs[2].TargetPace)

	// Nil arguments are no-ops.
	ApplyTargetPaces(nil, paces)
	ApplyTargetPaces(workout, nil)
}
