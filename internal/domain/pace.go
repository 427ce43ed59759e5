package domain

import "math"

// TrainingPaces maps a pace zone to a target pace in seconds per kilometer.
type TrainingPaces map[PaceZone]int

// Benchmark race distances in meters, keyed the way RunningProfile stores
// benchmark times.
var benchmarkDistances = map[string]float64{
	"mile":         1609.34,
	"fiveK":        5000,
	"tenK":         10000,
	"halfMarathon": 21097.5,
}

// vdot implements Jack Daniels' VDOT estimate from a race result.
func vdot(distanceMeters float64, timeSeconds float64) float64 {
	if timeSeconds <= 0 || distanceMeters <= 0 {
		return 0
	}
	minutes := timeSeconds / 60
	velocity := distanceMeters / minutes // meters per minute
	percentMax := 0.8 +
		0.1894393*math.Exp(-0.012778*minutes) +
		0.2989558*math.Exp(-0.1932605*minutes)
	vo2 := -4.60 + 0.182258*velocity + 0.000104*velocity*velocity
	return vo2 / percentMax
}

// pacePercentages come from Daniels' Running Formula tables: each zone runs
// at a fraction of the velocity at VDOT.
var pacePercentages = map[PaceZone]float64{
	PaceRecovery:   0.65,
	PaceEasy:       0.70,
	PaceMarathon:   0.83,
	PaceThreshold:  0.88,
	PaceInterval:   0.975,
	PaceRepetition: 1.05,
}

// CalculateTrainingPaces derives per-zone target paces from the best
// benchmark in a running profile. Returns false when no usable benchmark
// exists; callers degrade to "no pace data" rather than failing.
func CalculateTrainingPaces(profile *RunningProfile) (TrainingPaces, bool) {
	if profile == nil || len(profile.BenchmarkPaces) == 0 {
		return nil, false
	}

	best := 0.0
	for race, seconds := range profile.BenchmarkPaces {
		distance, ok := benchmarkDistances[race]
		if !ok || seconds <= 0 {
			continue
		}
		if v := vdot(distance, float64(seconds)); v > best {
			best = v
		}
	}
	if best <= 0 {
		return nil, false
	}

	maxVelocity := 29.54 + 5.000663*best - 0.007546*best*best // meters per minute
	paces := make(TrainingPaces, len(pacePercentages))
	for zone, pct := range pacePercentages {
		secondsPerKm := 1000 / (maxVelocity * pct) * 60
		paces[zone] = int(math.Round(secondsPerKm))
	}
	return paces, true
}

// ApplyTargetPaces stamps per-run target paces onto a workout's planned runs.
// Runs keep a zero target when the zone is unknown.
func ApplyTargetPaces(workout *Workout, paces TrainingPaces) {
	if workout == nil || paces == nil {
		return
	}
	for i := range workout.Runs {
		if target, ok := paces[workout.Runs[i].PaceZone]; ok {
			workout.Runs[i].TargetPace = target
		}
	}
}
