package domain

// ScheduledWorkout is the Program Calendar Mapper's output: the program day a
// calendar date falls on, plus the workout for that day (nil on rest days and
// on dates before the program started).
type ScheduledWorkout struct {
	Day     int
	Workout *Workout
}

// ResolveWorkoutForDate maps a calendar date onto a program day.
//
// Day numbering is 1-based while elapsed days are 0-based, so day 1 is the
// start date itself. The program cycles indefinitely: once the elapsed days
// reach the cycle length, mapping wraps modulo the length and the program
// repeats. Dates before the start date resolve to no workout.
func ResolveWorkoutForDate(program *Program, startDate, targetDate CalendarDate) ScheduledWorkout {
	if program == nil {
		return ScheduledWorkout{}
	}

	dayOfProgram := targetDate.DaysSince(startDate) + 1
	if dayOfProgram < 1 {
		return ScheduledWorkout{Day: dayOfProgram}
	}

	cycleLength := program.CycleLength()
	if cycleLength == 0 {
		return ScheduledWorkout{Day: dayOfProgram}
	}

	dayInCycle := ((dayOfProgram - 1) % cycleLength) + 1
	return ScheduledWorkout{
		Day:     dayOfProgram,
		Workout: program.WorkoutForCycleDay(dayInCycle),
	}
}
