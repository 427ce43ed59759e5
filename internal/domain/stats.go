package domain

import "time"

// StreakData summarizes a user's completed-session history for the dashboard.
type StreakData struct {
	CurrentStreak     int `json:"currentStreak"`
	LongestStreak     int `json:"longestStreak"`
	TotalWorkouts     int `json:"totalWorkouts"`
	ThisWeekWorkouts  int `json:"thisWeekWorkouts"`
	ThisMonthWorkouts int `json:"thisMonthWorkouts"`
}

// CalculateStreakData computes streaks over finished sessions. A streak is a
// run of consecutive calendar days with at least one finished session; the
// current streak survives until a full day is missed, so finishing yesterday
// but not yet today still counts.
func CalculateStreakData(sessions []WorkoutSession, now time.Time) StreakData {
	today := NewCalendarDate(now)
	weekStart := today.AddDays(-int(mondayOffset(now.Weekday())))
	monthStart := DateOf(now.Year(), now.Month(), 1)

	finishedDays := make(map[CalendarDate]bool)
	var data StreakData
	for i := range sessions {
		s := &sessions[i]
		if !s.Finished() {
			continue
		}
		data.TotalWorkouts++
		day := s.Date()
		finishedDays[day] = true
		if !day.Before(weekStart) && !today.Before(day) {
			data.ThisWeekWorkouts++
		}
		if !day.Before(monthStart) && !today.Before(day) {
			data.ThisMonthWorkouts++
		}
	}
	if len(finishedDays) == 0 {
		return data
	}

	// Current streak: walk backwards from today, allowing today itself to be
	// missing.
	cursor := today
	if !finishedDays[cursor] {
		cursor = cursor.AddDays(-1)
	}
	for finishedDays[cursor] {
		data.CurrentStreak++
		cursor = cursor.AddDays(-1)
	}

	// Longest streak: walk each run from its first day only.
	for day := range finishedDays {
		if finishedDays[day.AddDays(-1)] {
			continue
		}
		length := 0
		for cursor := day; finishedDays[cursor]; cursor = cursor.AddDays(1) {
			length++
		}
		if length > data.LongestStreak {
			data.LongestStreak = length
		}
	}
	return data
}

// mondayOffset returns how many days back the week's Monday is.
func mondayOffset(d time.Weekday) int {
	if d == time.Sunday {
		return 6
	}
	return int(d) - 1
}
