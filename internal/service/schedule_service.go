package service

import (
	"context"
	"errors"
	"fmt"

	"hybridx/training-app/internal/domain"
	"hybridx/training-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CalendarDay is one day of the calendar view: what the schedule says plus
// what the persisted session (if any) says actually happened. A session's
// workout snapshot overrides the program mapping, so swapped days render the
// swapped workout.
type CalendarDay struct {
	Date       domain.CalendarDate `json:"date"`
	ProgramDay int                 `json:"programDay"`
	Title      string              `json:"title,omitempty"`
	Rest       bool                `json:"rest"`
	Completed  bool                `json:"completed"`
	HasSession bool                `json:"hasSession"`
	OneOff     bool                `json:"oneOff"`
}

type ScheduleService interface {
	// ScheduledFor maps a calendar date onto the user's program without
	// touching sessions. Running workouts come back with target paces
	// stamped from the user's running profile when one exists.
	ScheduledFor(ctx context.Context, userID primitive.ObjectID, date domain.CalendarDate) (domain.ScheduledWorkout, error)

	// Calendar renders an inclusive date range, overlaying persisted
	// sessions onto the schedule.
	Calendar(ctx context.Context, userID primitive.ObjectID, from, to domain.CalendarDate) ([]CalendarDay, error)
}

type scheduleService struct {
	userRepo    repository.UserRepository
	programRepo repository.ProgramRepository
	sessionRepo repository.SessionRepository
}

func NewScheduleService(
	userRepo repository.UserRepository,
	programRepo repository.ProgramRepository,
	sessionRepo repository.SessionRepository,
) ScheduleService {
	return &scheduleService{
		userRepo:    userRepo,
		programRepo: programRepo,
		sessionRepo: sessionRepo,
	}
}

// loadSchedule fetches the user's program and start date. A user without a
// schedule, or whose program was deleted, resolves to (nil, zero date): "no
// schedule applies" instead of a page-breaking error.
func (s *scheduleService) loadSchedule(ctx context.Context, userID primitive.ObjectID) (*domain.Program, domain.CalendarDate, *domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.CalendarDate{}, nil, nil
		}
		return nil, domain.CalendarDate{}, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !user.HasSchedule() {
		return nil, domain.CalendarDate{}, user, nil
	}

	program, err := s.programRepo.GetByID(ctx, *user.ProgramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.CalendarDate{}, user, nil
		}
		return nil, domain.CalendarDate{}, user, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return program, domain.NewCalendarDate(*user.StartDate), user, nil
}

func (s *scheduleService) ScheduledFor(ctx context.Context, userID primitive.ObjectID, date domain.CalendarDate) (domain.ScheduledWorkout, error) {
	program, startDate, user, err := s.loadSchedule(ctx, userID)
	if err != nil {
		return domain.ScheduledWorkout{}, err
	}
	if program == nil {
		return domain.ScheduledWorkout{}, nil
	}

	scheduled := domain.ResolveWorkoutForDate(program, startDate, date)
	if scheduled.Workout != nil && user != nil {
		if paces, ok := domain.CalculateTrainingPaces(user.RunningProfile); ok {
			domain.ApplyTargetPaces(scheduled.Workout, paces)
		}
	}
	return scheduled, nil
}

func (s *scheduleService) Calendar(ctx context.Context, userID primitive.ObjectID, from, to domain.CalendarDate) ([]CalendarDay, error) {
	if to.Before(from) {
		return nil, errors.New("calendar range end precedes start")
	}

	program, startDate, _, err := s.loadSchedule(ctx, userID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessionRepo.FindByUserBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	byDate := make(map[domain.CalendarDate]*domain.WorkoutSession, len(sessions))
	for i := range sessions {
		byDate[sessions[i].Date()] = &sessions[i]
	}

	var days []CalendarDay
	for date := from; !to.Before(date); date = date.AddDays(1) {
		day := CalendarDay{Date: date, Rest: true}

		if program != nil {
			scheduled := domain.ResolveWorkoutForDate(program, startDate, date)
			day.ProgramDay = scheduled.Day
			if scheduled.Workout != nil {
				day.Title = scheduled.Workout.Title
				day.Rest = domain.IsRestTitle(scheduled.Workout.Title)
			}
		}

		// The persisted session wins over the schedule: it reflects swaps,
		// one-off workouts, and completion state.
		if session, ok := byDate[date]; ok {
			day.HasSession = true
			day.Completed = session.Finished()
			day.OneOff = session.Origin.IsOneOff()
			if session.WorkoutDetails != nil {
				day.Title = session.WorkoutDetails.Title
				day.Rest = domain.IsRestTitle(session.WorkoutDetails.Title)
			} else if session.WorkoutTitle != "" {
				day.Title = session.WorkoutTitle
				day.Rest = domain.IsRestTitle(session.WorkoutTitle)
			}
		}

		days = append(days, day)
	}
	return days, nil
}
