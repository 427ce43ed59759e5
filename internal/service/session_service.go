package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hybridx/training-app/internal/domain"
	"hybridx/training-app/internal/repository"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrNothingToSwap  = errors.New("neither date has a workout to swap")
	ErrNotYourSession = errors.New("session does not belong to this user")
)

// SessionOptions tunes get-or-create behavior.
type SessionOptions struct {
	// Overwrite replaces an existing session's content in place. Used by
	// custom/one-off workout creation, which always replaces today's session.
	Overwrite bool
	// Duration is an optional display duration for custom workouts.
	Duration string
}

// DayResolution is what the dashboard renders for a date: the program day,
// the workout to display, and the persisted session backing it.
type DayResolution struct {
	Day     int                    `json:"day"`
	Workout *domain.Workout        `json:"workout,omitempty"`
	Session *domain.WorkoutSession `json:"session,omitempty"`
	Rest    bool                   `json:"rest"`
}

type SessionService interface {
	// ResolveDay finds or creates the single session for a user and date,
	// honoring the display priority: one-off session first, then an existing
	// program session (whose snapshot reflects swaps), then lazy creation
	// from the program schedule.
	ResolveDay(ctx context.Context, userID primitive.ObjectID, date domain.CalendarDate) (*DayResolution, error)

	// GetOrCreate is the reconciler primitive behind ResolveDay and the
	// custom/AI workout flows.
	GetOrCreate(ctx context.Context, userID primitive.ObjectID, origin domain.SessionOrigin, date domain.CalendarDate, workout *domain.Workout, opts SessionOptions) (*domain.WorkoutSession, error)

	// SwapWorkouts exchanges the displayed workout between two dates without
	// altering the underlying program.
	SwapWorkouts(ctx context.Context, userID primitive.ObjectID, date1, date2 domain.CalendarDate) error

	// LinkStravaActivity marks a session finished based on an external
	// activity, creating a placeholder session when none exists. Idempotent
	// under retry.
	LinkStravaActivity(ctx context.Context, userID primitive.ObjectID, activity StravaActivity) (*domain.WorkoutSession, error)

	History(ctx context.Context, userID primitive.ObjectID) ([]domain.WorkoutSession, domain.StreakData, error)
	ToggleItem(ctx context.Context, userID, sessionID primitive.ObjectID, key string, done bool) (*domain.WorkoutSession, error)
	UpdateNotes(ctx context.Context, userID, sessionID primitive.ObjectID, notes string) error
	Finish(ctx context.Context, userID, sessionID primitive.ObjectID, duration string) (*domain.WorkoutSession, error)
	ExtendSession(ctx context.Context, userID, sessionID primitive.ObjectID, exercises []domain.Exercise) (*domain.WorkoutSession, error)
}

type sessionService struct {
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	programRepo repository.ProgramRepository
	now         func() time.Time
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	programRepo repository.ProgramRepository,
) SessionService {
	return &sessionService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		programRepo: programRepo,
		now:         time.Now,
	}
}

// === Day resolution ===

func (s *sessionService) ResolveDay(ctx context.Context, userID primitive.ObjectID, date domain.CalendarDate) (*DayResolution, error) {
	// Priority 1: a one-off or custom workout for this date always wins.
	oneOff, err := s.sessionRepo.FindOneOffByUserAndDate(ctx, userID, date)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if oneOff != nil {
		return &DayResolution{Workout: oneOff.WorkoutDetails, Session: oneOff}, nil
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !user.HasSchedule() {
		return &DayResolution{Rest: true}, nil
	}

	program, err := s.programRepo.GetByID(ctx, *user.ProgramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Schedule points at a deleted program; degrade to no workout.
			return &DayResolution{Rest: true}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	startDate := domain.NewCalendarDate(*user.StartDate)
	scheduled := domain.ResolveWorkoutForDate(program, startDate, date)

	// Priority 2: an existing program session. Its snapshot, when present,
	// overrides the schedule (it reflects swaps).
	existing, err := s.sessionRepo.FindByUserAndDate(ctx, userID, date)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if existing != nil {
		workout := existing.WorkoutDetails
		if workout == nil {
			workout = scheduled.Workout
		}
		s.applyPaces(user, workout)
		return &DayResolution{
			Day:     scheduled.Day,
			Workout: workout,
			Session: existing,
			Rest:    workout == nil,
		}, nil
	}

	// Priority 3: nothing persisted yet; create from the schedule.
	if scheduled.Workout == nil {
		return &DayResolution{Day: scheduled.Day, Rest: true}, nil
	}
	s.applyPaces(user, scheduled.Workout)

	session, err := s.GetOrCreate(ctx, userID, domain.ProgramOrigin(program.ID), date, scheduled.Workout, SessionOptions{})
	if err != nil {
		return nil, err
	}
	return &DayResolution{Day: scheduled.Day, Workout: scheduled.Workout, Session: session}, nil
}

func (s *sessionService) applyPaces(user *domain.User, workout *domain.Workout) {
	if workout == nil || user == nil {
		return
	}
	if paces, ok := domain.CalculateTrainingPaces(user.RunningProfile); ok {
		domain.ApplyTargetPaces(workout, paces)
	}
}

// === Get-or-create reconciliation ===

func (s *sessionService) GetOrCreate(ctx context.Context, userID primitive.ObjectID, origin domain.SessionOrigin, date domain.CalendarDate, workout *domain.Workout, opts SessionOptions) (*domain.WorkoutSession, error) {
	if workout == nil {
		return nil, errors.New("workout is required to create a session")
	}

	existing, err := s.sessionRepo.FindByUserAndDate(ctx, userID, date)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	supersedingOneOff := existing != nil && existing.Origin.IsOneOff() && origin.IsProgram()
	if existing != nil && !opts.Overwrite && !supersedingOneOff {
		// Idempotent read: the session for this date already exists.
		return existing, nil
	}
	if supersedingOneOff && !opts.Overwrite {
		// Callers are expected to check for one-off sessions before asking
		// for a program session; reaching this path means they did not.
		logrus.WithFields(logrus.Fields{
			"userId": userID.Hex(),
			"date":   date.String(),
		}).Warn("program session requested over existing one-off session; replacing it")
	}

	fresh := s.buildSession(userID, origin, date, workout, opts)

	if existing != nil {
		// Replace content in place rather than creating a duplicate.
		fresh.ID = existing.ID
		if err := s.sessionRepo.Update(ctx, fresh); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		return fresh, nil
	}

	id, err := s.sessionRepo.Create(ctx, fresh)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a create race with another request (two tabs). The winner's
			// document is the session for this date; read it instead of
			// failing or duplicating.
			winner, readErr := s.sessionRepo.FindByUserAndDate(ctx, userID, date)
			if readErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrPersistence, readErr)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	fresh.ID = id
	return fresh, nil
}

func (s *sessionService) buildSession(userID primitive.ObjectID, origin domain.SessionOrigin, date domain.CalendarDate, workout *domain.Workout, opts SessionOptions) *domain.WorkoutSession {
	completed := make(map[string]bool)
	for _, key := range workout.CompletionKeys() {
		completed[key] = false
	}

	session := &domain.WorkoutSession{
		UserID:         userID,
		Origin:         origin,
		WorkoutDate:    date.Time(),
		WorkoutTitle:   workout.Title,
		ProgramType:    workout.ProgramType,
		StartedAt:      s.now().UTC(),
		CompletedItems: completed,
		Duration:       opts.Duration,
	}
	if session.ProgramType == "" {
		session.ProgramType = domain.ProgramTypeHyrox
	}

	// Program-derived sessions re-resolve the program for historical display;
	// everything else must be self-describing.
	if !origin.IsProgram() {
		snapshot := *workout
		session.WorkoutDetails = &snapshot
	}
	return session
}

// === Swap ===

func (s *sessionService) SwapWorkouts(ctx context.Context, userID primitive.ObjectID, date1, date2 domain.CalendarDate) error {
	// One user read serves both date resolutions and any session creation;
	// a transient read failure aborts the swap instead of degrading a
	// program session into a one-off.
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	res1, err := s.displayedWorkout(ctx, user, date1)
	if err != nil {
		return err
	}
	res2, err := s.displayedWorkout(ctx, user, date2)
	if err != nil {
		return err
	}
	if res1.workout == nil && res2.workout == nil {
		return ErrNothingToSwap
	}

	sess1, err := s.ensureSwapSession(ctx, user, date1, res1)
	if err != nil {
		return err
	}
	sess2, err := s.ensureSwapSession(ctx, user, date2, res2)
	if err != nil {
		return err
	}

	// Each side receives the other's workout; a side that gives its workout
	// away and receives nothing gets an explicit rest override, so the mapper
	// does not resurrect the moved workout on re-resolution.
	into2 := res1.workout
	into1 := res2.workout
	if into1 == nil {
		into1 = restOverride(res1.workout.ProgramType)
	}
	if into2 == nil {
		into2 = restOverride(res2.workout.ProgramType)
	}

	prior2 := sess2.WorkoutDetails
	if err := s.sessionRepo.SetWorkoutDetails(ctx, sess2.ID, into2); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := s.sessionRepo.SetWorkoutDetails(ctx, sess1.ID, into1); err != nil {
		// A half-applied swap would show the workout on both dates (or
		// neither); restore the first write before reporting failure.
		if rbErr := s.sessionRepo.SetWorkoutDetails(ctx, sess2.ID, prior2); rbErr != nil {
			logrus.WithError(rbErr).WithField("sessionId", sess2.ID.Hex()).
				Error("failed to roll back swap after partial failure")
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// restOverride is the explicit "nothing scheduled here" snapshot written when
// a swap empties a date. Distinct from having no override at all.
func restOverride(programType domain.ProgramType) *domain.Workout {
	if programType == "" {
		programType = domain.ProgramTypeHyrox
	}
	return &domain.Workout{Title: "Rest Day", ProgramType: programType}
}

type displayed struct {
	workout *domain.Workout
	session *domain.WorkoutSession
	day     int
}

// displayedWorkout resolves what a date currently shows: the session
// snapshot when present, the program mapping otherwise. Never creates
// anything.
func (s *sessionService) displayedWorkout(ctx context.Context, user *domain.User, date domain.CalendarDate) (displayed, error) {
	session, err := s.sessionRepo.FindByUserAndDate(ctx, user.ID, date)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return displayed{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if session != nil && session.WorkoutDetails != nil {
		return displayed{workout: session.WorkoutDetails, session: session}, nil
	}

	if !user.HasSchedule() {
		return displayed{session: session}, nil
	}
	program, err := s.programRepo.GetByID(ctx, *user.ProgramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return displayed{session: session}, nil
		}
		return displayed{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	scheduled := domain.ResolveWorkoutForDate(program, domain.NewCalendarDate(*user.StartDate), date)
	return displayed{workout: scheduled.Workout, session: session, day: scheduled.Day}, nil
}

// ensureSwapSession makes sure a date participating in a swap has a session
// document to carry its override. Sessions minted here keep a program origin
// whenever the user has one, so they never gain one-off display precedence.
func (s *sessionService) ensureSwapSession(ctx context.Context, user *domain.User, date domain.CalendarDate, d displayed) (*domain.WorkoutSession, error) {
	if d.session != nil {
		return d.session, nil
	}

	workout := d.workout
	if workout == nil {
		workout = restOverride("")
	}

	origin := domain.OriginCustomWorkout
	if user.ProgramID != nil {
		origin = domain.ProgramOrigin(*user.ProgramID)
	}
	return s.GetOrCreate(ctx, user.ID, origin, date, workout, SessionOptions{})
}

// === Strava linking ===

func (s *sessionService) LinkStravaActivity(ctx context.Context, userID primitive.ObjectID, activity StravaActivity) (*domain.WorkoutSession, error) {
	date := domain.NewCalendarDate(activity.StartDate)

	session, err := s.sessionRepo.FindByUserAndDate(ctx, userID, date)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if session == nil {
		placeholder := activity.placeholderWorkout()
		session, err = s.GetOrCreate(ctx, userID, domain.OriginStravaLinked, date, placeholder, SessionOptions{})
		if err != nil {
			return nil, err
		}
	}

	// All of the following writes are pure assignments keyed by stable
	// identifiers, so relinking the same activity is a no-op rather than an
	// accumulation.
	finishedAt := activity.StartDate
	session.FinishedAt = &finishedAt
	session.StravaID = fmt.Sprintf("%d", activity.ID)
	session.StravaActivity = &domain.StravaActivitySummary{
		Distance:   activity.Distance,
		MovingTime: int64(activity.MovingTime),
		Name:       activity.Name,
		SportType:  activity.SportType,
	}
	if session.WorkoutDetails != nil {
		for _, key := range session.WorkoutDetails.CompletionKeys() {
			session.CompletedItems[key] = true
		}
	}
	for key := range session.CompletedItems {
		session.CompletedItems[key] = true
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return session, nil
}

// === Session interaction ===

func (s *sessionService) History(ctx context.Context, userID primitive.ObjectID) ([]domain.WorkoutSession, domain.StreakData, error) {
	sessions, err := s.sessionRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, domain.StreakData{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return sessions, domain.CalculateStreakData(sessions, s.now()), nil
}

func (s *sessionService) ownedSession(ctx context.Context, userID, sessionID primitive.ObjectID) (*domain.WorkoutSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if session.UserID != userID {
		return nil, ErrNotYourSession
	}
	return session, nil
}

func (s *sessionService) ToggleItem(ctx context.Context, userID, sessionID primitive.ObjectID, key string, done bool) (*domain.WorkoutSession, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.CompletedItems == nil {
		session.CompletedItems = make(map[string]bool)
	}
	session.CompletedItems[key] = done
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return session, nil
}

func (s *sessionService) UpdateNotes(ctx context.Context, userID, sessionID primitive.ObjectID, notes string) error {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.sessionRepo.SetNotes(ctx, sessionID, notes); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *sessionService) Finish(ctx context.Context, userID, sessionID primitive.ObjectID, duration string) (*domain.WorkoutSession, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	session.FinishedAt = &now
	if duration != "" {
		session.Duration = duration
	}
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return session, nil
}

func (s *sessionService) ExtendSession(ctx context.Context, userID, sessionID primitive.ObjectID, exercises []domain.Exercise) (*domain.WorkoutSession, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.CompletedItems == nil {
		session.CompletedItems = make(map[string]bool)
	}
	for _, ex := range exercises {
		if _, tracked := session.CompletedItems[ex.Name]; tracked {
			continue // retry-safe: never double-append an extension
		}
		session.ExtendedExercises = append(session.ExtendedExercises, ex)
		session.CompletedItems[ex.Name] = false
	}
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return session, nil
}
