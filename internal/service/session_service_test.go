package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"hybridx/training-app/internal/domain"
	"hybridx/training-app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- In-memory fakes ---

type fakeSessionRepo struct {
	sessions map[primitive.ObjectID]*domain.WorkoutSession
	// failNextUpdateFor makes the next Update/SetWorkoutDetails on this
	// session fail once, for compensation tests.
	failNextUpdateFor primitive.ObjectID
	// beforeCreate runs once at the start of the next Create, to simulate a
	// concurrent insert landing between a caller's read and its write.
	beforeCreate func()
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[primitive.ObjectID]*domain.WorkoutSession)}
}

func cloneSession(s *domain.WorkoutSession) *domain.WorkoutSession {
	c := *s
	if s.CompletedItems != nil {
		c.CompletedItems = make(map[string]bool, len(s.CompletedItems))
		for k, v := range s.CompletedItems {
			c.CompletedItems[k] = v
		}
	}
	if s.WorkoutDetails != nil {
		w := *s.WorkoutDetails
		c.WorkoutDetails = &w
	}
	return &c
}

func (r *fakeSessionRepo) Create(_ context.Context, session *domain.WorkoutSession) (primitive.ObjectID, error) {
	if r.beforeCreate != nil {
		hook := r.beforeCreate
		r.beforeCreate = nil
		hook()
	}
	date := domain.NewCalendarDate(session.WorkoutDate)
	for _, existing := range r.sessions {
		if existing.UserID == session.UserID && domain.NewCalendarDate(existing.WorkoutDate).Equal(date) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	session.ID = primitive.NewObjectID()
	r.sessions[session.ID] = cloneSession(session)
	return session.ID, nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *fakeSessionRepo) FindByUserAndDate(_ context.Context, userID primitive.ObjectID, date domain.CalendarDate) (*domain.WorkoutSession, error) {
	for _, s := range r.sessions {
		if s.UserID == userID && domain.NewCalendarDate(s.WorkoutDate).Equal(date) {
			return cloneSession(s), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSessionRepo) FindOneOffByUserAndDate(_ context.Context, userID primitive.ObjectID, date domain.CalendarDate) (*domain.WorkoutSession, error) {
	for _, s := range r.sessions {
		if s.UserID == userID && domain.NewCalendarDate(s.WorkoutDate).Equal(date) && s.Origin.IsOneOff() {
			return cloneSession(s), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSessionRepo) FindByUser(_ context.Context, userID primitive.ObjectID) ([]domain.WorkoutSession, error) {
	var out []domain.WorkoutSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, *cloneSession(s))
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) FindByUserBetween(_ context.Context, userID primitive.ObjectID, from, to domain.CalendarDate) ([]domain.WorkoutSession, error) {
	var out []domain.WorkoutSession
	for _, s := range r.sessions {
		date := domain.NewCalendarDate(s.WorkoutDate)
		if s.UserID == userID && !date.Before(from) && !to.Before(date) {
			out = append(out, *cloneSession(s))
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Update(_ context.Context, session *domain.WorkoutSession) error {
	if r.failNextUpdateFor == session.ID {
		r.failNextUpdateFor = primitive.NilObjectID
		return repository.ErrUpdateFailed
	}
	if _, ok := r.sessions[session.ID]; !ok {
		return repository.ErrNotFound
	}
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *fakeSessionRepo) SetWorkoutDetails(_ context.Context, id primitive.ObjectID, workout *domain.Workout) error {
	if r.failNextUpdateFor == id {
		r.failNextUpdateFor = primitive.NilObjectID
		return repository.ErrUpdateFailed
	}
	s, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if workout == nil {
		s.WorkoutDetails = nil
		return nil
	}
	w := *workout
	s.WorkoutDetails = &w
	s.WorkoutTitle = w.Title
	return nil
}

func (r *fakeSessionRepo) SetNotes(_ context.Context, id primitive.ObjectID, notes string) error {
	s, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.Notes = notes
	return nil
}

type fakeUserRepo struct {
	users map[primitive.ObjectID]*domain.User
	// getErr makes every GetByID fail, updateErr every Update, for
	// transient-failure tests.
	getErr    error
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	user.ID = primitive.NewObjectID()
	r.users[user.ID] = user
	return user.ID, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByStripeCustomerID(_ context.Context, customerID string) (*domain.User, error) {
	for _, u := range r.users {
		if u.StripeCustomerID == customerID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) SetSchedule(_ context.Context, userID primitive.ObjectID, programID *primitive.ObjectID, startDate *time.Time) error {
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.ProgramID = programID
	u.StartDate = startDate
	return nil
}

type fakeProgramRepo struct {
	programs map[primitive.ObjectID]*domain.Program
}

func newFakeProgramRepo() *fakeProgramRepo {
	return &fakeProgramRepo{programs: make(map[primitive.ObjectID]*domain.Program)}
}

func (r *fakeProgramRepo) Create(_ context.Context, program *domain.Program) (primitive.ObjectID, error) {
	program.ID = primitive.NewObjectID()
	r.programs[program.ID] = program
	return program.ID, nil
}

func (r *fakeProgramRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Program, error) {
	p, ok := r.programs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *fakeProgramRepo) GetAll(_ context.Context) ([]domain.Program, error) {
	var out []domain.Program
	for _, p := range r.programs {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeProgramRepo) Update(_ context.Context, program *domain.Program) error {
	if _, ok := r.programs[program.ID]; !ok {
		return repository.ErrNotFound
	}
	r.programs[program.ID] = program
	return nil
}

func (r *fakeProgramRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := r.programs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.programs, id)
	return nil
}

// --- Fixture ---

type sessionFixture struct {
	svc         SessionService
	sessionRepo *fakeSessionRepo
	userRepo    *fakeUserRepo
	programRepo *fakeProgramRepo
	userID      primitive.ObjectID
	programID   primitive.ObjectID
	start       domain.CalendarDate
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	sessionRepo := newFakeSessionRepo()
	userRepo := newFakeUserRepo()
	programRepo := newFakeProgramRepo()

	program := &domain.Program{
		Name:        "Hybrid Base",
		ProgramType: domain.ProgramTypeHyrox,
		Workouts: []domain.Workout{
			{Day: 1, Title: "Strength A", ProgramType: domain.ProgramTypeHyrox,
				Exercises: []domain.Exercise{{Name: "Back Squat", Details: "5x5"}, {Name: "Sled Push", Details: "4x25m"}}},
			{Day: 2, Title: "Engine Intervals", ProgramType: domain.ProgramTypeHyrox,
				Exercises: []domain.Exercise{{Name: "Row", Details: "5x500m"}}},
			{Day: 3, Title: "Long Run", ProgramType: domain.ProgramTypeRunning,
				Runs: []domain.PlannedRun{{Type: "long", Description: "70min easy", PaceZone: domain.PaceEasy}}},
		},
	}
	programID, err := programRepo.Create(context.Background(), program)
	require.NoError(t, err)

	start := domain.DateOf(2025, time.April, 7)
	startTime := start.Time()
	user := &domain.User{
		Email:     "athlete@example.com",
		Role:      domain.RoleAthlete,
		ProgramID: &programID,
		StartDate: &startTime,
	}
	userID, err := userRepo.Create(context.Background(), user)
	require.NoError(t, err)

	return &sessionFixture{
		svc:         NewSessionService(sessionRepo, userRepo, programRepo),
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		programRepo: programRepo,
		userID:      userID,
		programID:   programID,
		start:       start,
	}
}

// --- Tests ---

func TestResolveDay_CreatesSessionFromSchedule(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	res, err := f.svc.ResolveDay(ctx, f.userID, f.start)
	require.NoError(t, err)
	require.NotNil(t, res.Workout)
	require.NotNil(t, res.Session)
	assert.Equal(t, 1, res.Day)
	assert.Equal(t, "Strength A", res.Workout.Title)
	assert.Equal(t, domain.ProgramOrigin(f.programID), res.Session.Origin)

	// Program-derived sessions carry no snapshot; the program stays the
	// source of truth until a swap or one-off overrides it.
	assert.Nil(t, res.Session.WorkoutDetails)
	assert.Equal(t, map[string]bool{"Back Squat": false, "Sled Push": false}, res.Session.CompletedItems)
}

func TestResolveDay_Idempotent(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	first, err := f.svc.ResolveDay(ctx, f.userID, f.start)
	require.NoError(t, err)
	second, err := f.svc.ResolveDay(ctx, f.userID, f.start)
	require.NoError(t, err)

	assert.Equal(t, first.Session.ID, second.Session.ID)
	assert.Len(t, f.sessionRepo.sessions, 1)
}

func TestResolveDay_RestDayCreatesNothing(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	// Dates before the schedule start have no program day at all.
	res, err := f.svc.ResolveDay(ctx, f.userID, f.start.AddDays(-5))
	require.NoError(t, err)
	assert.Nil(t, res.Workout)
	assert.Nil(t, res.Session)
	assert.Empty(t, f.sessionRepo.sessions)
}

func TestResolveDay_OneOffTakesPrecedence(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	custom := &domain.Workout{
		Title:       "Garage Session",
		ProgramType: domain.ProgramTypeHyrox,
		Exercises:   []domain.Exercise{{Name: "KB Swings", Details: "100 total"}},
	}
	oneOff, err := f.svc.GetOrCreate(ctx, f.userID, domain.OriginCustomWorkout, f.start, custom, SessionOptions{Overwrite: true})
	require.NoError(t, err)

	res, err := f.svc.ResolveDay(ctx, f.userID, f.start)
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, oneOff.ID, res.Session.ID)
	assert.Equal(t, "Garage Session", res.Workout.Title)
}

func TestGetOrCreate_ExistingWins(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	workout := &domain.Workout{Title: "Strength A", Exercises: []domain.Exercise{{Name: "Back Squat"}}}

	first, err := f.svc.GetOrCreate(ctx, f.userID, domain.ProgramOrigin(f.programID), f.start, workout, SessionOptions{})
	require.NoError(t, err)

	// Mark progress, then ask again: progress must survive.
	_, err = f.svc.ToggleItem(ctx, f.userID, first.ID, "Back Squat", true)
	require.NoError(t, err)

	again, err := f.svc.GetOrCreate(ctx, f.userID, domain.ProgramOrigin(f.programID), f.start, workout, SessionOptions{})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.True(t, again.CompletedItems["Back Squat"])
}

func TestGetOrCreate_OverwriteReplacesInPlace(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	first, err := f.svc.GetOrCreate(ctx, f.userID, domain.ProgramOrigin(f.programID), f.start,
		&domain.Workout{Title: "Strength A", Exercises: []domain.Exercise{{Name: "Back Squat"}}}, SessionOptions{})
	require.NoError(t, err)

	aiWorkout := &domain.Workout{Title: "AI Blast", Exercises: []domain.Exercise{{Name: "Burpees", Details: "5x20"}}}
	replaced, err := f.svc.GetOrCreate(ctx, f.userID, domain.OriginOneOffAI, f.start, aiWorkout, SessionOptions{Overwrite: true})
	require.NoError(t, err)

	// Same document, new content. No duplicate for the date.
	assert.Equal(t, first.ID, replaced.ID)
	assert.Equal(t, "AI Blast", replaced.WorkoutTitle)
	assert.Equal(t, domain.OriginOneOffAI, replaced.Origin)
	require.NotNil(t, replaced.WorkoutDetails)
	assert.Len(t, f.sessionRepo.sessions, 1)
}

func TestGetOrCreate_DuplicateInsertBecomesRead(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	workout := &domain.Workout{Title: "Strength A", Exercises: []domain.Exercise{{Name: "Back Squat"}}}

	// Another request (second tab) inserts between our read and our write.
	var winnerID primitive.ObjectID
	f.sessionRepo.beforeCreate = func() {
		winner := &domain.WorkoutSession{
			UserID:         f.userID,
			Origin:         domain.ProgramOrigin(f.programID),
			WorkoutDate:    f.start.Time(),
			WorkoutTitle:   "Strength A",
			CompletedItems: map[string]bool{"Back Squat": true},
		}
		id, err := f.sessionRepo.Create(ctx, winner)
		require.NoError(t, err)
		winnerID = id
	}

	got, err := f.svc.GetOrCreate(ctx, f.userID, domain.ProgramOrigin(f.programID), f.start, workout, SessionOptions{})
	require.NoError(t, err)
	assert.Equal(t, winnerID, got.ID, "the loser must read the winner's document")
	assert.True(t, got.CompletedItems["Back Squat"], "the winner's progress must be preserved")
	assert.Len(t, f.sessionRepo.sessions, 1)
}

func TestSwapWorkouts_RoundTrip(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	day1, day2 := f.start, f.start.AddDays(1)

	require.NoError(t, f.svc.SwapWorkouts(ctx, f.userID, day1, day2))

	res1, err := f.svc.ResolveDay(ctx, f.userID, day1)
	require.NoError(t, err)
	res2, err := f.svc.ResolveDay(ctx, f.userID, day2)
	require.NoError(t, err)
	assert.Equal(t, "Engine Intervals", res1.Workout.Title)
	assert.Equal(t, "Strength A", res2.Workout.Title)

	// Swapping back restores the original order.
	require.NoError(t, f.svc.SwapWorkouts(ctx, f.userID, day1, day2))
	res1, err = f.svc.ResolveDay(ctx, f.userID, day1)
	require.NoError(t, err)
	res2, err = f.svc.ResolveDay(ctx, f.userID, day2)
	require.NoError(t, err)
	assert.Equal(t, "Strength A", res1.Workout.Title)
	assert.Equal(t, "Engine Intervals", res2.Workout.Title)
}

func TestSwapWorkouts_IntoEmptyDay(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	day1 := f.start
	empty := f.start.AddDays(-3) // before the schedule start: nothing mapped

	require.NoError(t, f.svc.SwapWorkouts(ctx, f.userID, day1, empty))

	// The empty date received day 1's workout on a program-origin session:
	// swapping must never mint a one-off that would outrank the schedule.
	afterEmpty, err := f.svc.ResolveDay(ctx, f.userID, empty)
	require.NoError(t, err)
	require.NotNil(t, afterEmpty.Workout)
	assert.Equal(t, "Strength A", afterEmpty.Workout.Title)
	assert.True(t, afterEmpty.Session.Origin.IsProgram())

	// Day 1 holds an explicit rest override. Without it, re-resolution from
	// the program would resurrect "Strength A" and duplicate the workout.
	after1, err := f.svc.ResolveDay(ctx, f.userID, day1)
	require.NoError(t, err)
	require.NotNil(t, after1.Session)
	require.NotNil(t, after1.Session.WorkoutDetails)
	assert.Equal(t, "Rest Day", after1.Session.WorkoutDetails.Title)
	assert.True(t, domain.IsRestTitle(after1.Session.WorkoutDetails.Title))
}

func TestSwapWorkouts_AbortsWhenUserReadFails(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	f.userRepo.getErr = errors.New("read timeout")
	err := f.svc.SwapWorkouts(ctx, f.userID, f.start, f.start.AddDays(1))
	require.ErrorIs(t, err, ErrPersistence)

	// A transient read must not mint any session, one-off or otherwise.
	assert.Empty(t, f.sessionRepo.sessions)
}

func TestSwapWorkouts_CompensatesOnPartialFailure(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	day1, day2 := f.start, f.start.AddDays(1)

	// Materialize both sessions, then make the second write fail.
	res1, err := f.svc.ResolveDay(ctx, f.userID, day1)
	require.NoError(t, err)
	_, err = f.svc.ResolveDay(ctx, f.userID, day2)
	require.NoError(t, err)
	f.sessionRepo.failNextUpdateFor = res1.Session.ID

	err = f.svc.SwapWorkouts(ctx, f.userID, day1, day2)
	require.Error(t, err)

	// Neither date may show the swapped state.
	after1, err := f.svc.ResolveDay(ctx, f.userID, day1)
	require.NoError(t, err)
	after2, err := f.svc.ResolveDay(ctx, f.userID, day2)
	require.NoError(t, err)
	assert.Equal(t, "Strength A", after1.Workout.Title)
	assert.Equal(t, "Engine Intervals", after2.Workout.Title)
}

func TestLinkStravaActivity_CreatesPlaceholder(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	activity := StravaActivity{
		ID:         12345,
		Name:       "Morning Run",
		Distance:   8012,
		MovingTime: 2400,
		SportType:  "Run",
		StartDate:  f.start.AddDays(10).Time().Add(7 * time.Hour),
	}

	session, err := f.svc.LinkStravaActivity(ctx, f.userID, activity)
	require.NoError(t, err)

	assert.Equal(t, domain.OriginStravaLinked, session.Origin)
	require.NotNil(t, session.FinishedAt)
	assert.Equal(t, activity.StartDate, *session.FinishedAt)
	assert.Equal(t, "12345", session.StravaID)
	require.NotNil(t, session.WorkoutDetails)
	for key, done := range session.CompletedItems {
		assert.True(t, done, "item %q should be complete", key)
	}
}

func TestLinkStravaActivity_Idempotent(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	activity := StravaActivity{
		ID:         777,
		Name:       "Intervals",
		Distance:   5000,
		MovingTime: 1500,
		SportType:  "Run",
		StartDate:  f.start.Time().Add(6 * time.Hour),
	}

	first, err := f.svc.LinkStravaActivity(ctx, f.userID, activity)
	require.NoError(t, err)
	second, err := f.svc.LinkStravaActivity(ctx, f.userID, activity)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.StravaID, second.StravaID)
	assert.Len(t, f.sessionRepo.sessions, 1)
}

func TestLinkStravaActivity_ChecksOffScheduledWorkout(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	// The athlete already opened today's program session.
	res, err := f.svc.ResolveDay(ctx, f.userID, f.start)
	require.NoError(t, err)

	activity := StravaActivity{
		ID:        99,
		Name:      "Logged on watch",
		SportType: "Workout",
		StartDate: f.start.Time().Add(8 * time.Hour),
	}
	linked, err := f.svc.LinkStravaActivity(ctx, f.userID, activity)
	require.NoError(t, err)

	assert.Equal(t, res.Session.ID, linked.ID)
	assert.True(t, linked.Finished())
	assert.True(t, linked.CompletedItems["Back Squat"])
	assert.True(t, linked.CompletedItems["Sled Push"])
}

func TestFinishAndToggleOwnership(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	res, err := f.svc.ResolveDay(ctx, f.userID, f.start)
	require.NoError(t, err)

	stranger := primitive.NewObjectID()
	_, err = f.svc.ToggleItem(ctx, stranger, res.Session.ID, "Back Squat", true)
	assert.ErrorIs(t, err, ErrNotYourSession)

	_, err = f.svc.Finish(ctx, stranger, res.Session.ID, "45:00")
	assert.ErrorIs(t, err, ErrNotYourSession)

	finished, err := f.svc.Finish(ctx, f.userID, res.Session.ID, "45:00")
	require.NoError(t, err)
	assert.True(t, finished.Finished())
	assert.Equal(t, "45:00", finished.Duration)
}

func TestExtendSession_NoDuplicateAppends(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	res, err := f.svc.ResolveDay(ctx, f.userID, f.start)
	require.NoError(t, err)

	extras := []domain.Exercise{{Name: "Plank", Details: "3x60s"}, {Name: "Farmers Carry", Details: "4x40m"}}
	extended, err := f.svc.ExtendSession(ctx, f.userID, res.Session.ID, extras)
	require.NoError(t, err)
	assert.Len(t, extended.ExtendedExercises, 2)
	assert.Contains(t, extended.CompletedItems, "Plank")

	// A retried request must not double-append.
	extended, err = f.svc.ExtendSession(ctx, f.userID, res.Session.ID, extras)
	require.NoError(t, err)
	assert.Len(t, extended.ExtendedExercises, 2)
}
