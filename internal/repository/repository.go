package repository

import (
	"context"
	"time"

	"hybridx/training-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate document")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	SetSchedule(ctx context.Context, userID primitive.ObjectID, programID *primitive.ObjectID, startDate *time.Time) error
}

// ProgramRepository defines the interface for interacting with program data.
type ProgramRepository interface {
	Create(ctx context.Context, program *domain.Program) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Program, error)
	GetAll(ctx context.Context) ([]domain.Program, error)
	Update(ctx context.Context, program *domain.Program) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// SessionRepository defines the interface for interacting with workout
// session data. Sessions are keyed by (userId, workoutDate); Create must
// return ErrDuplicate when that key already exists so callers can treat a
// lost insert race as a successful read.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.WorkoutSession) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error)
	FindByUserAndDate(ctx context.Context, userID primitive.ObjectID, date domain.CalendarDate) (*domain.WorkoutSession, error)
	FindOneOffByUserAndDate(ctx context.Context, userID primitive.ObjectID, date domain.CalendarDate) (*domain.WorkoutSession, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.WorkoutSession, error)
	FindByUserBetween(ctx context.Context, userID primitive.ObjectID, from, to domain.CalendarDate) ([]domain.WorkoutSession, error)
	Update(ctx context.Context, session *domain.WorkoutSession) error
	// SetWorkoutDetails writes or clears the materialized workout override on
	// a session. A nil workout clears the override entirely.
	SetWorkoutDetails(ctx context.Context, id primitive.ObjectID, workout *domain.Workout) error
	SetNotes(ctx context.Context, id primitive.ObjectID, notes string) error
}

// MediaRepository defines the interface for interacting with upload metadata.
type MediaRepository interface {
	Create(ctx context.Context, media *domain.MediaObject) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.MediaObject, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, kind domain.MediaKind) ([]domain.MediaObject, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
