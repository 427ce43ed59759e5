package mongo

import (
	"context"
	"errors"

	"hybridx/training-app/internal/domain"
	"hybridx/training-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionCollectionName = "workoutSessions"

// mongoSessionRepository implements repository.SessionRepository
type mongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new WorkoutSession repository.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
	}
}

// Create inserts a new session. The unique (userId, workoutDate) index turns
// a concurrent double-create into ErrDuplicate, which the reconciler treats
// as "read the winner" instead of silently producing two sessions.
func (r *mongoSessionRepository) Create(ctx context.Context, session *domain.WorkoutSession) (primitive.ObjectID, error) {
	if session.UserID == primitive.NilObjectID || session.Origin == "" {
		return primitive.NilObjectID, errors.New("session requires userId and programId")
	}
	session.ID = primitive.NewObjectID()

	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted session ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single session by its ID.
func (r *mongoSessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error) {
	var session domain.WorkoutSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// FindByUserAndDate retrieves the session for a user on a calendar date.
// Dates are midnight-aligned equality keys.
func (r *mongoSessionRepository) FindByUserAndDate(ctx context.Context, userID primitive.ObjectID, date domain.CalendarDate) (*domain.WorkoutSession, error) {
	filter := bson.M{
		"userId":      userID,
		"workoutDate": date.Time(),
	}
	return r.findOne(ctx, filter)
}

// FindOneOffByUserAndDate retrieves an ad-hoc (AI or custom) session for a
// user on a calendar date, if one exists.
func (r *mongoSessionRepository) FindOneOffByUserAndDate(ctx context.Context, userID primitive.ObjectID, date domain.CalendarDate) (*domain.WorkoutSession, error) {
	filter := bson.M{
		"userId":      userID,
		"workoutDate": date.Time(),
		"programId": bson.M{"$in": bson.A{
			string(domain.OriginOneOffAI),
			string(domain.OriginCustomWorkout),
		}},
	}
	return r.findOne(ctx, filter)
}

func (r *mongoSessionRepository) findOne(ctx context.Context, filter bson.M) (*domain.WorkoutSession, error) {
	var session domain.WorkoutSession
	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// FindByUser retrieves all sessions for a user, newest first.
func (r *mongoSessionRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.WorkoutSession, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "workoutDate", Value: -1}})
	return r.findAll(ctx, bson.M{"userId": userID}, findOptions)
}

// FindByUserBetween retrieves sessions in [from, to], oldest first, for
// calendar views.
func (r *mongoSessionRepository) FindByUserBetween(ctx context.Context, userID primitive.ObjectID, from, to domain.CalendarDate) ([]domain.WorkoutSession, error) {
	filter := bson.M{
		"userId": userID,
		"workoutDate": bson.M{
			"$gte": from.Time(),
			"$lte": to.Time(),
		},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "workoutDate", Value: 1}})
	return r.findAll(ctx, filter, findOptions)
}

func (r *mongoSessionRepository) findAll(ctx context.Context, filter bson.M, findOptions *options.FindOptions) ([]domain.WorkoutSession, error) {
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []domain.WorkoutSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Update replaces the session document in place.
func (r *mongoSessionRepository) Update(ctx context.Context, session *domain.WorkoutSession) error {
	if session.ID == primitive.NilObjectID {
		return errors.New("session ID is required for update")
	}
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, session)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetWorkoutDetails writes or clears the materialized override. Clearing
// must remove the field, not write an empty workout: "no override" and
// "override is empty" are different states.
func (r *mongoSessionRepository) SetWorkoutDetails(ctx context.Context, id primitive.ObjectID, workout *domain.Workout) error {
	var updateDoc bson.M
	if workout == nil {
		updateDoc = bson.M{"$unset": bson.M{"workoutDetails": ""}}
	} else {
		updateDoc = bson.M{"$set": bson.M{
			"workoutDetails": workout,
			"workoutTitle":   workout.Title,
			"programType":    workout.ProgramType,
		}}
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetNotes writes the notes field only. This is the debouncer's flush path.
func (r *mongoSessionRepository) SetNotes(ctx context.Context, id primitive.ObjectID, notes string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"notes": notes}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureSessionIndexes creates necessary indexes on the collection this
// package's repository actually writes to. Call during startup.
// The unique compound index is what makes get-or-create race-safe.
func EnsureSessionIndexes(ctx context.Context, db *mongo.Database) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "workoutDate", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "programId", Value: 1}, {Key: "workoutDate", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = db.Collection(sessionCollectionName).Indexes().CreateMany(ctx, indexes)
}
