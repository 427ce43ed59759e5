package mongo

import (
	"context"
	"errors"
	"time"

	"hybridx/training-app/internal/domain"
	"hybridx/training-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userCollectionName = "users"

// mongoUserRepository implements the repository.UserRepository interface using MongoDB.
type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new instance of mongoUserRepository.
// It expects a connected *mongo.Database instance.
func NewMongoUserRepository(db *mongo.Database) repository.UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(userCollectionName),
	}
}

// Create inserts a new user into the database.
func (r *mongoUserRepository) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.Email == "" || user.PasswordHash == "" || user.Role == "" {
		return primitive.NilObjectID, errors.New("user email, password hash, and role are required")
	}

	user.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByEmail retrieves a user by their email address.
func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by their ObjectID.
func (r *mongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByStripeCustomerID retrieves the user owning a Stripe customer.
// Used by webhook handlers, which only know the customer id.
func (r *mongoUserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, bson.M{"stripeCustomerId": customerID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update replaces the stored user document (except _id and createdAt).
func (r *mongoUserRepository) Update(ctx context.Context, user *domain.User) error {
	if user.ID == primitive.NilObjectID {
		return errors.New("user ID is required for update")
	}
	user.UpdatedAt = time.Now().UTC()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetSchedule sets or clears the user's active program mapping. ProgramID and
// startDate travel together: both nil clears the schedule, both set installs
// it; mixed input is rejected.
func (r *mongoUserRepository) SetSchedule(ctx context.Context, userID primitive.ObjectID, programID *primitive.ObjectID, startDate *time.Time) error {
	if (programID == nil) != (startDate == nil) {
		return errors.New("programId and startDate must be set or cleared together")
	}

	var updateDoc bson.M
	if programID == nil {
		updateDoc = bson.M{
			"$unset": bson.M{"programId": "", "startDate": ""},
			"$set":   bson.M{"updatedAt": time.Now().UTC()},
		}
	} else {
		updateDoc = bson.M{
			"$set": bson.M{
				"programId": *programID,
				"startDate": *startDate,
				"updatedAt": time.Now().UTC(),
			},
		}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureUserIndexes creates necessary indexes. Call during startup.
func EnsureUserIndexes(ctx context.Context, db *mongo.Database) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "stripeCustomerId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
	_, _ = db.Collection(userCollectionName).Indexes().CreateMany(ctx, indexes)
}
