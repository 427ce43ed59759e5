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

const mediaCollectionName = "media"

// mongoMediaRepository implements repository.MediaRepository
type mongoMediaRepository struct {
	collection *mongo.Collection
}

// NewMongoMediaRepository creates a new media metadata repository.
func NewMongoMediaRepository(db *mongo.Database) repository.MediaRepository {
	return &mongoMediaRepository{
		collection: db.Collection(mediaCollectionName),
	}
}

// Create inserts upload metadata after the object landed in S3.
func (r *mongoMediaRepository) Create(ctx context.Context, media *domain.MediaObject) (primitive.ObjectID, error) {
	if media.UserID == primitive.NilObjectID || media.S3ObjectKey == "" {
		return primitive.NilObjectID, errors.New("media requires userId and s3ObjectKey")
	}
	media.ID = primitive.NewObjectID()
	media.UploadedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, media)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted media ID")
	}
	return insertedID, nil
}

// GetByID retrieves upload metadata by its ID.
func (r *mongoMediaRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.MediaObject, error) {
	var media domain.MediaObject
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&media)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &media, nil
}

// ListByUser retrieves a user's uploads of a given kind, newest first.
func (r *mongoMediaRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, kind domain.MediaKind) ([]domain.MediaObject, error) {
	filter := bson.M{"userId": userID}
	if kind != "" {
		filter["kind"] = kind
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var media []domain.MediaObject
	if err = cursor.All(ctx, &media); err != nil {
		return nil, err
	}
	return media, nil
}

// Delete removes upload metadata.
func (r *mongoMediaRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureMediaIndexes creates necessary indexes. Call during startup.
func EnsureMediaIndexes(ctx context.Context, db *mongo.Database) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "kind", Value: 1}, {Key: "uploadedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, _ = db.Collection(mediaCollectionName).Indexes().CreateMany(ctx, indexes)
}
