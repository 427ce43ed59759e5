package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// The session reconciler depends on the unique (userId, workoutDate) index
// landing on the collection the repository actually inserts into; an index on
// a differently named collection would silently disable the duplicate-key
// defense. This pins every repository to the name its index helper targets.
func TestRepositoriesBindIndexedCollections(t *testing.T) {
	// Connect is lazy; no server is contacted until an operation runs.
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://localhost:27017"))
	require.NoError(t, err)
	db := client.Database("test")

	sessions := NewMongoSessionRepository(db).(*mongoSessionRepository)
	assert.Equal(t, sessionCollectionName, sessions.collection.Name())

	users := NewMongoUserRepository(db).(*mongoUserRepository)
	assert.Equal(t, userCollectionName, users.collection.Name())

	programs := NewMongoProgramRepository(db).(*mongoProgramRepository)
	assert.Equal(t, programCollectionName, programs.collection.Name())

	media := NewMongoMediaRepository(db).(*mongoMediaRepository)
	assert.Equal(t, mediaCollectionName, media.collection.Name())
}
