package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// recordingSessionService captures UpdateNotes calls; everything else panics
// because the debouncer must only ever write notes.
type recordingSessionService struct {
	SessionService

	mu    sync.Mutex
	calls []string
}

func (r *recordingSessionService) UpdateNotes(_ context.Context, _, _ primitive.ObjectID, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, notes)
	return nil
}

func (r *recordingSessionService) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func waitForCalls(t *testing.T, rec *recordingSessionService, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(rec.recorded()) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d persisted writes, got %v", n, rec.recorded())
}

func TestNotesDebouncer_OnlyFinalTextPersists(t *testing.T) {
	rec := &recordingSessionService{}
	d := NewNotesDebouncer(rec, 30*time.Millisecond)
	userID, sessionID := primitive.NewObjectID(), primitive.NewObjectID()

	d.Update(userID, sessionID, "felt g")
	d.Update(userID, sessionID, "felt goo")
	d.Update(userID, sessionID, "felt good today")

	waitForCalls(t, rec, 1)
	time.Sleep(80 * time.Millisecond) // a superseded timer must not fire late
	assert.Equal(t, []string{"felt good today"}, rec.recorded())
}

func TestNotesDebouncer_FlushWritesImmediately(t *testing.T) {
	rec := &recordingSessionService{}
	d := NewNotesDebouncer(rec, time.Hour) // timer never elapses on its own
	userID, sessionID := primitive.NewObjectID(), primitive.NewObjectID()

	d.Update(userID, sessionID, "done, finishing now")
	require.NoError(t, d.Flush(context.Background(), userID, sessionID))
	assert.Equal(t, []string{"done, finishing now"}, rec.recorded())

	// The flushed entry is gone; a second flush has nothing to write.
	require.NoError(t, d.Flush(context.Background(), userID, sessionID))
	assert.Len(t, rec.recorded(), 1)
}

func TestNotesDebouncer_FlushCancelsPendingTimer(t *testing.T) {
	rec := &recordingSessionService{}
	d := NewNotesDebouncer(rec, 30*time.Millisecond)
	userID, sessionID := primitive.NewObjectID(), primitive.NewObjectID()

	d.Update(userID, sessionID, "final text")
	require.NoError(t, d.Flush(context.Background(), userID, sessionID))

	// Even if the armed timer was already past Stop, fire() must see the
	// entry gone and not write a second, stale copy.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"final text"}, rec.recorded())
}

func TestNotesDebouncer_SessionsAreIndependent(t *testing.T) {
	rec := &recordingSessionService{}
	d := NewNotesDebouncer(rec, 30*time.Millisecond)
	userID := primitive.NewObjectID()
	sessA, sessB := primitive.NewObjectID(), primitive.NewObjectID()

	d.Update(userID, sessA, "leg day notes")
	d.Update(userID, sessB, "run notes")

	waitForCalls(t, rec, 2)
	assert.ElementsMatch(t, []string{"leg day notes", "run notes"}, rec.recorded())
}

func TestNotesDebouncer_FlushAllDrainsEverything(t *testing.T) {
	rec := &recordingSessionService{}
	d := NewNotesDebouncer(rec, time.Hour)
	userID := primitive.NewObjectID()
	sessA, sessB := primitive.NewObjectID(), primitive.NewObjectID()

	d.Update(userID, sessA, "notes a")
	d.Update(userID, sessB, "notes b")

	d.FlushAll(context.Background())
	assert.ElementsMatch(t, []string{"notes a", "notes b"}, rec.recorded())

	// Nothing left pending afterwards.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, rec.recorded(), 2)
}

func TestNotesDebouncer_ZeroDelayFallsBackToDefault(t *testing.T) {
	d := NewNotesDebouncer(&recordingSessionService{}, 0)
	assert.Equal(t, DefaultNotesDebounce, d.delay)
}
