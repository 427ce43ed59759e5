package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultNotesDebounce is how long after the last keystroke a notes write is
// persisted.
const DefaultNotesDebounce = 1200 * time.Millisecond

type pendingNotes struct {
	userID primitive.ObjectID
	notes  string
	timer  *time.Timer
	seq    uint64
}

// NotesDebouncer coalesces rapid notes edits into a single trailing-edge
// write per session. Only the text present when the quiet period elapses is
// persisted; a Flush persists immediately and cancels the pending timer so a
// stale write can never land afterwards.
type NotesDebouncer struct {
	sessions SessionService
	delay    time.Duration

	mu      sync.Mutex
	pending map[primitive.ObjectID]*pendingNotes
}

func NewNotesDebouncer(sessions SessionService, delay time.Duration) *NotesDebouncer {
	if delay <= 0 {
		delay = DefaultNotesDebounce
	}
	return &NotesDebouncer{
		sessions: sessions,
		delay:    delay,
		pending:  make(map[primitive.ObjectID]*pendingNotes),
	}
}

// Update records the latest notes text for a session and (re)arms the timer.
// Each call supersedes the previous one entirely.
func (d *NotesDebouncer) Update(userID, sessionID primitive.ObjectID, notes string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[sessionID]
	if !ok {
		p = &pendingNotes{userID: userID}
		d.pending[sessionID] = p
	}
	p.notes = notes
	p.seq++
	seq := p.seq

	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(d.delay, func() {
		d.fire(sessionID, seq)
	})
}

func (d *NotesDebouncer) fire(sessionID primitive.ObjectID, seq uint64) {
	d.mu.Lock()
	p, ok := d.pending[sessionID]
	if !ok || p.seq != seq {
		// A newer edit or a flush superseded this timer.
		d.mu.Unlock()
		return
	}
	delete(d.pending, sessionID)
	userID, notes := p.userID, p.notes
	d.mu.Unlock()

	d.persist(userID, sessionID, notes)
}

// Flush persists any pending notes for the session right now, used before
// finishing a session so the final text is never lost to an unexpired timer.
func (d *NotesDebouncer) Flush(ctx context.Context, userID, sessionID primitive.ObjectID) error {
	d.mu.Lock()
	p, ok := d.pending[sessionID]
	if ok {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(d.pending, sessionID)
	}
	d.mu.Unlock()

	if !ok {
		return nil
	}
	return d.sessions.UpdateNotes(ctx, userID, sessionID, p.notes)
}

// FlushAll drains every pending write, used on shutdown.
func (d *NotesDebouncer) FlushAll(ctx context.Context) {
	d.mu.Lock()
	drained := d.pending
	d.pending = make(map[primitive.ObjectID]*pendingNotes)
	for _, p := range drained {
		if p.timer != nil {
			p.timer.Stop()
		}
	}
	d.mu.Unlock()

	for sessionID, p := range drained {
		if err := d.sessions.UpdateNotes(ctx, p.userID, sessionID, p.notes); err != nil {
			logrus.WithError(err).WithField("sessionId", sessionID.Hex()).
				Error("failed to flush session notes on shutdown")
		}
	}
}

func (d *NotesDebouncer) persist(userID, sessionID primitive.ObjectID, notes string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.sessions.UpdateNotes(ctx, userID, sessionID, notes); err != nil {
		logrus.WithError(err).WithField("sessionId", sessionID.Hex()).
			Error("failed to persist debounced session notes")
	}
}
