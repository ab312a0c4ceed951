package testutil

import (
	"sync"

	"github.com/mcoot/drawguess/internal/model"
)

// RecordingDispatcher captures every dispatched envelope for assertions
type RecordingDispatcher struct {
	mu        sync.Mutex
	envelopes []model.Envelope
}

// NewRecordingDispatcher creates an empty RecordingDispatcher
func NewRecordingDispatcher() *RecordingDispatcher {
	return &RecordingDispatcher{}
}

// Dispatch records the envelope
func (d *RecordingDispatcher) Dispatch(env model.Envelope) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.envelopes = append(d.envelopes, env)
}

// All returns every envelope recorded so far
func (d *RecordingDispatcher) All() []model.Envelope {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Envelope(nil), d.envelopes...)
}

// Reset forgets recorded envelopes
func (d *RecordingDispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.envelopes = nil
}

// OfType returns recorded envelopes of the given type
func (d *RecordingDispatcher) OfType(typ model.EventType) []model.Envelope {
	var out []model.Envelope
	for _, env := range d.All() {
		if env.Type == typ {
			out = append(out, env)
		}
	}
	return out
}

// Last returns the most recent envelope of the given type
func (d *RecordingDispatcher) Last(typ model.EventType) (model.Envelope, bool) {
	matching := d.OfType(typ)
	if len(matching) == 0 {
		return model.Envelope{}, false
	}
	return matching[len(matching)-1], true
}

// To returns recorded envelopes of the given type delivered to a session
func (d *RecordingDispatcher) To(id model.SessionID, typ model.EventType) []model.Envelope {
	var out []model.Envelope
	for _, env := range d.OfType(typ) {
		for _, r := range env.Recipients {
			if r == id {
				out = append(out, env)
				break
			}
		}
	}
	return out
}

// Types returns the sequence of recorded event types
func (d *RecordingDispatcher) Types() []model.EventType {
	all := d.All()
	types := make([]model.EventType, len(all))
	for i, env := range all {
		types[i] = env.Type
	}
	return types
}
