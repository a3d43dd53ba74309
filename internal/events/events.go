package events

import "time"

// Kind names an event variant. It doubles as the audit action tag.
type Kind string

// Event is an immutable fact recorded by an aggregate when it changes.
type Event interface {
	Kind() Kind
	AggregateID() string
	OccurredAt() time.Time
}

// Source is implemented by anything holding undrained events.
type Source interface {
	HasPendingEvents() bool
	DrainEvents() []Event
}

// Recorder is an explicit, drainable event buffer meant to be embedded in
// aggregates. It is not safe for concurrent use.
type Recorder struct {
	pending []Event
}

// Record appends an event to the buffer. Nil events are ignored.
func (r *Recorder) Record(e Event) {
	if e == nil {
		return
	}
	r.pending = append(r.pending, e)
}

func (r *Recorder) HasPendingEvents() bool {
	return len(r.pending) > 0
}

// PendingEvents returns a copy of the buffer without clearing it.
func (r *Recorder) PendingEvents() []Event {
	out := make([]Event, len(r.pending))
	copy(out, r.pending)
	return out
}

// DrainEvents returns the buffered events in raise order and clears the buffer.
func (r *Recorder) DrainEvents() []Event {
	out := r.pending
	r.pending = nil
	return out
}

// Collect drains every source in order into one flat list.
func Collect(sources ...Source) []Event {
	var out []Event
	for _, s := range sources {
		if s == nil || !s.HasPendingEvents() {
			continue
		}
		out = append(out, s.DrainEvents()...)
	}
	return out
}
