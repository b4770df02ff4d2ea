package playback

import (
	"slices"
	"time"
)

// State is the persisted form of the timeline.
type State struct {
	Current *QueueItem  `json:"current,omitempty"`
	Queue   []QueueItem `json:"queue"`

	// Time is the start of the current item in Unix milliseconds.
	Time int64 `json:"time"`

	NextID     int64 `json:"nextId"`
	Restricted bool  `json:"restricted,omitempty"`
}

// Snapshot copies the timeline for persistence.
func (s *Scheduler) Snapshot() State {
	state := State{
		Queue:      slices.Clone(s.queue),
		NextID:     s.nextID,
		Restricted: s.restricted,
	}
	if state.Queue == nil {
		state.Queue = []QueueItem{}
	}
	if s.current != nil {
		current := *s.current
		state.Current = &current
		state.Time = s.start.UnixMilli()
	}
	return state
}

// Restore replaces the timeline with state. Call Resume afterwards to arm
// the timer.
func (s *Scheduler) Restore(state State) {
	s.stopTimer()
	clear(s.votes)

	s.queue = slices.Clone(state.Queue)
	s.restricted = state.Restricted
	s.current = nil
	s.start = time.Time{}
	if state.Current != nil {
		current := *state.Current
		s.current = &current
		s.start = time.UnixMilli(state.Time)
	}

	s.nextID = max(state.NextID, 1)
	for _, item := range s.queue {
		s.nextID = max(s.nextID, item.ItemID+1)
	}
	if s.current != nil {
		s.nextID = max(s.nextID, s.current.ItemID+1)
	}
}
