/*
Package playback owns the zone's single shared timeline.

The Scheduler is a two-state machine (Idle, Playing) over a FIFO queue. The
timeline is stored as the current item plus the wall-clock instant it started;
anyone's elapsed time is now minus start, so late timers or a busy process
never make clients drift. One timer is armed for the remaining duration of
the current item and is rearmed or cancelled on every transition.

A Scheduler is not safe for concurrent use. The zone loop owns it; timer
wake-ups are handed back to that loop through the wake callback.
*/
package playback

import (
	"math"
	"slices"
	"strconv"
	"time"

	"zone/internal/pkg/clock"
	"zone/internal/pkg/errs"
)

const (
	// DefaultPerSubmitterLimit caps queued items per network identity.
	DefaultPerSubmitterLimit = 3

	// DefaultVoteThreshold is the share of live users needed to vote-skip.
	DefaultVoteThreshold = 0.6

	// thresholdEpsilon absorbs float error in users*threshold products
	// such as 5*0.6.
	thresholdEpsilon = 1e-9
)

// Config tunes queue governance.
type Config struct {
	PerSubmitterLimit int
	VoteThreshold     float64
}

// Listener receives timeline events. Calls happen synchronously on the
// goroutine that drives the Scheduler.
type Listener interface {
	// Queued is called after an item is appended.
	Queued(item QueueItem)

	// Unqueued is called after a queued item is removed.
	Unqueued(itemID int64)

	// Played is called on every transition. item is nil when playback stops.
	Played(item *QueueItem, elapsed time.Duration)
}

// SkipResult reports the outcome of a skip request.
type SkipResult struct {
	Skipped bool
	Votes   int
	Needed  int
}

// Scheduler is the playback state machine.
type Scheduler struct {
	clock    clock.Clock
	cfg      Config
	listener Listener
	wake     func()

	current    *QueueItem
	start      time.Time
	queue      []QueueItem
	nextID     int64
	restricted bool
	votes      map[string]struct{}
	timer      clock.Timer
}

// New returns an idle Scheduler. wake is called from the timer's goroutine
// when the current item should be over; the owner must call Advance from
// its own goroutine in response. A nil wake calls Advance directly.
func New(c clock.Clock, cfg Config, listener Listener, wake func()) *Scheduler {
	if cfg.PerSubmitterLimit <= 0 {
		cfg.PerSubmitterLimit = DefaultPerSubmitterLimit
	}
	if cfg.VoteThreshold <= 0 || cfg.VoteThreshold > 1 {
		cfg.VoteThreshold = DefaultVoteThreshold
	}
	s := &Scheduler{
		clock:    c,
		cfg:      cfg,
		listener: listener,
		wake:     wake,
		nextID:   1,
		votes:    make(map[string]struct{}),
	}
	if s.wake == nil {
		s.wake = s.Advance
	}
	return s
}

// Enqueue appends media to the queue and re-evaluates the timeline.
func (s *Scheduler) Enqueue(media Media, actor Actor, banger bool) (QueueItem, error) {
	if err := media.Validate(); err != nil {
		return QueueItem{}, err
	}
	if s.restricted && !actor.Admin && !actor.DJ {
		return QueueItem{}, errs.NewError(errs.ErrForbidden, "queue media during an event")
	}
	for _, queued := range s.queue {
		if queued.Media.Src == media.Src {
			return QueueItem{}, errs.NewError(errs.ErrDuplicateMedia)
		}
	}
	if s.countBySubmitter(actor.IP) >= s.cfg.PerSubmitterLimit {
		return QueueItem{}, errs.NewError(errs.ErrQueueLimit, strconv.Itoa(s.cfg.PerSubmitterLimit))
	}

	item := QueueItem{
		ItemID: s.nextID,
		Media:  media,
		Info:   Info{UserID: actor.UserID, IP: actor.IP, Banger: banger},
	}
	s.nextID++
	s.queue = append(s.queue, item)

	s.listener.Queued(item)
	s.Advance()
	return item, nil
}

func (s *Scheduler) countBySubmitter(ip string) int {
	n := 0
	for _, queued := range s.queue {
		if queued.Info.IP == ip {
			n++
		}
	}
	return n
}

// Advance moves to the next item if the zone is idle or the current item's
// deadline has passed. Otherwise it does nothing.
func (s *Scheduler) Advance() {
	now := s.clock.Now()
	if s.current != nil && now.Before(s.deadline()) {
		return
	}
	s.next(now)
}

// next pops the queue head unconditionally.
func (s *Scheduler) next(now time.Time) {
	wasPlaying := s.current != nil
	s.stopTimer()
	clear(s.votes)

	if len(s.queue) == 0 {
		s.current = nil
		s.start = time.Time{}
		if wasPlaying {
			s.listener.Played(nil, 0)
		}
		return
	}

	head := s.queue[0]
	s.queue = slices.Delete(s.queue, 0, 1)
	s.current = &head
	s.start = now

	s.arm(head.Media.Length())
	s.listener.Played(s.current, 0)
}

func (s *Scheduler) deadline() time.Time {
	return s.start.Add(s.current.Media.Length())
}

func (s *Scheduler) arm(remaining time.Duration) {
	if remaining < 0 {
		remaining = 0
	}
	s.timer = s.clock.AfterFunc(remaining, s.wake)
}

func (s *Scheduler) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Resume rearms the timer for a restored timeline, or advances if the
// restored item already ran out.
func (s *Scheduler) Resume() {
	if s.current == nil {
		s.Advance()
		return
	}
	now := s.clock.Now()
	if !now.Before(s.deadline()) {
		s.next(now)
		return
	}
	s.stopTimer()
	s.arm(s.deadline().Sub(now))
}

// Skip handles a skip request for itemID. Requests for anything but the
// current item are stale and rejected. An override skips immediately.
// Otherwise the actor's vote is recorded and the skip happens once
// ceil(liveUsers * threshold) distinct users voted. During restricted mode
// only admins and DJs may skip, and they skip without a vote.
func (s *Scheduler) Skip(itemID int64, actor Actor, liveUsers int) (SkipResult, error) {
	if s.current == nil || s.current.ItemID != itemID {
		return SkipResult{}, errs.NewError(errs.ErrStaleSkip)
	}

	if actor.Override || (s.restricted && (actor.Admin || actor.DJ)) {
		s.next(s.clock.Now())
		return SkipResult{Skipped: true}, nil
	}
	if s.restricted {
		return SkipResult{}, errs.NewError(errs.ErrForbidden, "skip during an event")
	}

	s.votes[actor.UserID] = struct{}{}
	result := SkipResult{Votes: len(s.votes), Needed: s.VotesNeeded(liveUsers)}
	if result.Votes >= result.Needed {
		s.next(s.clock.Now())
		result.Skipped = true
	}
	return result, nil
}

// Withdraw drops userID's skip vote. Call it when the user leaves so the
// tally only counts live voters.
func (s *Scheduler) Withdraw(userID string) {
	delete(s.votes, userID)
}

// VotesNeeded returns ceil(liveUsers * threshold), at least 1.
func (s *Scheduler) VotesNeeded(liveUsers int) int {
	needed := int(math.Ceil(float64(liveUsers)*s.cfg.VoteThreshold - thresholdEpsilon))
	return max(needed, 1)
}

// Remove deletes a queued item. The submitter, admins, and DJs during
// restricted mode may remove it.
func (s *Scheduler) Remove(itemID int64, actor Actor) error {
	i := slices.IndexFunc(s.queue, func(q QueueItem) bool { return q.ItemID == itemID })
	if i < 0 {
		return errs.NewError(errs.ErrItemNotFound)
	}

	item := s.queue[i]
	owner := item.Info.UserID != "" && item.Info.UserID == actor.UserID
	if !owner && !actor.Admin && !(s.restricted && actor.DJ) {
		return errs.NewError(errs.ErrForbidden, "remove someone else's item")
	}

	s.queue = slices.Delete(s.queue, i, i+1)
	s.listener.Unqueued(itemID)
	return nil
}

// SetRestricted toggles restricted (event) mode.
func (s *Scheduler) SetRestricted(on bool) {
	s.restricted = on
}

// Restricted reports whether restricted mode is on.
func (s *Scheduler) Restricted() bool {
	return s.restricted
}

// Current returns the playing item and its elapsed time computed from the
// wall clock, or nil when idle.
func (s *Scheduler) Current() (*QueueItem, time.Duration) {
	if s.current == nil {
		return nil, 0
	}
	item := *s.current
	return &item, s.clock.Now().Sub(s.start)
}

// Queue returns a copy of the pending items in play order.
func (s *Scheduler) Queue() []QueueItem {
	return slices.Clone(s.queue)
}

// Votes returns the number of distinct skip votes for the current item.
func (s *Scheduler) Votes() int {
	return len(s.votes)
}

// Stop cancels the advance timer.
func (s *Scheduler) Stop() {
	s.stopTimer()
}
