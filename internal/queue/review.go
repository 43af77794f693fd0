package queue

import (
	"encoding/json"
	"sync"

	"github.com/edulab/turnqueue/internal/domain"
)

func init() {
	RegisterKind(KindReview, func(key domain.QueueKey, guildName, channelName string) Queue {
		return NewReviewQueue(key, guildName, channelName)
	})
}

// maxSkippedInsertPos caps how far back skipped participants can be pushed
// when they are reinserted mid-queue.
const maxSkippedInsertPos = 10

// assignment records who a reviewer pulled out of the queue, and where that
// participant came from so a put-back can return them.
type assignment struct {
	Assignee domain.ParticipantID
	Origin   domain.QueueKey
	Return   *domain.LocationRef
}

// ReviewQueue is an ordered waiting list of participants. Every operation
// commits its full list mutation under the queue lock before returning;
// effects are executed by the dispatcher afterwards and never re-read the
// list, so interleaved operations can never act on a half-applied decision.
type ReviewQueue struct {
	mu          sync.Mutex
	key         domain.QueueKey
	guildName   string
	channelName string
	waiting     []domain.ParticipantID
	assignments map[domain.ParticipantID]assignment
}

func NewReviewQueue(key domain.QueueKey, guildName, channelName string) *ReviewQueue {
	return &ReviewQueue{
		key:         key,
		guildName:   guildName,
		channelName: channelName,
		assignments: make(map[domain.ParticipantID]assignment),
	}
}

func (q *ReviewQueue) Key() domain.QueueKey { return q.key }
func (q *ReviewQueue) Kind() string         { return KindReview }
func (q *ReviewQueue) GuildName() string    { return q.guildName }
func (q *ReviewQueue) ChannelName() string  { return q.channelName }

func (q *ReviewQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

func (q *ReviewQueue) indexOf(pid domain.ParticipantID) int {
	for i, id := range q.waiting {
		if id == pid {
			return i
		}
	}
	return -1
}

// EnqueueResult reports where a participant sits after an enqueue.
type EnqueueResult struct {
	// Already is set when the participant was in the queue before the call;
	// the queue is left unchanged.
	Already  bool
	Position int
}

// Enqueue appends a participant. Re-adding an already queued participant is
// a no-op that reports their current position.
func (q *ReviewQueue) Enqueue(pid domain.ParticipantID) EnqueueResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i := q.indexOf(pid); i >= 0 {
		return EnqueueResult{Already: true, Position: i}
	}
	q.waiting = append(q.waiting, pid)
	return EnqueueResult{Position: len(q.waiting) - 1}
}

// Remove takes a participant out of the waiting list.
func (q *ReviewQueue) Remove(pid domain.ParticipantID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(pid)
	if i < 0 {
		return ErrNotQueued
	}
	q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
	return nil
}

// Position returns a participant's 0-based spot in the waiting list.
func (q *ReviewQueue) Position(pid domain.ParticipantID) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(pid)
	if i < 0 {
		return 0, ErrNotQueued
	}
	return i, nil
}

// TakeResult reports the outcome of a successful TakeNext.
type TakeResult struct {
	Taken domain.ParticipantID
	// Skipped lists the unready participants that were popped over, in
	// their original order. They have already been reinserted.
	Skipped []domain.ParticipantID
}

// TakeNext pops the first ready participant for the reviewer.
//
// Unready participants are popped over, collected, and reinserted before
// this method returns: appended to the tail when no more than len(skipped)
// participants remain, spliced in at min(remaining/2, 10) otherwise, so a
// "not ready" skip never sends anyone all the way to the back. When every
// pop comes up unready the whole list is restored to its original content
// and order and ErrNoneReady is returned; the accompanying skip
// notifications must still be delivered.
//
// The entire pop-and-reinsert decision is committed under the queue lock.
// The returned effects act only on already-extracted ids; executing them
// never re-reads the list, so a concurrent TakeNext cannot pop the same
// participant.
func (q *ReviewQueue) TakeNext(reviewer domain.ParticipantID, loc Locator) (*TakeResult, []Effect, error) {
	dest, ok := loc.Location(reviewer)
	if !ok {
		return nil, nil, ErrNoLocation
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.waiting) == 0 {
		return nil, nil, ErrQueueEmpty
	}

	var (
		skipped []domain.ParticipantID
		effects []Effect
	)
	popped := q.waiting[0]
	q.waiting = q.waiting[1:]

	for !loc.IsReady(popped) {
		skipped = append(skipped, popped)
		effects = append(effects, NotifyParticipant{
			Participant: popped,
			Reason:      NotifySkipped,
			Queue:       q.key,
		})

		if len(q.waiting) == 0 {
			// Everyone was popped and nobody was ready: restore the
			// original order, final pop included.
			q.waiting = skipped
			return nil, effects, ErrNoneReady
		}
		popped = q.waiting[0]
		q.waiting = q.waiting[1:]
	}

	if n, m := len(q.waiting), len(skipped); m > 0 {
		if n <= m {
			q.waiting = append(q.waiting, skipped...)
		} else {
			insertPos := n / 2
			if insertPos > maxSkippedInsertPos {
				insertPos = maxSkippedInsertPos
			}
			merged := make([]domain.ParticipantID, 0, n+m)
			merged = append(merged, q.waiting[:insertPos]...)
			merged = append(merged, skipped...)
			merged = append(merged, q.waiting[insertPos:]...)
			q.waiting = merged
		}
	}

	// Remember where the participant came from so a put-back can return
	// them. A new take by the same reviewer overwrites the assignment.
	var ret *domain.LocationRef
	if origin, ok := loc.Location(popped); ok {
		ret = &origin
	}
	q.assignments[reviewer] = assignment{
		Assignee: popped,
		Origin:   q.key,
		Return:   ret,
	}

	effects = append(effects, MoveParticipant{Participant: popped, To: dest})
	if len(q.waiting) > 0 {
		effects = append(effects, q.upcomingNotice(0, loc))
	}
	if len(q.waiting) > 1 {
		effects = append(effects, q.upcomingNotice(1, loc))
	}
	if len(q.waiting) > 5 {
		effects = append(effects, q.upcomingNotice(4, loc))
	}

	return &TakeResult{Taken: popped, Skipped: skipped}, effects, nil
}

func (q *ReviewQueue) upcomingNotice(pos int, loc Locator) Effect {
	target := q.waiting[pos]
	_, hasLoc := loc.Location(target)
	return NotifyParticipant{
		Participant:   target,
		Reason:        NotifyUpcoming,
		Queue:         q.key,
		Position:      pos,
		NeedsLocation: !hasLoc,
	}
}

// PutBack reinserts the reviewer's current assignee into the waiting list
// at min(pos, len(waiting)) and clears the assignment. The participant is
// moved back to where they were taken from if they are ready for it, and
// notified with the reviewer's note (blank means the dispatcher's default
// wording).
func (q *ReviewQueue) PutBack(reviewer domain.ParticipantID, pos int, note string, loc Locator) ([]Effect, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	a, ok := q.assignments[reviewer]
	if !ok {
		return nil, ErrNoAssignment
	}
	delete(q.assignments, reviewer)

	if pos < 0 {
		pos = 0
	}
	if pos > len(q.waiting) {
		pos = len(q.waiting)
	}
	// An id may appear at most once; an assignee who re-queued themselves
	// in the meantime keeps their spot.
	if q.indexOf(a.Assignee) < 0 {
		q.waiting = append(q.waiting[:pos], append([]domain.ParticipantID{a.Assignee}, q.waiting[pos:]...)...)
	}

	var effects []Effect
	if a.Return != nil && loc.IsReady(a.Assignee) {
		effects = append(effects, MoveParticipant{Participant: a.Assignee, To: *a.Return})
	}
	effects = append(effects, NotifyParticipant{
		Participant: a.Assignee,
		Reason:      NotifyPutBack,
		Queue:       q.key,
		Note:        note,
	})

	return effects, nil
}

// Assignment returns the reviewer's live assignee, if any.
func (q *ReviewQueue) Assignment(reviewer domain.ParticipantID) (domain.ParticipantID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	a, ok := q.assignments[reviewer]
	return a.Assignee, ok
}

// Waiting returns a copy of the waiting list.
func (q *ReviewQueue) Waiting() []domain.ParticipantID {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.ParticipantID, len(q.waiting))
	copy(out, q.waiting)
	return out
}

func (q *ReviewQueue) MarshalData() (json.RawMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Assignments are in-flight state tied to live platform sessions; only
	// the waiting order is persisted.
	return json.Marshal(q.waiting)
}

func (q *ReviewQueue) UnmarshalData(data json.RawMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var waiting []domain.ParticipantID
	if err := json.Unmarshal(data, &waiting); err != nil {
		return err
	}
	q.waiting = waiting
	return nil
}
