package queue

import "github.com/edulab/turnqueue/internal/domain"

// Effect is a side-effect intent produced by a queue operation. The engine
// never touches the chat platform itself; it hands an ordered list of
// effects back to the dispatcher, which executes them after the in-memory
// state change has already been committed.
type Effect interface {
	effect()
}

// NotifyReason tells the dispatcher which message template applies.
type NotifyReason string

const (
	// Popped while unready and placed back into the waiting list.
	NotifySkipped NotifyReason = "skipped"
	// Approaching the front of the waiting list; Position carries the spot.
	NotifyUpcoming NotifyReason = "upcoming"
	// Returned to the waiting list by a reviewer; Note carries the reason.
	NotifyPutBack NotifyReason = "put_back"
	// Answered their own question.
	NotifySelfSolved NotifyReason = "self_solved"
)

// MoveParticipant asks the platform to move a participant to a location.
type MoveParticipant struct {
	Participant domain.ParticipantID
	To          domain.LocationRef
}

// NotifyParticipant asks the platform to message a participant directly.
// NeedsLocation flags that the target currently has no joinable location
// and should be told to join one.
type NotifyParticipant struct {
	Participant   domain.ParticipantID
	Reason        NotifyReason
	Queue         domain.QueueKey
	Position      int
	Note          string
	NeedsLocation bool
}

// RenderQuestion asks the platform to post a question message. The
// dispatcher reports the resulting handle back via SetRendered.
type RenderQuestion struct {
	Queue    domain.QueueKey
	Index    int
	Question *domain.Question
}

// DeleteRender asks the platform to delete a previously rendered message.
type DeleteRender struct {
	Ref domain.MessageRef
}

// RenderAnswer asks the platform to post (or re-post, after an amendment)
// the answer message. The question carries the answer, the follower list
// and all amendments, so rendering is derived from structured state every
// time.
type RenderAnswer struct {
	Queue    domain.QueueKey
	Index    int
	Question *domain.Question
}

func (MoveParticipant) effect()   {}
func (NotifyParticipant) effect() {}
func (RenderQuestion) effect()    {}
func (DeleteRender) effect()      {}
func (RenderAnswer) effect()      {}
