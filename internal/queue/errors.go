package queue

import "errors"

var (
	ErrQueueExists   = errors.New("queue already exists for this channel")
	ErrQueueNotFound = errors.New("no queue in this channel")
	ErrUnknownKind   = errors.New("unknown queue kind")
	ErrWrongKind     = errors.New("operation not supported by this queue kind")

	ErrNotQueued  = errors.New("participant is not in the queue")
	ErrQueueEmpty = errors.New("the queue is empty")
	// ErrNoneReady is returned by TakeNext when every waiting participant
	// was popped and found unready; the waiting list is restored unchanged.
	ErrNoneReady    = errors.New("no queued participant is ready")
	ErrNoAssignment = errors.New("no participant assigned to this reviewer")
	ErrNoLocation   = errors.New("no joinable location")

	ErrEmptyQuestion    = errors.New("question text is empty")
	ErrQuestionNotFound = errors.New("no question with this index")
	ErrAnswerNotFound   = errors.New("no answered question with this index")
)
