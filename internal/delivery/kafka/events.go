package kafka

import (
	"time"

	"github.com/edulab/turnqueue/internal/domain"
)

// Events published by the queue engine. Every event carries the queue key
// it belongs to; messages are partitioned by key so per-channel ordering is
// preserved.

type QueueCreatedEvent struct {
	EventID   string          `json:"event_id"`
	Queue     domain.QueueKey `json:"queue"`
	Kind      string          `json:"kind"`
	GuildName string          `json:"guild_name"`
	Timestamp time.Time       `json:"timestamp"`
}

type ParticipantEnqueuedEvent struct {
	EventID     string               `json:"event_id"`
	Queue       domain.QueueKey      `json:"queue"`
	Participant domain.ParticipantID `json:"participant"`
	Position    int                  `json:"position"`
	Timestamp   time.Time            `json:"timestamp"`
}

type ParticipantTakenEvent struct {
	EventID     string                 `json:"event_id"`
	Queue       domain.QueueKey        `json:"queue"`
	Reviewer    domain.ParticipantID   `json:"reviewer"`
	Participant domain.ParticipantID   `json:"participant"`
	Skipped     []domain.ParticipantID `json:"skipped,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

type ParticipantPutBackEvent struct {
	EventID     string               `json:"event_id"`
	Queue       domain.QueueKey      `json:"queue"`
	Reviewer    domain.ParticipantID `json:"reviewer"`
	Participant domain.ParticipantID `json:"participant"`
	Position    int                  `json:"position"`
	Timestamp   time.Time            `json:"timestamp"`
}

type QuestionAskedEvent struct {
	EventID   string               `json:"event_id"`
	Queue     domain.QueueKey      `json:"queue"`
	Asker     domain.ParticipantID `json:"asker"`
	Index     int                  `json:"index"`
	Timestamp time.Time            `json:"timestamp"`
}

type QuestionAnsweredEvent struct {
	EventID    string               `json:"event_id"`
	Queue      domain.QueueKey      `json:"queue"`
	Answerer   domain.ParticipantID `json:"answerer"`
	Index      int                  `json:"index"`
	ByVoice    bool                 `json:"by_voice"`
	SelfSolved bool                 `json:"self_solved"`
	Timestamp  time.Time            `json:"timestamp"`
}
