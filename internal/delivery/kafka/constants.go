package kafka

// Topics published by the queue engine.
const (
	TopicQueueCreated        = "QUEUE_CREATED"
	TopicParticipantEnqueued = "PARTICIPANT_ENQUEUED"
	TopicParticipantTaken    = "PARTICIPANT_TAKEN"
	TopicParticipantPutBack  = "PARTICIPANT_PUT_BACK"
	TopicQuestionAsked       = "QUESTION_ASKED"
	TopicQuestionAnswered    = "QUESTION_ANSWERED"
)
