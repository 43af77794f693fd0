package domain

// QuestionStatus tracks the answer lifecycle of a question.
type QuestionStatus string

const (
	QuestionStatusOpen            QuestionStatus = "open"
	QuestionStatusAnsweredByText  QuestionStatus = "answered_text"
	QuestionStatusAnsweredByVoice QuestionStatus = "answered_voice"
)

// Amendment is a follow-up note attached to an already answered question.
type Amendment struct {
	Author ParticipantID `json:"author"`
	Text   string        `json:"text"`
}

// Question is a ticket in a question queue. Followers[0] is always the
// original asker; Follow keeps the list duplicate-free.
type Question struct {
	Text           string          `json:"text"`
	Followers      []ParticipantID `json:"followers"`
	Rendered       MessageRef      `json:"-"`
	Status         QuestionStatus  `json:"status"`
	AnsweredBy     ParticipantID   `json:"answered_by,omitempty"`
	Answer         string          `json:"answer,omitempty"`
	AnswerLocation *LocationRef    `json:"answer_location,omitempty"`
	Amendments     []Amendment     `json:"amendments,omitempty"`
}

// NewQuestion creates an open question with the asker as first follower.
func NewQuestion(asker ParticipantID, text string) *Question {
	return &Question{
		Text:      text,
		Followers: []ParticipantID{asker},
		Status:    QuestionStatusOpen,
	}
}

// Asker returns the original asker.
func (q *Question) Asker() ParticipantID {
	return q.Followers[0]
}

// IsFollower reports whether pid is subscribed to this question.
func (q *Question) IsFollower(pid ParticipantID) bool {
	for _, f := range q.Followers {
		if f == pid {
			return true
		}
	}
	return false
}

// Follow subscribes pid and reports whether the list changed. The asker and
// existing followers are left untouched.
func (q *Question) Follow(pid ParticipantID) bool {
	if q.IsFollower(pid) {
		return false
	}
	q.Followers = append(q.Followers, pid)
	return true
}

// Amend appends a structured amendment. Rendering is re-derived from the
// full list each time, never spliced into previously rendered text.
func (q *Question) Amend(author ParticipantID, text string) {
	q.Amendments = append(q.Amendments, Amendment{Author: author, Text: text})
}
