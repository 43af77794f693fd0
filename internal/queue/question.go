package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/edulab/turnqueue/internal/domain"
)

func init() {
	RegisterKind(KindQuestion, func(key domain.QueueKey, guildName, channelName string) Queue {
		return NewQuestionQueue(key, guildName, channelName)
	})
}

// QuestionQueue is an indexed ledger of open questions plus an archive of
// answered ones. Indices are 1-based, strictly increasing and never reused
// within a session; answering moves a question from ledger to archive under
// the same index.
type QuestionQueue struct {
	mu          sync.Mutex
	key         domain.QueueKey
	guildName   string
	channelName string
	ledger      map[int]*domain.Question
	order       []int
	archive     map[int]*domain.Question
	nextIndex   int
}

func NewQuestionQueue(key domain.QueueKey, guildName, channelName string) *QuestionQueue {
	return &QuestionQueue{
		key:         key,
		guildName:   guildName,
		channelName: channelName,
		ledger:      make(map[int]*domain.Question),
		archive:     make(map[int]*domain.Question),
	}
}

func (q *QuestionQueue) Key() domain.QueueKey { return q.key }
func (q *QuestionQueue) Kind() string         { return KindQuestion }
func (q *QuestionQueue) GuildName() string    { return q.guildName }
func (q *QuestionQueue) ChannelName() string  { return q.channelName }

func (q *QuestionQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// AskResult reports where a new question landed.
type AskResult struct {
	Index int
	// Position is the 1-based spot in the ledger.
	Position int
}

// Ask files a new question with the asker as its first follower.
func (q *QuestionQueue) Ask(asker domain.ParticipantID, text string) (*AskResult, []Effect, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, ErrEmptyQuestion
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextIndex++
	idx := q.nextIndex
	qstn := domain.NewQuestion(asker, text)
	q.ledger[idx] = qstn
	q.order = append(q.order, idx)

	effects := []Effect{RenderQuestion{Queue: q.key, Index: idx, Question: qstn}}
	return &AskResult{Index: idx, Position: len(q.order)}, effects, nil
}

// FollowOutcome distinguishes a fresh subscription from a repeat.
type FollowOutcome int

const (
	NowFollowing FollowOutcome = iota
	AlreadyFollowing
)

// Follow subscribes a participant to a question. Following twice is
// reported, not an error, and leaves the follower list unchanged.
func (q *QuestionQueue) Follow(pid domain.ParticipantID, idx int) (FollowOutcome, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	qstn, ok := q.ledger[idx]
	if !ok {
		return 0, ErrQuestionNotFound
	}
	if !qstn.Follow(pid) {
		return AlreadyFollowing, nil
	}
	return NowFollowing, nil
}

// FollowListing is one row of the open-question listing.
type FollowListing struct {
	Index     int
	Text      string
	Following bool
}

// Followable lists all open questions with a per-question flag for whether
// the participant already follows them. Read-only.
func (q *QuestionQueue) Followable(pid domain.ParticipantID) []FollowListing {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]FollowListing, 0, len(q.order))
	for _, idx := range q.order {
		qstn := q.ledger[idx]
		out = append(out, FollowListing{
			Index:     idx,
			Text:      qstn.Text,
			Following: qstn.IsFollower(pid),
		})
	}
	return out
}

// AnswerResult reports how a question was answered.
type AnswerResult struct {
	Question *domain.Question
	// SelfSolved is set when the asker answered their own question with
	// text.
	SelfSolved bool
}

// Answer closes a question. A non-blank text answer archives it as answered
// by text; a blank one means the answerer will talk it through, which
// requires them to have a joinable location. Either way the question leaves
// the ledger, keeps its index in the archive, and the old rendering is
// replaced by an answer rendering.
func (q *QuestionQueue) Answer(answerer domain.ParticipantID, idx int, text string, loc Locator) (*AnswerResult, []Effect, error) {
	text = strings.TrimSpace(text)

	q.mu.Lock()
	defer q.mu.Unlock()

	qstn, ok := q.ledger[idx]
	if !ok {
		return nil, nil, ErrQuestionNotFound
	}

	var voice *domain.LocationRef
	if text == "" {
		dest, ok := loc.Location(answerer)
		if !ok {
			return nil, nil, ErrNoLocation
		}
		voice = &dest
	}

	delete(q.ledger, idx)
	for i, v := range q.order {
		if v == idx {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	q.archive[idx] = qstn

	qstn.AnsweredBy = answerer
	if voice == nil {
		qstn.Status = domain.QuestionStatusAnsweredByText
		qstn.Answer = text
	} else {
		qstn.Status = domain.QuestionStatusAnsweredByVoice
		qstn.AnswerLocation = voice
	}

	var effects []Effect
	if !qstn.Rendered.IsZero() {
		effects = append(effects, DeleteRender{Ref: qstn.Rendered})
	}
	effects = append(effects, RenderAnswer{Queue: q.key, Index: idx, Question: qstn})

	res := &AnswerResult{Question: qstn}
	if voice == nil && qstn.Asker() == answerer {
		res.SelfSolved = true
		effects = append(effects, NotifyParticipant{
			Participant: answerer,
			Reason:      NotifySelfSolved,
			Queue:       q.key,
		})
	}

	return res, effects, nil
}

// Amend appends a follow-up note to an answered question and re-renders the
// answer from structured state. Amending an open question is not possible;
// only the archive is searched.
func (q *QuestionQueue) Amend(author domain.ParticipantID, idx int, text string) ([]Effect, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	qstn, ok := q.archive[idx]
	if !ok {
		return nil, ErrAnswerNotFound
	}
	qstn.Amend(author, text)

	var effects []Effect
	if !qstn.Rendered.IsZero() {
		effects = append(effects, DeleteRender{Ref: qstn.Rendered})
	}
	effects = append(effects, RenderAnswer{Queue: q.key, Index: idx, Question: qstn})
	return effects, nil
}

// SetRendered stores the platform handle of a question's current rendering,
// looked up in the ledger first and the archive second.
func (q *QuestionQueue) SetRendered(idx int, ref domain.MessageRef) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if qstn, ok := q.ledger[idx]; ok {
		qstn.Rendered = ref
		return nil
	}
	if qstn, ok := q.archive[idx]; ok {
		qstn.Rendered = ref
		return nil
	}
	return ErrQuestionNotFound
}

// FollowedQuestion is one row of a participant's WhereIs report.
type FollowedQuestion struct {
	Index int
	// Position is the 0-based spot in the ledger.
	Position int
	// Own is set when the participant is the original asker.
	Own bool
}

// WhereIs lists the open questions a participant follows, in ledger order.
func (q *QuestionQueue) WhereIs(pid domain.ParticipantID) []FollowedQuestion {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []FollowedQuestion
	for pos, idx := range q.order {
		qstn := q.ledger[idx]
		if !qstn.IsFollower(pid) {
			continue
		}
		out = append(out, FollowedQuestion{
			Index:    idx,
			Position: pos,
			Own:      qstn.Asker() == pid,
		})
	}
	return out
}

// questionRecord is the persisted form of one open question.
type questionRecord struct {
	Text      string                 `json:"text"`
	Followers []domain.ParticipantID `json:"followers"`
}

func (q *QuestionQueue) MarshalData() (json.RawMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Only the open ledger is persisted, in order. The archive is session
	// state: answered-question history does not survive a restart.
	recs := make([]questionRecord, 0, len(q.order))
	for _, idx := range q.order {
		qstn := q.ledger[idx]
		recs = append(recs, questionRecord{Text: qstn.Text, Followers: qstn.Followers})
	}
	return json.Marshal(recs)
}

func (q *QuestionQueue) UnmarshalData(data json.RawMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var recs []questionRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return err
	}

	// Indices restart at 1 on reload; the original numbering is not kept.
	ledger := make(map[int]*domain.Question, len(recs))
	order := make([]int, 0, len(recs))
	for i, rec := range recs {
		// Followers[0] is the asker; a record without it cannot name one.
		if len(rec.Followers) == 0 {
			return fmt.Errorf("question record %d has no followers", i)
		}
		idx := i + 1
		ledger[idx] = &domain.Question{
			Text:      rec.Text,
			Followers: rec.Followers,
			Status:    domain.QuestionStatusOpen,
		}
		order = append(order, idx)
	}

	q.ledger = ledger
	q.order = order
	q.nextIndex = len(recs)
	q.archive = make(map[int]*domain.Question)
	return nil
}
