package queue

import (
	"errors"
	"testing"

	"github.com/edulab/turnqueue/internal/domain"
)

func newTestQuestionQueue() *QuestionQueue {
	return NewQuestionQueue(testKey(), "guild", "channel")
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	q := newTestQuestionQueue()

	for _, text := range []string{"", "   ", "\t\n"} {
		if _, _, err := q.Ask(1, text); !errors.Is(err, ErrEmptyQuestion) {
			t.Fatalf("Ask(%q) = %v, want ErrEmptyQuestion", text, err)
		}
	}
	if q.Size() != 0 {
		t.Fatalf("Size = %d after rejected asks, want 0", q.Size())
	}
}

func TestAskAllocatesMonotonicIndices(t *testing.T) {
	q := newTestQuestionQueue()
	loc := newStubLocator()

	res, effects, err := q.Ask(1, "how do slices grow?")
	if err != nil {
		t.Fatalf("Ask = %v", err)
	}
	if res.Index != 1 || res.Position != 1 {
		t.Fatalf("Ask result = %+v, want index 1 at position 1", res)
	}
	render, ok := effects[0].(RenderQuestion)
	if !ok || render.Index != 1 {
		t.Fatalf("effects[0] = %#v, want render of question 1", effects[0])
	}
	if render.Question.Asker() != 1 {
		t.Fatalf("rendered asker = %d, want 1", render.Question.Asker())
	}

	res, _, err = q.Ask(2, "what is a nil map?")
	if err != nil || res.Index != 2 {
		t.Fatalf("second Ask = %+v, %v, want index 2", res, err)
	}

	// Answering never frees an index for reuse.
	if _, _, err := q.Answer(3, 1, "they double", loc); err != nil {
		t.Fatalf("Answer = %v", err)
	}
	res, _, err = q.Ask(3, "why is my goroutine stuck?")
	if err != nil || res.Index != 3 {
		t.Fatalf("Ask after answer = %+v, %v, want index 3", res, err)
	}
}

func TestWhereIsReportsOwnQuestionFirst(t *testing.T) {
	q := newTestQuestionQueue()

	if _, _, err := q.Ask(1, "first question"); err != nil {
		t.Fatalf("Ask = %v", err)
	}

	report := q.WhereIs(1)
	if len(report) != 1 {
		t.Fatalf("WhereIs = %v, want one entry", report)
	}
	if !report[0].Own || report[0].Position != 0 || report[0].Index != 1 {
		t.Fatalf("WhereIs[0] = %+v, want own question 1 at position 0", report[0])
	}
}

func TestWhereIsListsFollowedQuestionsInOrder(t *testing.T) {
	q := newTestQuestionQueue()

	q.Ask(1, "q one")
	q.Ask(2, "q two")
	q.Ask(3, "q three")
	if _, err := q.Follow(1, 3); err != nil {
		t.Fatalf("Follow = %v", err)
	}

	report := q.WhereIs(1)
	if len(report) != 2 {
		t.Fatalf("WhereIs = %v, want two entries", report)
	}
	if !report[0].Own || report[0].Index != 1 {
		t.Fatalf("report[0] = %+v, want own question 1", report[0])
	}
	if report[1].Own || report[1].Index != 3 || report[1].Position != 2 {
		t.Fatalf("report[1] = %+v, want followed question 3 at position 2", report[1])
	}
}

func TestFollowIsIdempotent(t *testing.T) {
	q := newTestQuestionQueue()
	q.Ask(1, "a question")

	if _, err := q.Follow(2, 9); !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("Follow(missing) = %v, want ErrQuestionNotFound", err)
	}

	out, err := q.Follow(2, 1)
	if err != nil || out != NowFollowing {
		t.Fatalf("Follow = %v, %v, want NowFollowing", out, err)
	}
	out, err = q.Follow(2, 1)
	if err != nil || out != AlreadyFollowing {
		t.Fatalf("second Follow = %v, %v, want AlreadyFollowing", out, err)
	}

	// The asker stays first and the repeat did not duplicate anyone.
	listing := q.Followable(2)
	if len(listing) != 1 || !listing[0].Following {
		t.Fatalf("Followable = %+v, want question 1 marked following", listing)
	}
	report := q.WhereIs(2)
	if len(report) != 1 || report[0].Own {
		t.Fatalf("WhereIs(2) = %+v, want one followed (not own) question", report)
	}
}

func TestFollowableListsOpenQuestions(t *testing.T) {
	q := newTestQuestionQueue()
	q.Ask(1, "first")
	q.Ask(2, "second")

	listing := q.Followable(1)
	if len(listing) != 2 {
		t.Fatalf("Followable = %+v, want two entries", listing)
	}
	if !listing[0].Following || listing[0].Index != 1 {
		t.Fatalf("listing[0] = %+v, want own question 1 marked following", listing[0])
	}
	if listing[1].Following || listing[1].Index != 2 {
		t.Fatalf("listing[1] = %+v, want question 2 not followed", listing[1])
	}
}

func TestAnswerWithTextArchivesQuestion(t *testing.T) {
	q := newTestQuestionQueue()
	loc := newStubLocator()
	q.Ask(1, "how does append work?")
	q.SetRendered(1, domain.MessageRef{ChannelID: 20, MessageID: 500})

	res, effects, err := q.Answer(2, 1, "it may reallocate", loc)
	if err != nil {
		t.Fatalf("Answer = %v", err)
	}
	if res.SelfSolved {
		t.Fatal("answer by someone else must not be self-solved")
	}
	qstn := res.Question
	if qstn.Status != domain.QuestionStatusAnsweredByText || qstn.Answer != "it may reallocate" {
		t.Fatalf("question after answer = %+v", qstn)
	}
	if qstn.AnsweredBy != 2 {
		t.Fatalf("answered by = %d, want 2", qstn.AnsweredBy)
	}

	// Old rendering removed, answer rendered.
	del, ok := effects[0].(DeleteRender)
	if !ok || del.Ref.MessageID != 500 {
		t.Fatalf("effects[0] = %#v, want delete of message 500", effects[0])
	}
	if _, ok := effects[1].(RenderAnswer); !ok {
		t.Fatalf("effects[1] = %#v, want answer rendering", effects[1])
	}

	// Out of the ledger, into the archive.
	if q.Size() != 0 {
		t.Fatalf("Size = %d after answer, want 0", q.Size())
	}
	if _, _, err := q.Answer(2, 1, "again", loc); !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("second Answer = %v, want ErrQuestionNotFound", err)
	}
	if _, err := q.Amend(3, 1, "also see the docs"); err != nil {
		t.Fatalf("Amend on archived question = %v", err)
	}
}

func TestAnswerOwnQuestionIsSelfSolved(t *testing.T) {
	q := newTestQuestionQueue()
	loc := newStubLocator()
	q.Ask(1, "never mind, found it")

	res, effects, err := q.Answer(1, 1, "it was a typo", loc)
	if err != nil {
		t.Fatalf("Answer = %v", err)
	}
	if !res.SelfSolved {
		t.Fatal("asker answering own question must be self-solved")
	}

	found := false
	for _, e := range effects {
		if n, ok := e.(NotifyParticipant); ok && n.Reason == NotifySelfSolved && n.Participant == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("effects = %#v, want a self-solved notice", effects)
	}
}

func TestAnswerMissingQuestionBeatsLocationCheck(t *testing.T) {
	q := newTestQuestionQueue()
	loc := newStubLocator()

	// Blank answer, no location, unknown index: the missing question is
	// reported, not the missing location.
	if _, _, err := q.Answer(2, 9, "", loc); !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("Answer(missing) = %v, want ErrQuestionNotFound", err)
	}
}

func TestAnswerByVoiceRequiresLocation(t *testing.T) {
	q := newTestQuestionQueue()
	loc := newStubLocator()
	q.Ask(1, "can you show me?")

	if _, _, err := q.Answer(2, 1, "", loc); !errors.Is(err, ErrNoLocation) {
		t.Fatalf("voice Answer without location = %v, want ErrNoLocation", err)
	}

	loc.place(2, 7)
	res, _, err := q.Answer(2, 1, "   ", loc)
	if err != nil {
		t.Fatalf("voice Answer = %v", err)
	}
	qstn := res.Question
	if qstn.Status != domain.QuestionStatusAnsweredByVoice {
		t.Fatalf("status = %v, want answered by voice", qstn.Status)
	}
	if qstn.AnswerLocation == nil || qstn.AnswerLocation.ID != 7 {
		t.Fatalf("answer location = %+v, want location 7", qstn.AnswerLocation)
	}
}

func TestAnswerOwnQuestionByVoiceIsNotSelfSolved(t *testing.T) {
	q := newTestQuestionQueue()
	loc := newStubLocator()
	loc.place(1, 7)
	q.Ask(1, "talk me through this?")

	res, _, err := q.Answer(1, 1, "", loc)
	if err != nil {
		t.Fatalf("Answer = %v", err)
	}
	if res.SelfSolved {
		t.Fatal("voice answers carry no self-solved flag")
	}
}

func TestAmendAppendsStructuredAmendments(t *testing.T) {
	q := newTestQuestionQueue()
	loc := newStubLocator()
	q.Ask(1, "what about generics?")

	if _, err := q.Amend(2, 1, "too early"); !errors.Is(err, ErrAnswerNotFound) {
		t.Fatalf("Amend on open question = %v, want ErrAnswerNotFound", err)
	}

	if _, _, err := q.Answer(2, 1, "use type parameters", loc); err != nil {
		t.Fatalf("Answer = %v", err)
	}
	q.SetRendered(1, domain.MessageRef{ChannelID: 20, MessageID: 600})

	effects, err := q.Amend(3, 1, "see the tutorial")
	if err != nil {
		t.Fatalf("Amend = %v", err)
	}
	if _, err := q.Amend(4, 1, "and the FAQ"); err != nil {
		t.Fatalf("second Amend = %v", err)
	}

	del, ok := effects[0].(DeleteRender)
	if !ok || del.Ref.MessageID != 600 {
		t.Fatalf("effects[0] = %#v, want delete of message 600", effects[0])
	}
	render, ok := effects[1].(RenderAnswer)
	if !ok {
		t.Fatalf("effects[1] = %#v, want answer rendering", effects[1])
	}

	am := render.Question.Amendments
	if len(am) != 2 {
		t.Fatalf("amendments = %+v, want 2", am)
	}
	if am[0].Author != 3 || am[0].Text != "see the tutorial" {
		t.Fatalf("amendments[0] = %+v", am[0])
	}
	if am[1].Author != 4 || am[1].Text != "and the FAQ" {
		t.Fatalf("amendments[1] = %+v", am[1])
	}
}

func TestSetRenderedFindsLedgerAndArchive(t *testing.T) {
	q := newTestQuestionQueue()
	loc := newStubLocator()
	q.Ask(1, "open one")

	if err := q.SetRendered(1, domain.MessageRef{MessageID: 10}); err != nil {
		t.Fatalf("SetRendered(ledger) = %v", err)
	}
	if _, _, err := q.Answer(2, 1, "done", loc); err != nil {
		t.Fatalf("Answer = %v", err)
	}
	if err := q.SetRendered(1, domain.MessageRef{MessageID: 11}); err != nil {
		t.Fatalf("SetRendered(archive) = %v", err)
	}
	if err := q.SetRendered(9, domain.MessageRef{MessageID: 12}); !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("SetRendered(missing) = %v, want ErrQuestionNotFound", err)
	}
}

func TestQuestionDataRoundTrip(t *testing.T) {
	q := newTestQuestionQueue()
	loc := newStubLocator()
	q.Ask(1, "first")
	q.Ask(2, "second")
	q.Ask(3, "third")
	q.Follow(4, 2)
	// Answering removes the first question; only open questions persist.
	if _, _, err := q.Answer(5, 1, "answered", loc); err != nil {
		t.Fatalf("Answer = %v", err)
	}

	data, err := q.MarshalData()
	if err != nil {
		t.Fatalf("MarshalData = %v", err)
	}

	q2 := newTestQuestionQueue()
	if err := q2.UnmarshalData(data); err != nil {
		t.Fatalf("UnmarshalData = %v", err)
	}

	// Indices are reassigned from 1 in ledger order.
	listing := q2.Followable(4)
	if len(listing) != 2 {
		t.Fatalf("Followable after reload = %+v, want two entries", listing)
	}
	if listing[0].Index != 1 || listing[0].Text != "second" || !listing[0].Following {
		t.Fatalf("listing[0] = %+v, want followed question 'second' at index 1", listing[0])
	}
	if listing[1].Index != 2 || listing[1].Text != "third" {
		t.Fatalf("listing[1] = %+v, want question 'third' at index 2", listing[1])
	}

	// The asker survives as first follower.
	report := q2.WhereIs(2)
	if len(report) != 1 || !report[0].Own || report[0].Index != 1 {
		t.Fatalf("WhereIs(2) after reload = %+v, want own question at index 1", report)
	}

	// The archive is gone and the counter continues from the reloaded size.
	if _, err := q2.Amend(5, 1, "lost"); !errors.Is(err, ErrAnswerNotFound) {
		t.Fatalf("Amend after reload = %v, want ErrAnswerNotFound", err)
	}
	res, _, err := q2.Ask(6, "fresh")
	if err != nil || res.Index != 3 {
		t.Fatalf("Ask after reload = %+v, %v, want index 3", res, err)
	}
}

func TestQuestionDataRejectsFollowerlessRecords(t *testing.T) {
	q := newTestQuestionQueue()

	// Every stored question names its asker as followers[0]; a hand-edited
	// record without one would blow up the first time it is answered.
	data := []byte(`[{"text":"fine","followers":[1]},{"text":"orphan","followers":[]}]`)
	if err := q.UnmarshalData(data); err == nil {
		t.Fatal("UnmarshalData accepted a followerless question record")
	}
	// The rejected load must not leave a partial ledger behind.
	if q.Size() != 0 {
		t.Fatalf("Size = %d after rejected load, want 0", q.Size())
	}
}
