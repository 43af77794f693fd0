package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/edulab/turnqueue/config"
	kafka "github.com/edulab/turnqueue/internal/delivery/kafka"
	"github.com/edulab/turnqueue/internal/delivery/kafka/producer"
	"github.com/edulab/turnqueue/internal/domain"
	"github.com/edulab/turnqueue/internal/queue"
	"github.com/edulab/turnqueue/internal/store"
	"github.com/edulab/turnqueue/pkg/logger"
)

// QueueService fronts the queue engine for the command dispatcher: it
// resolves the channel's queue, runs the operation, publishes the matching
// lifecycle event, and hands the caller the result plus the side-effect
// intents to execute.
type QueueService interface {
	CreateQueue(ctx context.Context, key domain.QueueKey, kind, guildName, channelName string) error
	QueueSize(ctx context.Context, key domain.QueueKey) (int, error)

	Enqueue(ctx context.Context, key domain.QueueKey, pid domain.ParticipantID) (queue.EnqueueResult, error)
	Remove(ctx context.Context, key domain.QueueKey, pid domain.ParticipantID) error
	Position(ctx context.Context, key domain.QueueKey, pid domain.ParticipantID) (int, error)
	TakeNext(ctx context.Context, key domain.QueueKey, reviewer domain.ParticipantID, loc queue.Locator) (*queue.TakeResult, []queue.Effect, error)
	PutBack(ctx context.Context, key domain.QueueKey, reviewer domain.ParticipantID, pos int, note string, loc queue.Locator) ([]queue.Effect, error)

	Ask(ctx context.Context, key domain.QueueKey, asker domain.ParticipantID, text string) (*queue.AskResult, []queue.Effect, error)
	Follow(ctx context.Context, key domain.QueueKey, pid domain.ParticipantID, idx int) (queue.FollowOutcome, error)
	ListFollowable(ctx context.Context, key domain.QueueKey, pid domain.ParticipantID) ([]queue.FollowListing, error)
	Answer(ctx context.Context, key domain.QueueKey, answerer domain.ParticipantID, idx int, text string, loc queue.Locator) (*queue.AnswerResult, []queue.Effect, error)
	Amend(ctx context.Context, key domain.QueueKey, author domain.ParticipantID, idx int, text string) ([]queue.Effect, error)
	FollowedQuestions(ctx context.Context, key domain.QueueKey, pid domain.ParticipantID) ([]queue.FollowedQuestion, error)
	SetRendered(ctx context.Context, key domain.QueueKey, idx int, ref domain.MessageRef) error

	Save(ctx context.Context, key domain.QueueKey) error
	Load(ctx context.Context, key domain.QueueKey) error
	LoadAll(ctx context.Context) (*queue.LoadReport, error)
	SaveAll(ctx context.Context) error
}

type queueService struct {
	reg  *queue.Registry
	cfg  config.QueueConfig
	prod producer.Producer
	l    logger.Logger
}

func NewQueueService(
	reg *queue.Registry,
	cfg config.QueueConfig,
	prod producer.Producer,
	l logger.Logger,
) QueueService {
	return &queueService{
		reg:  reg,
		cfg:  cfg,
		prod: prod,
		l:    l,
	}
}

func (s *queueService) reviewQueue(key domain.QueueKey) (*queue.ReviewQueue, error) {
	q, err := s.reg.Resolve(key)
	if err != nil {
		return nil, err
	}
	rq, ok := q.(*queue.ReviewQueue)
	if !ok {
		return nil, queue.ErrWrongKind
	}
	return rq, nil
}

func (s *queueService) questionQueue(key domain.QueueKey) (*queue.QuestionQueue, error) {
	q, err := s.reg.Resolve(key)
	if err != nil {
		return nil, err
	}
	qq, ok := q.(*queue.QuestionQueue)
	if !ok {
		return nil, queue.ErrWrongKind
	}
	return qq, nil
}

func (s *queueService) CreateQueue(ctx context.Context, key domain.QueueKey, kind, guildName, channelName string) error {
	q, err := s.reg.Create(key, kind, guildName, channelName)
	if err != nil {
		return err
	}

	if s.prod != nil {
		if err := s.prod.PublishQueueCreated(ctx, kafka.QueueCreatedEvent{
			Queue:     key,
			Kind:      kind,
			GuildName: guildName,
		}); err != nil {
			s.l.Errorf(ctx, "service.queueService.CreateQueue: %v", err)
		}
	}

	s.l.Infof(ctx, "created a %s queue for %s in %s", q.Kind(), key, guildName)
	return nil
}

func (s *queueService) QueueSize(ctx context.Context, key domain.QueueKey) (int, error) {
	q, err := s.reg.Resolve(key)
	if err != nil {
		return 0, err
	}
	return q.Size(), nil
}

func (s *queueService) Enqueue(ctx context.Context, key domain.QueueKey, pid domain.ParticipantID) (queue.EnqueueResult, error) {
	rq, err := s.reviewQueue(key)
	if err != nil {
		return queue.EnqueueResult{}, err
	}

	res := rq.Enqueue(pid)
	if res.Already {
		return res, nil
	}

	if s.prod != nil {
		if err := s.prod.PublishParticipantEnqueued(ctx, kafka.ParticipantEnqueuedEvent{
			Queue:       key,
			Participant: pid,
			Position:    res.Position,
		}); err != nil {
			s.l.Errorf(ctx, "service.queueService.Enqueue: %v", err)
		}
	}

	s.l.Infof(ctx, "enqueued participant %d in %s at position %d", pid, key, res.Position)
	return res, nil
}

func (s *queueService) Remove(ctx context.Context, key domain.QueueKey, pid domain.ParticipantID) error {
	rq, err := s.reviewQueue(key)
	if err != nil {
		return err
	}
	if err := rq.Remove(pid); err != nil {
		return err
	}

	s.l.Infof(ctx, "removed participant %d from %s", pid, key)
	return nil
}

func (s *queueService) Position(ctx context.Context, key domain.QueueKey, pid domain.ParticipantID) (int, error) {
	rq, err := s.reviewQueue(key)
	if err != nil {
		return 0, err
	}
	return rq.Position(pid)
}

func (s *queueService) TakeNext(ctx context.Context, key domain.QueueKey, reviewer domain.ParticipantID, loc queue.Locator) (*queue.TakeResult, []queue.Effect, error) {
	rq, err := s.reviewQueue(key)
	if err != nil {
		return nil, nil, err
	}

	res, effects, err := rq.TakeNext(reviewer, loc)
	if err != nil {
		// The skip notifications that precede a NoneReady outcome still
		// have to reach the skipped participants.
		return nil, effects, err
	}

	if s.prod != nil {
		if err := s.prod.PublishParticipantTaken(ctx, kafka.ParticipantTakenEvent{
			Queue:       key,
			Reviewer:    reviewer,
			Participant: res.Taken,
			Skipped:     res.Skipped,
		}); err != nil {
			s.l.Errorf(ctx, "service.queueService.TakeNext: %v", err)
		}
	}

	s.l.Infof(ctx, "reviewer %d took participant %d from %s (%d skipped)",
		reviewer, res.Taken, key, len(res.Skipped))
	return res, effects, nil
}

func (s *queueService) PutBack(ctx context.Context, key domain.QueueKey, reviewer domain.ParticipantID, pos int, note string, loc queue.Locator) ([]queue.Effect, error) {
	rq, err := s.reviewQueue(key)
	if err != nil {
		return nil, err
	}

	if pos < 0 {
		pos = s.cfg.PutbackDefaultPos
	}
	note = s.trimNote(note)

	assignee, _ := rq.Assignment(reviewer)
	effects, err := rq.PutBack(reviewer, pos, note, loc)
	if err != nil {
		return nil, err
	}

	if s.prod != nil {
		if err := s.prod.PublishParticipantPutBack(ctx, kafka.ParticipantPutBackEvent{
			Queue:       key,
			Reviewer:    reviewer,
			Participant: assignee,
			Position:    pos,
		}); err != nil {
			s.l.Errorf(ctx, "service.queueService.PutBack: %v", err)
		}
	}

	s.l.Infof(ctx, "reviewer %d put participant %d back into %s at position %d",
		reviewer, assignee, key, pos)
	return effects, nil
}

// trimNote normalizes a custom put-back note: whitespace always, plus the
// configured leading cutset. A note that trims to nothing means "use the
// default wording".
func (s *queueService) trimNote(note string) string {
	note = strings.TrimSpace(note)
	if s.cfg.PutbackTrimCutset != "" {
		note = strings.TrimSpace(strings.TrimLeft(note, s.cfg.PutbackTrimCutset))
	}
	return note
}

func (s *queueService) Ask(ctx context.Context, key domain.QueueKey, asker domain.ParticipantID, text string) (*queue.AskResult, []queue.Effect, error) {
	qq, err := s.questionQueue(key)
	if err != nil {
		return nil, nil, err
	}

	res, effects, err := qq.Ask(asker, text)
	if err != nil {
		return nil, nil, err
	}

	if s.prod != nil {
		if err := s.prod.PublishQuestionAsked(ctx, kafka.QuestionAskedEvent{
			Queue: key,
			Asker: asker,
			Index: res.Index,
		}); err != nil {
			s.l.Errorf(ctx, "service.queueService.Ask: %v", err)
		}
	}

	s.l.Infof(ctx, "participant %d asked question %d in %s", asker, res.Index, key)
	return res, effects, nil
}

func (s *queueService) Follow(ctx context.Context, key domain.QueueKey, pid domain.ParticipantID, idx int) (queue.FollowOutcome, error) {
	qq, err := s.questionQueue(key)
	if err != nil {
		return 0, err
	}
	return qq.Follow(pid, idx)
}

func (s *queueService) ListFollowable(ctx context.Context, key domain.QueueKey, pid domain.ParticipantID) ([]queue.FollowListing, error) {
	qq, err := s.questionQueue(key)
	if err != nil {
		return nil, err
	}
	return qq.Followable(pid), nil
}

func (s *queueService) Answer(ctx context.Context, key domain.QueueKey, answerer domain.ParticipantID, idx int, text string, loc queue.Locator) (*queue.AnswerResult, []queue.Effect, error) {
	qq, err := s.questionQueue(key)
	if err != nil {
		return nil, nil, err
	}

	res, effects, err := qq.Answer(answerer, idx, text, loc)
	if err != nil {
		return nil, nil, err
	}

	if s.prod != nil {
		if err := s.prod.PublishQuestionAnswered(ctx, kafka.QuestionAnsweredEvent{
			Queue:      key,
			Answerer:   answerer,
			Index:      idx,
			ByVoice:    res.Question.Status == domain.QuestionStatusAnsweredByVoice,
			SelfSolved: res.SelfSolved,
		}); err != nil {
			s.l.Errorf(ctx, "service.queueService.Answer: %v", err)
		}
	}

	s.l.Infof(ctx, "participant %d answered question %d in %s", answerer, idx, key)
	return res, effects, nil
}

func (s *queueService) Amend(ctx context.Context, key domain.QueueKey, author domain.ParticipantID, idx int, text string) ([]queue.Effect, error) {
	qq, err := s.questionQueue(key)
	if err != nil {
		return nil, err
	}
	return qq.Amend(author, idx, text)
}

func (s *queueService) FollowedQuestions(ctx context.Context, key domain.QueueKey, pid domain.ParticipantID) ([]queue.FollowedQuestion, error) {
	qq, err := s.questionQueue(key)
	if err != nil {
		return nil, err
	}
	return qq.WhereIs(pid), nil
}

func (s *queueService) SetRendered(ctx context.Context, key domain.QueueKey, idx int, ref domain.MessageRef) error {
	qq, err := s.questionQueue(key)
	if err != nil {
		return err
	}
	return qq.SetRendered(idx, ref)
}

func (s *queueService) Save(ctx context.Context, key domain.QueueKey) error {
	if err := s.reg.Save(ctx, key); err != nil {
		return fmt.Errorf("failed to save queue %s: %w", key, err)
	}
	s.l.Infof(ctx, "saved queue %s", key)
	return nil
}

func (s *queueService) Load(ctx context.Context, key domain.QueueKey) error {
	if _, err := s.reg.Load(ctx, key); err != nil {
		return err
	}
	s.l.Infof(ctx, "loaded queue %s", key)
	return nil
}

// LoadAll restores every stored queue. A missing or unreadable store is a
// warning, never fatal: the engine keeps running with whatever is in
// memory.
func (s *queueService) LoadAll(ctx context.Context) (*queue.LoadReport, error) {
	report, err := s.reg.LoadAll(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoSavedState) {
			s.l.Warnf(ctx, "service.queueService.LoadAll: %v", err)
			return &queue.LoadReport{}, nil
		}
		return nil, fmt.Errorf("failed to load queues: %w", err)
	}
	return report, nil
}

func (s *queueService) SaveAll(ctx context.Context) error {
	if err := s.reg.SaveAll(ctx); err != nil {
		return fmt.Errorf("failed to save queues: %w", err)
	}
	s.l.Infof(ctx, "saved %d queues", len(s.reg.Keys()))
	return nil
}
