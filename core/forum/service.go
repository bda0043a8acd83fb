package forum

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/modelaedu/modela/core"
	"github.com/modelaedu/modela/core/learning"
)

var ErrTopicNotFound = errors.New("topic not found")

type (
	Repository interface {
		CreateTopic(ctx context.Context, t Topic) (int64, error)
		CreateReply(ctx context.Context, r Reply) (int64, error)
		ListTopics(ctx context.Context) ([]Topic, error)
		GetTopic(ctx context.Context, topicID int64) (Topic, error)
		ListReplies(ctx context.Context, topicID int64) ([]Reply, error)
		Ranking(ctx context.Context) ([]RankingEntry, error)
	}

	// ScoreGranter conditionally awards points; the learning service satisfies it.
	ScoreGranter interface {
		GrantScore(ctx context.Context, userID int64, scoreType, sourceID string, points int) (bool, error)
	}

	Service struct {
		repo   Repository
		scores ScoreGranter
		logger core.Logger
	}
)

func NewService(repo Repository, scores ScoreGranter, logger core.Logger) *Service {
	return &Service{repo: repo, scores: scores, logger: logger}
}

// CreateTopic inserts the topic and awards the fixed topic points. Each topic
// id is unique, so the grant never collides; a grant failure is logged but
// does not fail the post.
func (svc *Service) CreateTopic(ctx context.Context, nt NewTopic) (topicID int64, pointsAwarded int, err error) {
	topicID, err = svc.repo.CreateTopic(ctx, Topic{
		UserID:   nt.UserID,
		Title:    nt.Title,
		Content:  nt.Content,
		Category: nt.Category,
	})
	if err != nil {
		return 0, 0, errors.Wrap(err, "creating topic")
	}

	if _, err := svc.scores.GrantScore(ctx, nt.UserID, learning.ScoreTypeForumTopic, strconv.FormatInt(topicID, 10), TopicPoints); err != nil {
		svc.logger.Error("granting topic points", err)
	}
	return topicID, TopicPoints, nil
}

// CreateReply inserts the reply and awards the fixed reply points.
func (svc *Service) CreateReply(ctx context.Context, nr NewReply) (replyID int64, pointsAwarded int, err error) {
	if _, err = svc.repo.GetTopic(ctx, nr.TopicID); err != nil {
		return 0, 0, err
	}

	replyID, err = svc.repo.CreateReply(ctx, Reply{
		TopicID: nr.TopicID,
		UserID:  nr.UserID,
		Content: nr.Content,
	})
	if err != nil {
		return 0, 0, errors.Wrap(err, "creating reply")
	}

	if _, err := svc.scores.GrantScore(ctx, nr.UserID, learning.ScoreTypeForumReply, strconv.FormatInt(replyID, 10), ReplyPoints); err != nil {
		svc.logger.Error("granting reply points", err)
	}
	return replyID, ReplyPoints, nil
}

func (svc *Service) ListTopics(ctx context.Context) ([]Topic, error) {
	return svc.repo.ListTopics(ctx)
}

// GetTopic returns the topic with its replies, oldest reply first.
func (svc *Service) GetTopic(ctx context.Context, topicID int64) (Topic, []Reply, error) {
	topic, err := svc.repo.GetTopic(ctx, topicID)
	if err != nil {
		return Topic{}, nil, err
	}
	replies, err := svc.repo.ListReplies(ctx, topicID)
	if err != nil {
		return Topic{}, nil, errors.Wrap(err, "listing replies")
	}
	return topic, replies, nil
}

func (svc *Service) Ranking(ctx context.Context) ([]RankingEntry, error) {
	return svc.repo.Ranking(ctx)
}
