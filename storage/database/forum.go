package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/modelaedu/modela/core/forum"
)

type ForumRepository struct {
	store *Store
}

func NewForumRepository(store *Store) *ForumRepository {
	return &ForumRepository{store: store}
}

func (repo *ForumRepository) CreateTopic(ctx context.Context, t forum.Topic) (int64, error) {
	id, err := repo.store.insertID(ctx, defaultRetry,
		`INSERT INTO forum_topics (user_id, title, content, category, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.UserID, t.Title, t.Content, t.Category, time.Now().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "inserting topic")
	}
	return id, nil
}

func (repo *ForumRepository) CreateReply(ctx context.Context, r forum.Reply) (int64, error) {
	id, err := repo.store.insertID(ctx, defaultRetry,
		`INSERT INTO forum_replies (topic_id, user_id, content, created_at)
		 VALUES (?, ?, ?, ?)`,
		r.TopicID, r.UserID, r.Content, time.Now().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "inserting reply")
	}
	return id, nil
}

func (repo *ForumRepository) ListTopics(ctx context.Context) ([]forum.Topic, error) {
	topics := make([]forum.Topic, 0)
	err := repo.store.selectAll(ctx, &topics,
		`SELECT t.id, t.user_id, u.nome AS "userName", t.title, t.content, t.category, t.created_at,
			(SELECT COUNT(*) FROM forum_replies r WHERE r.topic_id = t.id) AS "repliesCount"
		 FROM forum_topics t
		 JOIN users u ON u.id = t.user_id
		 ORDER BY t.created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "listing topics")
	}
	return topics, nil
}

func (repo *ForumRepository) GetTopic(ctx context.Context, topicID int64) (forum.Topic, error) {
	var topic forum.Topic
	err := repo.store.get(ctx, &topic,
		`SELECT t.id, t.user_id, u.nome AS "userName", t.title, t.content, t.category, t.created_at,
			(SELECT COUNT(*) FROM forum_replies r WHERE r.topic_id = t.id) AS "repliesCount"
		 FROM forum_topics t
		 JOIN users u ON u.id = t.user_id
		 WHERE t.id = ?`, topicID)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return forum.Topic{}, forum.ErrTopicNotFound
		}
		return forum.Topic{}, errors.Wrap(err, "getting topic")
	}
	return topic, nil
}

func (repo *ForumRepository) ListReplies(ctx context.Context, topicID int64) ([]forum.Reply, error) {
	replies := make([]forum.Reply, 0)
	err := repo.store.selectAll(ctx, &replies,
		`SELECT r.id, r.topic_id, r.user_id, u.nome AS "userName", r.content, r.created_at
		 FROM forum_replies r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.topic_id = ?
		 ORDER BY r.created_at`, topicID)
	if err != nil {
		return nil, errors.Wrap(err, "listing replies")
	}
	return replies, nil
}

// Ranking orders participants by topics started, then replies, then name.
// Any number of replies never outranks a single topic.
func (repo *ForumRepository) Ranking(ctx context.Context) ([]forum.RankingEntry, error) {
	entries := make([]forum.RankingEntry, 0)
	err := repo.store.selectAll(ctx, &entries,
		`SELECT u.id AS "userId", u.nome, u.username,
			(SELECT COUNT(*) FROM forum_topics t WHERE t.user_id = u.id) AS "topicsCount",
			(SELECT COUNT(*) FROM forum_replies r WHERE r.user_id = u.id) AS "repliesCount"
		 FROM users u
		 WHERE EXISTS (SELECT 1 FROM forum_topics t WHERE t.user_id = u.id)
			OR EXISTS (SELECT 1 FROM forum_replies r WHERE r.user_id = u.id)
		 ORDER BY "topicsCount" DESC, "repliesCount" DESC, u.nome ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "querying forum ranking")
	}
	return entries, nil
}
