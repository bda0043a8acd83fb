package forum

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/modelaedu/modela/core"
)

// Fixed participation awards.
const (
	TopicPoints = 5
	ReplyPoints = 2
)

type (
	// Topic is a forum thread; UserName is joined in on reads.
	Topic struct {
		ID           int64     `json:"id" db:"id"`
		UserID       int64     `json:"user_id" db:"user_id"`
		UserName     string    `json:"userName" db:"userName"`
		Title        string    `json:"title" db:"title"`
		Content      string    `json:"content" db:"content"`
		Category     string    `json:"category" db:"category"`
		CreatedAt    time.Time `json:"created_at" db:"created_at"`
		RepliesCount int       `json:"repliesCount" db:"repliesCount"`
	}

	Reply struct {
		ID        int64     `json:"id" db:"id"`
		TopicID   int64     `json:"-" db:"topic_id"`
		UserID    int64     `json:"user_id" db:"user_id"`
		UserName  string    `json:"userName" db:"userName"`
		Content   string    `json:"content" db:"content"`
		CreatedAt time.Time `json:"created_at" db:"created_at"`
	}

	// RankingEntry is one row of the forum participation ranking.
	RankingEntry struct {
		UserID       int64  `json:"userId" db:"userId"`
		Nome         string `json:"nome" db:"nome"`
		Username     string `json:"username" db:"username"`
		TopicsCount  int    `json:"topicsCount" db:"topicsCount"`
		RepliesCount int    `json:"repliesCount" db:"repliesCount"`
	}
)

type NewTopic struct {
	UserID   int64  `json:"userId" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
	Category string `json:"category"`
}

func (nt *NewTopic) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Content = core.CleanString(nt.Content)
	nt.Category = core.CleanString(nt.Category)
	return validate.Struct(nt)
}

type NewReply struct {
	UserID  int64  `json:"userId" validate:"required"`
	TopicID int64  `json:"topicId" validate:"required"`
	Content string `json:"content" validate:"required"`
}

func (nr *NewReply) Validate(validate *validator.Validate) error {
	nr.Content = core.CleanString(nr.Content)
	return validate.Struct(nr)
}
