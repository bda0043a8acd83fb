package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/modelaedu/modela/core/forum"
)

type forumApi struct {
	svc      *forum.Service
	validate *validator.Validate
}

func registerForumAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := forumApi{svc: deps.ForumSvc, validate: deps.Validate}

	g.GET("/forum/topics", api.listTopics)
	g.GET("/forum/topic/:topicId", api.getTopic)
	g.GET("/ranking/forum", api.ranking)

	g.POST("/forum/topic", api.createTopic, jwt)
	g.POST("/forum/reply", api.createReply, jwt)
}

// Handlers

func (api *forumApi) createTopic(ctx echo.Context) error {
	var data forum.NewTopic
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTopic")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if data.UserID != claims.UserID {
		return errHTTPForbidden
	}

	topicID, points, err := api.svc.CreateTopic(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{
		"success":       true,
		"topicId":       topicID,
		"pointsAwarded": points,
	})
}

func (api *forumApi) createReply(ctx echo.Context) error {
	var data forum.NewReply
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReply")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if data.UserID != claims.UserID {
		return errHTTPForbidden
	}

	replyID, points, err := api.svc.CreateReply(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{
		"success":       true,
		"replyId":       replyID,
		"pointsAwarded": points,
	})
}

func (api *forumApi) listTopics(ctx echo.Context) error {
	topics, err := api.svc.ListTopics(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, topics)
}

func (api *forumApi) getTopic(ctx echo.Context) error {
	topicID, err := pathID(ctx, "topicId")
	if err != nil {
		return err
	}

	topic, replies, err := api.svc.GetTopic(ctx.Request().Context(), topicID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, topicDetail{Topic: topic, Replies: replies})
}

func (api *forumApi) ranking(ctx echo.Context) error {
	entries, err := api.svc.Ranking(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entries)
}

type topicDetail struct {
	forum.Topic
	Replies []forum.Reply `json:"replies"`
}
