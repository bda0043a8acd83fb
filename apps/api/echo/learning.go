package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/modelaedu/modela/core/learning"
)

type learningApi struct {
	svc      *learning.Service
	validate *validator.Validate
}

func registerLearningAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := learningApi{svc: deps.LearningSvc, validate: deps.Validate}

	g.GET("/ranking", api.ranking)

	ug := g.Group("/user/:id", jwt, ownerMiddleware())
	ug.GET("/dashboard", api.dashboard)
	ug.GET("/progress", api.listProgress)
	ug.POST("/progress", api.saveProgress)
	ug.POST("/lesson-progress", api.patchLesson)
	ug.GET("/module/:moduleId/progress", api.moduleProgress)
	ug.POST("/exercise-attempt", api.recordAttempt)
	ug.POST("/score", api.addScore)
	ug.GET("/total-score", api.totalScore)
	ug.POST("/exercise-state", api.saveState)
	ug.GET("/exercise-state/:lessonId", api.loadState)
	ug.DELETE("/exercise-state/:lessonId", api.clearState)
}

// Handlers

func (api *learningApi) dashboard(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	d, err := api.svc.Dashboard(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *learningApi) listProgress(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	rows, err := api.svc.ListProgress(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *learningApi) moduleProgress(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	moduleID, err := pathInt(ctx, "moduleId")
	if err != nil {
		return err
	}

	rows, err := api.svc.ModuleProgress(ctx.Request().Context(), id, moduleID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *learningApi) saveProgress(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data learning.ProgressInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgressInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.SaveProgress(ctx.Request().Context(), id, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Progresso salvo com sucesso",
	})
}

func (api *learningApi) patchLesson(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data learning.LessonPatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LessonPatch")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.PatchLessonProgress(ctx.Request().Context(), id, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"success": true})
}

func (api *learningApi) recordAttempt(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data learning.AttemptInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttemptInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.RecordAttempt(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"isFirstAttempt": res.IsFirstAttempt,
		"pointsAwarded":  res.PointsAwarded,
		"percentage":     res.Percentage,
	})
}

func (api *learningApi) addScore(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data learning.ScoreInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScoreInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.AddScore(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}

	body := echo.Map{"success": true, "pointsAdded": res.PointsAdded}
	if res.AlreadyExists {
		body["alreadyExists"] = true
	}
	return ctx.JSON(http.StatusOK, body)
}

func (api *learningApi) totalScore(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	ts, err := api.svc.TotalScore(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ts)
}

func (api *learningApi) ranking(ctx echo.Context) error {
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))

	entries, err := api.svc.Ranking(ctx.Request().Context(), limit)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *learningApi) saveState(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data learning.StateInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StateInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.SaveState(ctx.Request().Context(), id, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"success": true})
}

func (api *learningApi) loadState(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	lessonID, err := pathInt(ctx, "lessonId")
	if err != nil {
		return err
	}

	// a missing state is a normal answer, not an error; the client probes
	// on every lesson load
	state, err := api.svc.LoadState(ctx.Request().Context(), id, lessonID)
	if err != nil {
		if errors.Cause(err) == learning.ErrStateNotFound {
			return ctx.JSON(http.StatusOK, echo.Map{"success": true, "state": nil})
		}
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"success": true, "state": state})
}

func (api *learningApi) clearState(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	lessonID, err := pathInt(ctx, "lessonId")
	if err != nil {
		return err
	}

	if err := api.svc.ClearState(ctx.Request().Context(), id, lessonID); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"success": true})
}
