package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/submission"
)

type contentApi struct {
	crsSvc *course.Service
	enrSvc *enrollment.Service
	subSvc *submission.Service
}

func registerContentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	crsSvc *course.Service,
	enrSvc *enrollment.Service,
	subSvc *submission.Service,
) {
	api := contentApi{crsSvc: crsSvc, enrSvc: enrSvc, subSvc: subSvc}

	// registered on g directly: a sub-group on "/courses/:id" would re-route
	// the prefix and shadow the course detail endpoints.
	g.GET("/courses/:id/lessons", api.queryLessons, jwt)
	g.POST("/courses/:id/lessons", api.createLesson, jwt)
	g.GET("/courses/:id/assignments", api.queryAssignments, jwt)
	g.POST("/courses/:id/assignments", api.createAssignment, jwt)

	lg := g.Group("/lessons", jwt)
	lg.GET("/:id", api.retrieveLesson)
	lg.PUT("/:id", api.updateLesson)
	lg.DELETE("/:id", api.destroyLesson)

	ag := g.Group("/assignments", jwt)
	ag.GET("/:id", api.retrieveAssignment)
	ag.PUT("/:id", api.updateAssignment)
	ag.DELETE("/:id", api.destroyAssignment)
	ag.GET("/:id/submissions", api.querySubmissions)
	ag.POST("/:id/submissions", api.submit)

	sg := g.Group("/submissions", jwt)
	sg.GET("", api.queryMySubmissions)
	sg.GET("/:id", api.retrieveSubmission)
	sg.PUT("/:id/grade", api.grade)
}

// Lessons

func (api *contentApi) createLesson(ctx echo.Context) error {
	courseID, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data course.NewLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}

	lsn, err := api.crsSvc.AddLesson(ctx.Request().Context(), getContextPrincipal(ctx), courseID, data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, lsn)
}

func (api *contentApi) queryLessons(ctx echo.Context) error {
	courseID, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	lessons, err := api.crsSvc.ListLessons(ctx.Request().Context(), getContextPrincipal(ctx), courseID)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []course.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

// retrieveLesson returns the lesson with its previous/next neighbours.
// Viewing a lesson is what completes it for a student.
func (api *contentApi) retrieveLesson(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	p := getContextPrincipal(ctx)
	page, err := api.crsSvc.GetLesson(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "finding lesson by ID")
	}
	if p.IsStudent() {
		if _, err = api.enrSvc.MarkLessonViewed(ctx.Request().Context(), p, id); err != nil {
			// the lesson still renders; progress is best-effort here
			ctx.Logger().Errorf("%+v", errors.Wrap(err, "marking lesson viewed"))
		}
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *contentApi) updateLesson(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data course.UpdateLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}

	lsn, err := api.crsSvc.UpdateLesson(ctx.Request().Context(), getContextPrincipal(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *contentApi) destroyLesson(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.crsSvc.DeleteLesson(ctx.Request().Context(), getContextPrincipal(ctx), id); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Assignments

func (api *contentApi) createAssignment(ctx echo.Context) error {
	courseID, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data course.NewAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}

	asg, err := api.crsSvc.AddAssignment(ctx.Request().Context(), getContextPrincipal(ctx), courseID, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *contentApi) queryAssignments(ctx echo.Context) error {
	courseID, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	asgs, err := api.crsSvc.ListAssignments(ctx.Request().Context(), getContextPrincipal(ctx), courseID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if asgs == nil {
		asgs = []course.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *contentApi) retrieveAssignment(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	asg, err := api.crsSvc.GetAssignment(ctx.Request().Context(), getContextPrincipal(ctx), id)
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *contentApi) updateAssignment(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data course.UpdateAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}

	asg, err := api.crsSvc.UpdateAssignment(ctx.Request().Context(), getContextPrincipal(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *contentApi) destroyAssignment(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.crsSvc.DeleteAssignment(ctx.Request().Context(), getContextPrincipal(ctx), id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Submissions

func (api *contentApi) submit(ctx echo.Context) error {
	assignmentID, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data submission.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}

	sub, err := api.subSvc.Submit(ctx.Request().Context(), getContextPrincipal(ctx), assignmentID, data)
	if err != nil {
		return errors.Wrap(err, "submitting")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *contentApi) querySubmissions(ctx echo.Context) error {
	assignmentID, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	subs, err := api.subSvc.ListForAssignment(ctx.Request().Context(), getContextPrincipal(ctx), assignmentID)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *contentApi) queryMySubmissions(ctx echo.Context) error {
	subs, err := api.subSvc.ListMine(ctx.Request().Context(), getContextPrincipal(ctx))
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *contentApi) retrieveSubmission(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	sub, err := api.subSvc.Get(ctx.Request().Context(), getContextPrincipal(ctx), id)
	if err != nil {
		return errors.Wrap(err, "finding submission by ID")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *contentApi) grade(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data submission.GradeInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeInput")
	}

	sub, err := api.subSvc.Grade(ctx.Request().Context(), getContextPrincipal(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
