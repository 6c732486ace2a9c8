package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
)

type courseApi struct {
	svc    *course.Service
	enrSvc *enrollment.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, enrSvc *enrollment.Service) {
	api := courseApi{svc: svc, enrSvc: enrSvc}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
	cg.POST("/:id/reassign", api.reassign, adminMiddleware())

	cg.POST("/:id/enroll", api.enroll)
	cg.DELETE("/:id/enroll", api.unenroll)
	cg.GET("/:id/roster", api.roster)
	cg.GET("/:id/progress", api.progress)
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), getContextPrincipal(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, "title", "created_at", "updated_at")

	courses, err := api.svc.Filter(ctx.Request().Context(), getContextPrincipal(ctx), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	crs, err := api.svc.Get(ctx.Request().Context(), getContextPrincipal(ctx), id)
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}

	crs, err := api.svc.Update(ctx.Request().Context(), getContextPrincipal(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), getContextPrincipal(ctx), id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) reassign(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data ReassignRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReassignRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	crs, err := api.svc.Reassign(ctx.Request().Context(), getContextPrincipal(ctx), id, data.InstructorID)
	if err != nil {
		return errors.Wrap(err, "reassigning course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	enr, err := api.enrSvc.Enroll(ctx.Request().Context(), getContextPrincipal(ctx), id)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.enrSvc.Unenroll(ctx.Request().Context(), getContextPrincipal(ctx), id); err != nil {
		return errors.Wrap(err, "unenrolling")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) roster(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	roster, err := api.enrSvc.Roster(ctx.Request().Context(), getContextPrincipal(ctx), id)
	if err != nil {
		return errors.Wrap(err, "listing roster")
	}
	if roster == nil {
		roster = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, roster)
}

func (api *courseApi) progress(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	p := getContextPrincipal(ctx)
	studentID := p.ID
	if raw := ctx.QueryParam("student_id"); raw != "" {
		if studentID, err = strconv.Atoi(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid student_id")
		}
	}

	sum, err := api.enrSvc.CourseProgress(ctx.Request().Context(), p, studentID, id)
	if err != nil {
		return errors.Wrap(err, "summarizing progress")
	}
	return ctx.JSON(http.StatusOK, sum)
}

type ReassignRequest struct {
	InstructorID int `json:"instructor_id" validate:"required"`
}

func (rr *ReassignRequest) Validate() error {
	return core.Validate.Struct(rr)
}
