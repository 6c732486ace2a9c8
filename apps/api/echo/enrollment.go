package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/enrollment"
)

type enrollmentApi struct {
	svc *enrollment.Service
}

// registerEnrollmentAPI wires the admin-only enrollment management endpoints.
// Students enroll themselves through /courses/:id/enroll.
func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *enrollment.Service) {
	api := enrollmentApi{svc: svc}

	eg := g.Group("/enrollments", jwt, adminMiddleware())
	eg.POST("", api.create)
	eg.DELETE("", api.destroy)

	// student detail: enrollments with per-course progress, self or admin
	g.GET("/users/:id/enrollments", api.queryForStudent, jwt)
}

func (api *enrollmentApi) create(ctx echo.Context) error {
	var data EnrollmentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollmentRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	enr, err := api.svc.AdminEnroll(ctx.Request().Context(), getContextPrincipal(ctx), data.StudentID, data.CourseID)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentApi) destroy(ctx echo.Context) error {
	var data EnrollmentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollmentRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.AdminUnenroll(ctx.Request().Context(), getContextPrincipal(ctx), data.StudentID, data.CourseID); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *enrollmentApi) queryForStudent(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	p := getContextPrincipal(ctx)
	reqCtx := ctx.Request().Context()

	enrs, err := api.svc.ListFor(reqCtx, p, id)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	details := make([]EnrollmentDetail, 0, len(enrs))
	for _, enr := range enrs {
		sum, err := api.svc.CourseProgress(reqCtx, p, id, enr.CourseID)
		if err != nil {
			return errors.Wrap(err, "summarizing progress")
		}
		details = append(details, EnrollmentDetail{Enrollment: enr, Progress: sum})
	}
	return ctx.JSON(http.StatusOK, details)
}

type EnrollmentRequest struct {
	StudentID int `json:"student_id" validate:"required"`
	CourseID  int `json:"course_id" validate:"required"`
}

func (er *EnrollmentRequest) Validate() error {
	return core.Validate.Struct(er)
}

type EnrollmentDetail struct {
	enrollment.Enrollment
	Progress enrollment.ProgressSummary `json:"progress"`
}
