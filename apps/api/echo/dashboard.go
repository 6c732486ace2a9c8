package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
)

type dashboardApi struct {
	usrSvc *user.Service
	crsSvc *course.Service
	enrSvc *enrollment.Service
	subSvc *submission.Service
}

func registerDashboardAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	usrSvc *user.Service,
	crsSvc *course.Service,
	enrSvc *enrollment.Service,
	subSvc *submission.Service,
) {
	api := dashboardApi{usrSvc: usrSvc, crsSvc: crsSvc, enrSvc: enrSvc, subSvc: subSvc}
	g.GET("/dashboard", api.retrieve, jwt)
}

type (
	CourseProgressEntry struct {
		CourseID int                        `json:"course_id"`
		Progress enrollment.ProgressSummary `json:"progress"`
	}

	StudentDashboard struct {
		Courses     []CourseProgressEntry `json:"courses"`
		Submissions int                   `json:"submissions"`
	}

	InstructorDashboard struct {
		Courses             int `json:"courses"`
		Enrollments         int `json:"enrollments"`
		UngradedSubmissions int `json:"ungraded_submissions"`
	}

	AdminDashboard struct {
		Users          map[string]int `json:"users"`
		Courses        int            `json:"courses"`
		Enrollments    int            `json:"enrollments"`
		RecentStudents []user.User    `json:"recent_students"`
	}
)

// retrieve returns a role-shaped summary of the caller's world.
func (api *dashboardApi) retrieve(ctx echo.Context) error {
	p := getContextPrincipal(ctx)
	switch {
	case p.IsStudent():
		return api.studentDashboard(ctx)
	case p.IsInstructor():
		return api.instructorDashboard(ctx)
	case p.IsAdmin():
		return api.adminDashboard(ctx)
	}
	return errHttpForbidden
}

func (api *dashboardApi) studentDashboard(ctx echo.Context) error {
	p := getContextPrincipal(ctx)
	reqCtx := ctx.Request().Context()

	enrs, err := api.enrSvc.ListMine(reqCtx, p)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	dash := StudentDashboard{Courses: make([]CourseProgressEntry, 0, len(enrs))}
	for _, enr := range enrs {
		sum, err := api.enrSvc.CourseProgress(reqCtx, p, p.ID, enr.CourseID)
		if err != nil {
			return errors.Wrap(err, "summarizing progress")
		}
		dash.Courses = append(dash.Courses, CourseProgressEntry{CourseID: enr.CourseID, Progress: sum})
	}

	subs, err := api.subSvc.ListMine(reqCtx, p)
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	dash.Submissions = len(subs)
	return ctx.JSON(http.StatusOK, dash)
}

func (api *dashboardApi) instructorDashboard(ctx echo.Context) error {
	p := getContextPrincipal(ctx)
	reqCtx := ctx.Request().Context()

	courses, err := api.crsSvc.Filter(reqCtx, p, course.QueryFilter{InstructorID: p.ID})
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	courseIDs := make([]int, len(courses))
	for i, crs := range courses {
		courseIDs[i] = crs.ID
	}

	dash := InstructorDashboard{Courses: len(courses)}
	if len(courseIDs) > 0 {
		if dash.Enrollments, err = api.enrSvc.CountForCourses(reqCtx, courseIDs...); err != nil {
			return errors.Wrap(err, "counting enrollments")
		}
		if dash.UngradedSubmissions, err = api.subSvc.CountUngraded(reqCtx, courseIDs...); err != nil {
			return errors.Wrap(err, "counting ungraded submissions")
		}
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *dashboardApi) adminDashboard(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	dash := AdminDashboard{Users: make(map[string]int, len(user.AllRoles))}
	for _, role := range user.AllRoles {
		count, err := api.usrSvc.CountByRole(reqCtx, role)
		if err != nil {
			return errors.Wrap(err, "counting users")
		}
		dash.Users[string(role)] = count
	}

	var err error
	if dash.Courses, err = api.crsSvc.Count(reqCtx, course.QueryFilter{}); err != nil {
		return errors.Wrap(err, "counting courses")
	}
	if dash.Enrollments, err = api.enrSvc.CountForCourses(reqCtx); err != nil {
		return errors.Wrap(err, "counting enrollments")
	}

	recent, err := api.usrSvc.Filter(
		reqCtx,
		user.QueryFilter{Role: user.RoleStudent, Limit: 5},
		core.DBOrdering{Field: "created_at"},
	)
	if err != nil {
		return errors.Wrap(err, "listing recent students")
	}
	dash.RecentStudents = recent
	return ctx.JSON(http.StatusOK, dash)
}
