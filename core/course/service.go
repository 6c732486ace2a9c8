package course

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/authz"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrCourseNotFound     = errors.New("course not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourseByID(ctx context.Context, id int) (Course, error)
		// FilterCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Course.Title or
		// Course.Description.
		FilterCourses(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Course, error)
		CountCourses(ctx context.Context, filter QueryFilter) (int, error)
		UpdateCourse(ctx context.Context, c Course, published *bool) (Course, error)
		SetCourseInstructor(ctx context.Context, id, instructorID int) (Course, error)
		// DeleteCoursesByID removes the courses and everything hanging off
		// them: lessons (with progress), assignments (with submissions) and
		// enrollments. The whole sequence runs in one transaction per call.
		DeleteCoursesByID(ctx context.Context, ids ...int) error

		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		GetLessonByID(ctx context.Context, id int) (Lesson, error)
		// GetCourseLessons returns the course's lessons ordered by
		// (Lesson.Order, Lesson.ID) ascending.
		GetCourseLessons(ctx context.Context, courseID int) ([]Lesson, error)
		CountCourseLessons(ctx context.Context, courseID int) (int, error)
		// NextLessonOrder returns max(Lesson.Order)+1 for the course,
		// 1 when the course has no lessons yet.
		NextLessonOrder(ctx context.Context, courseID int) (int, error)
		// AdjacentLessons returns the lessons immediately before and after l
		// in (Order, ID) ascending order; nil at either boundary.
		AdjacentLessons(ctx context.Context, l Lesson) (prev, next *Lesson, err error)
		UpdateLesson(ctx context.Context, l Lesson) (Lesson, error)
		DeleteLessonsByID(ctx context.Context, ids ...int) error

		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id int) (Assignment, error)
		GetCourseAssignments(ctx context.Context, courseID int) ([]Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		DeleteAssignmentsByID(ctx context.Context, ids ...int) error
	}

	// EnrollmentChecker reports whether a student holds an enrollment in a
	// course. Satisfied by the enrollment repository; an interface here so
	// this package does not depend on the enrollment package.
	EnrollmentChecker interface {
		IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error)
	}

	Service struct {
		repo       Repository
		usrSvc     *user.Service
		enrChecker EnrollmentChecker
	}

	// LessonPage is a lesson plus its neighbours in course order, for
	// previous/next navigation.
	LessonPage struct {
		Lesson   Lesson  `json:"lesson"`
		Previous *Lesson `json:"previous,omitempty"`
		Next     *Lesson `json:"next,omitempty"`
	}
)

func NewService(repo Repository, usrSvc *user.Service, enrChecker EnrollmentChecker) *Service {
	return &Service{repo: repo, usrSvc: usrSvc, enrChecker: enrChecker}
}

// Create creates a course owned by the acting instructor. Admins create on
// behalf of an instructor named in NewCourse.InstructorID.
func (svc *Service) Create(ctx context.Context, p authz.Principal, nc NewCourse) (Course, error) {
	if err := authz.Decide(p, authz.ActionCreateCourse, authz.Target{}).Err(); err != nil {
		return Course{}, err
	}
	if err := nc.Validate(ctx); err != nil {
		return Course{}, err
	}

	instructorID := p.ID
	if p.IsAdmin() {
		instructorID = nc.InstructorID
		if err := svc.checkInstructor(ctx, instructorID); err != nil {
			return Course{}, err
		}
	}

	now := time.Now().UTC()
	return svc.repo.CreateCourse(ctx, Course{
		Title:        nc.Title,
		Description:  nc.Description,
		Thumbnail:    nc.Thumbnail,
		InstructorID: instructorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *Service) Get(ctx context.Context, p authz.Principal, id int) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = authz.Decide(p, authz.ActionViewCourse, courseTarget(crs)).Err(); err != nil {
		return Course{}, err
	}
	return crs, nil
}

// Filter lists courses visible to the principal: admins see everything,
// everyone else sees published courses plus (for instructors) their own.
func (svc *Service) Filter(ctx context.Context, p authz.Principal, filter QueryFilter, ordering ...core.DBOrdering) ([]Course, error) {
	if err := authz.Decide(p, authz.ActionViewCourse, authz.Target{CoursePublished: true}).Err(); err != nil {
		return nil, err
	}
	filter.Clean()
	if !p.IsAdmin() && !(p.IsInstructor() && filter.InstructorID == p.ID) {
		published := true
		filter.Published = &published
	}
	return svc.repo.FilterCourses(ctx, filter, ordering...)
}

func (svc *Service) Count(ctx context.Context, filter QueryFilter) (int, error) {
	return svc.repo.CountCourses(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, p authz.Principal, id int, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = authz.Decide(p, authz.ActionUpdateCourse, courseTarget(crs)).Err(); err != nil {
		return Course{}, err
	}
	if err = uc.Validate(ctx, crs); err != nil {
		return Course{}, err
	}
	return svc.repo.UpdateCourse(ctx, Course{
		ID:          id,
		Title:       uc.Title,
		Description: uc.Description,
		Thumbnail:   uc.Thumbnail,
		UpdatedAt:   time.Now().UTC(),
	}, uc.Published)
}

func (svc *Service) Delete(ctx context.Context, p authz.Principal, id int) error {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return err
	}
	if err = authz.Decide(p, authz.ActionDeleteCourse, courseTarget(crs)).Err(); err != nil {
		return err
	}
	return svc.repo.DeleteCoursesByID(ctx, id)
}

// Reassign hands a course over to another instructor. Existing enrollments,
// lessons and assignments stay put.
func (svc *Service) Reassign(ctx context.Context, p authz.Principal, courseID, instructorID int) (Course, error) {
	if err := authz.Decide(p, authz.ActionReassignInstructor, authz.Target{}).Err(); err != nil {
		return Course{}, err
	}
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return Course{}, err
	}
	if err := svc.checkInstructor(ctx, instructorID); err != nil {
		return Course{}, err
	}
	return svc.repo.SetCourseInstructor(ctx, courseID, instructorID)
}

// Lessons

func (svc *Service) AddLesson(ctx context.Context, p authz.Principal, courseID int, nl NewLesson) (Lesson, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Lesson{}, err
	}
	if err = authz.Decide(p, authz.ActionManageContent, courseTarget(crs)).Err(); err != nil {
		return Lesson{}, err
	}
	if err = nl.Validate(ctx); err != nil {
		return Lesson{}, err
	}

	order := nl.Order
	if order == 0 {
		if order, err = svc.repo.NextLessonOrder(ctx, courseID); err != nil {
			return Lesson{}, err
		}
	}

	now := time.Now().UTC()
	return svc.repo.CreateLesson(ctx, Lesson{
		CourseID:  courseID,
		Title:     nl.Title,
		Type:      nl.Type,
		Content:   nl.Content,
		VideoURL:  nl.VideoURL,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// GetLesson returns a lesson with its previous/next neighbours. Callers that
// track student progress do so separately once this succeeds.
func (svc *Service) GetLesson(ctx context.Context, p authz.Principal, id int) (LessonPage, error) {
	lsn, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return LessonPage{}, err
	}
	if err = svc.checkContentAccess(ctx, p, lsn.CourseID, authz.ActionViewContent); err != nil {
		return LessonPage{}, err
	}
	prev, next, err := svc.repo.AdjacentLessons(ctx, lsn)
	if err != nil {
		return LessonPage{}, err
	}
	return LessonPage{Lesson: lsn, Previous: prev, Next: next}, nil
}

func (svc *Service) ListLessons(ctx context.Context, p authz.Principal, courseID int) ([]Lesson, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	if err := svc.checkContentAccess(ctx, p, courseID, authz.ActionViewContent); err != nil {
		return nil, err
	}
	return svc.repo.GetCourseLessons(ctx, courseID)
}

func (svc *Service) UpdateLesson(ctx context.Context, p authz.Principal, id int, ul UpdateLesson) (Lesson, error) {
	lsn, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if err = svc.checkContentAccess(ctx, p, lsn.CourseID, authz.ActionManageContent); err != nil {
		return Lesson{}, err
	}
	if err = ul.Validate(ctx, lsn); err != nil {
		return Lesson{}, err
	}
	lsn.Title = ul.Title
	lsn.Type = ul.Type
	lsn.Content = ul.Content
	lsn.VideoURL = ul.VideoURL
	lsn.Order = ul.Order
	lsn.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateLesson(ctx, lsn)
}

func (svc *Service) DeleteLesson(ctx context.Context, p authz.Principal, id int) error {
	lsn, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.checkContentAccess(ctx, p, lsn.CourseID, authz.ActionManageContent); err != nil {
		return err
	}
	return svc.repo.DeleteLessonsByID(ctx, id)
}

// Assignments

func (svc *Service) AddAssignment(ctx context.Context, p authz.Principal, courseID int, na NewAssignment) (Assignment, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Assignment{}, err
	}
	if err = authz.Decide(p, authz.ActionManageContent, courseTarget(crs)).Err(); err != nil {
		return Assignment{}, err
	}
	if err = na.Validate(ctx); err != nil {
		return Assignment{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateAssignment(ctx, Assignment{
		CourseID:    courseID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate.UTC(),
		MaxScore:    na.MaxScore,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) GetAssignment(ctx context.Context, p authz.Principal, id int) (Assignment, error) {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if err = svc.checkContentAccess(ctx, p, asg.CourseID, authz.ActionViewContent); err != nil {
		return Assignment{}, err
	}
	return asg, nil
}

func (svc *Service) ListAssignments(ctx context.Context, p authz.Principal, courseID int) ([]Assignment, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	if err := svc.checkContentAccess(ctx, p, courseID, authz.ActionViewContent); err != nil {
		return nil, err
	}
	return svc.repo.GetCourseAssignments(ctx, courseID)
}

func (svc *Service) UpdateAssignment(ctx context.Context, p authz.Principal, id int, ua UpdateAssignment) (Assignment, error) {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if err = svc.checkContentAccess(ctx, p, asg.CourseID, authz.ActionManageContent); err != nil {
		return Assignment{}, err
	}
	if err = ua.Validate(ctx, asg); err != nil {
		return Assignment{}, err
	}
	asg.Title = ua.Title
	asg.Description = ua.Description
	asg.DueDate = ua.DueDate.UTC()
	asg.MaxScore = ua.MaxScore
	asg.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAssignment(ctx, asg)
}

func (svc *Service) DeleteAssignment(ctx context.Context, p authz.Principal, id int) error {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.checkContentAccess(ctx, p, asg.CourseID, authz.ActionManageContent); err != nil {
		return err
	}
	return svc.repo.DeleteAssignmentsByID(ctx, id)
}

// helpers

func courseTarget(crs Course) authz.Target {
	return authz.Target{CourseInstructorID: crs.InstructorID, CoursePublished: crs.Published}
}

// checkContentAccess decides a content action against the lesson/assignment's
// course, resolving the student's enrollment when the decision needs it.
func (svc *Service) checkContentAccess(ctx context.Context, p authz.Principal, courseID int, act authz.Action) error {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return err
	}
	target := courseTarget(crs)
	if p.IsStudent() {
		if target.Enrolled, err = svc.enrChecker.IsEnrolled(ctx, p.ID, courseID); err != nil {
			return err
		}
	}
	return authz.Decide(p, act, target).Err()
}

func (svc *Service) checkInstructor(ctx context.Context, id int) error {
	usr, err := svc.usrSvc.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return core.NewValidationError(err, core.FieldError{Field: "instructor_id", Error: err.Error()})
		}
		return err
	}
	if !usr.IsInstructor() {
		return core.NewValidationError(
			errors.New("user is not an instructor"),
			core.FieldError{Field: "instructor_id", Error: "user is not an instructor"},
		)
	}
	return nil
}
