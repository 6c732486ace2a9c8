package enrollment

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/authz"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("enrollment not found")
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
)

type (
	Repository interface {
		// CreateEnrollment returns ErrAlreadyEnrolled when the (student,
		// course) pair already exists; uniqueness is enforced at the
		// storage level so concurrent enrolls cannot both succeed.
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, studentID, courseID int) (Enrollment, error)
		IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error)
		GetCourseEnrollments(ctx context.Context, courseID int) ([]Enrollment, error)
		GetStudentEnrollments(ctx context.Context, studentID int) ([]Enrollment, error)
		// CountEnrollments counts enrollments in the given courses, or all
		// enrollments when no course IDs are given.
		CountEnrollments(ctx context.Context, courseIDs ...int) (int, error)
		// DeleteEnrollment removes the enrollment row only; the student's
		// Progress rows are kept.
		DeleteEnrollment(ctx context.Context, studentID, courseID int) error

		// UpsertProgress inserts the (student, lesson) row or refreshes its
		// CompletedAt when it already exists.
		UpsertProgress(ctx context.Context, pr Progress) (Progress, error)
		CountCompletedLessons(ctx context.Context, studentID, courseID int) (int, error)
	}

	Service struct {
		repo    Repository
		crsRepo course.Repository
		usrSvc  *user.Service
	}
)

func NewService(repo Repository, crsRepo course.Repository, usrSvc *user.Service) *Service {
	return &Service{repo: repo, crsRepo: crsRepo, usrSvc: usrSvc}
}

// Enroll enrolls the acting student in a course. The course must be visible
// to the student (published) and the student must not already be enrolled.
func (svc *Service) Enroll(ctx context.Context, p authz.Principal, courseID int) (Enrollment, error) {
	crs, err := svc.crsRepo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if err = authz.Decide(p, authz.ActionViewCourse, courseTarget(crs)).Err(); err != nil {
		return Enrollment{}, err
	}

	dup, err := svc.repo.IsEnrolled(ctx, p.ID, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if err = authz.Decide(p, authz.ActionEnroll, authz.Target{Duplicate: dup}).Err(); err != nil {
		return Enrollment{}, err
	}
	return svc.create(ctx, p.ID, courseID)
}

// AdminEnroll enrolls a student on their behalf. The target user must hold
// the student role.
func (svc *Service) AdminEnroll(ctx context.Context, p authz.Principal, studentID, courseID int) (Enrollment, error) {
	if err := authz.Decide(p, authz.ActionAdminEnroll, authz.Target{}).Err(); err != nil {
		return Enrollment{}, err
	}
	if _, err := svc.crsRepo.GetCourseByID(ctx, courseID); err != nil {
		return Enrollment{}, err
	}
	if err := svc.checkStudent(ctx, studentID); err != nil {
		return Enrollment{}, err
	}
	return svc.create(ctx, studentID, courseID)
}

// Unenroll removes the acting student's own enrollment. Progress rows are
// retained.
func (svc *Service) Unenroll(ctx context.Context, p authz.Principal, courseID int) error {
	if err := authz.Decide(p, authz.ActionUnenroll, authz.Target{OwnerID: p.ID}).Err(); err != nil {
		return err
	}
	return svc.repo.DeleteEnrollment(ctx, p.ID, courseID)
}

func (svc *Service) AdminUnenroll(ctx context.Context, p authz.Principal, studentID, courseID int) error {
	if err := authz.Decide(p, authz.ActionAdminUnenroll, authz.Target{}).Err(); err != nil {
		return err
	}
	return svc.repo.DeleteEnrollment(ctx, studentID, courseID)
}

// MarkLessonViewed records that the acting student completed a lesson.
// Idempotent: re-viewing refreshes the completion timestamp instead of
// failing or duplicating rows.
func (svc *Service) MarkLessonViewed(ctx context.Context, p authz.Principal, lessonID int) (Progress, error) {
	if p.Anonymous() {
		return Progress{}, authz.NewError(authz.NotAuthenticated)
	}
	if !p.IsStudent() {
		// instructors and admins browse lessons without leaving progress rows
		return Progress{}, authz.NewError(authz.WrongRole)
	}
	lsn, err := svc.crsRepo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return Progress{}, err
	}
	target, err := svc.contentTarget(ctx, p, lsn.CourseID)
	if err != nil {
		return Progress{}, err
	}
	if err = authz.Decide(p, authz.ActionViewContent, target).Err(); err != nil {
		return Progress{}, err
	}
	return svc.repo.UpsertProgress(ctx, Progress{
		StudentID:   p.ID,
		LessonID:    lessonID,
		Completed:   true,
		CompletedAt: time.Now().UTC(),
	})
}

// CourseProgress summarizes a student's completion for one course. Students
// see their own, the owning instructor and admins see anyone's.
func (svc *Service) CourseProgress(ctx context.Context, p authz.Principal, studentID, courseID int) (ProgressSummary, error) {
	crs, err := svc.crsRepo.GetCourseByID(ctx, courseID)
	if err != nil {
		return ProgressSummary{}, err
	}

	target := courseTarget(crs)
	if p.IsStudent() {
		if p.ID != studentID {
			return ProgressSummary{}, authz.NewError(authz.NotOwner)
		}
		if target.Enrolled, err = svc.repo.IsEnrolled(ctx, studentID, courseID); err != nil {
			return ProgressSummary{}, err
		}
	}
	if err = authz.Decide(p, authz.ActionViewContent, target).Err(); err != nil {
		return ProgressSummary{}, err
	}

	total, err := svc.crsRepo.CountCourseLessons(ctx, courseID)
	if err != nil {
		return ProgressSummary{}, err
	}
	completed, err := svc.repo.CountCompletedLessons(ctx, studentID, courseID)
	if err != nil {
		return ProgressSummary{}, err
	}

	sum := ProgressSummary{CompletedLessons: completed, TotalLessons: total}
	if total > 0 {
		sum.Percent = int(math.Round(100 * float64(completed) / float64(total)))
	}
	return sum, nil
}

// ListMine lists the acting student's enrollments.
func (svc *Service) ListMine(ctx context.Context, p authz.Principal) ([]Enrollment, error) {
	if p.Anonymous() {
		return nil, authz.NewError(authz.NotAuthenticated)
	}
	return svc.repo.GetStudentEnrollments(ctx, p.ID)
}

// ListFor lists a student's enrollments: students see their own, admins see
// anyone's.
func (svc *Service) ListFor(ctx context.Context, p authz.Principal, studentID int) ([]Enrollment, error) {
	if p.Anonymous() {
		return nil, authz.NewError(authz.NotAuthenticated)
	}
	if !p.IsAdmin() && p.ID != studentID {
		return nil, authz.NewError(authz.NotOwner)
	}
	return svc.repo.GetStudentEnrollments(ctx, studentID)
}

// Roster lists a course's enrollments for its owning instructor or an admin.
func (svc *Service) Roster(ctx context.Context, p authz.Principal, courseID int) ([]Enrollment, error) {
	crs, err := svc.crsRepo.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if p.IsStudent() {
		return nil, authz.NewError(authz.WrongRole)
	}
	if err = authz.Decide(p, authz.ActionViewContent, courseTarget(crs)).Err(); err != nil {
		return nil, err
	}
	return svc.repo.GetCourseEnrollments(ctx, courseID)
}

func (svc *Service) IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error) {
	return svc.repo.IsEnrolled(ctx, studentID, courseID)
}

func (svc *Service) CountForCourses(ctx context.Context, courseIDs ...int) (int, error) {
	return svc.repo.CountEnrollments(ctx, courseIDs...)
}

// helpers

func courseTarget(crs course.Course) authz.Target {
	return authz.Target{CourseInstructorID: crs.InstructorID, CoursePublished: crs.Published}
}

func (svc *Service) contentTarget(ctx context.Context, p authz.Principal, courseID int) (authz.Target, error) {
	crs, err := svc.crsRepo.GetCourseByID(ctx, courseID)
	if err != nil {
		return authz.Target{}, err
	}
	target := courseTarget(crs)
	if p.IsStudent() {
		if target.Enrolled, err = svc.repo.IsEnrolled(ctx, p.ID, courseID); err != nil {
			return authz.Target{}, err
		}
	}
	return target, nil
}

func (svc *Service) checkStudent(ctx context.Context, id int) error {
	usr, err := svc.usrSvc.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return err
	}
	if !usr.IsStudent() {
		return core.NewValidationError(
			errors.New("user is not a student"),
			core.FieldError{Field: "student_id", Error: "user is not a student"},
		)
	}
	return nil
}

func (svc *Service) create(ctx context.Context, studentID, courseID int) (Enrollment, error) {
	enr, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		EnrolledAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyEnrolled) {
			return Enrollment{}, authz.NewError(authz.AlreadyExists)
		}
		return Enrollment{}, err
	}
	return enr, nil
}
