package submission

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/authz"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("submission not found")
	ErrAlreadySubmitted = errors.New("assignment already submitted")
)

type (
	Repository interface {
		// CreateSubmission returns ErrAlreadySubmitted when the (assignment,
		// student) pair already exists; uniqueness is enforced at the
		// storage level so concurrent submits cannot both succeed.
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmissionByID(ctx context.Context, id int) (Submission, error)
		HasSubmission(ctx context.Context, studentID, assignmentID int) (bool, error)
		GetAssignmentSubmissions(ctx context.Context, assignmentID int) ([]Submission, error)
		GetStudentSubmissions(ctx context.Context, studentID int) ([]Submission, error)
		// SetGrade overwrites the grading fields only; Content, Attachment
		// and SubmittedAt are never touched after creation.
		SetGrade(ctx context.Context, id int, score float64, feedback string, gradedByID int, gradedAt time.Time) (Submission, error)
		CountUngradedSubmissions(ctx context.Context, courseIDs ...int) (int, error)
	}

	Service struct {
		repo       Repository
		crsRepo    course.Repository
		enrChecker course.EnrollmentChecker
		usrSvc     *user.Service
		mailSvc    core.EmailService
	}
)

func NewService(
	repo Repository,
	crsRepo course.Repository,
	enrChecker course.EnrollmentChecker,
	usrSvc *user.Service,
	mailSvc core.EmailService,
) *Service {
	return &Service{repo: repo, crsRepo: crsRepo, enrChecker: enrChecker, usrSvc: usrSvc, mailSvc: mailSvc}
}

// Submit creates the acting student's submission for an assignment. The
// student must be enrolled in the assignment's course and must not have
// submitted already.
func (svc *Service) Submit(ctx context.Context, p authz.Principal, assignmentID int, ns NewSubmission) (Submission, error) {
	asg, err := svc.crsRepo.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}
	crs, err := svc.crsRepo.GetCourseByID(ctx, asg.CourseID)
	if err != nil {
		return Submission{}, err
	}

	target := authz.Target{CourseInstructorID: crs.InstructorID, CoursePublished: crs.Published}
	if p.IsStudent() {
		if target.Enrolled, err = svc.enrChecker.IsEnrolled(ctx, p.ID, crs.ID); err != nil {
			return Submission{}, err
		}
		if target.Duplicate, err = svc.repo.HasSubmission(ctx, p.ID, assignmentID); err != nil {
			return Submission{}, err
		}
	}
	if err = authz.Decide(p, authz.ActionSubmit, target).Err(); err != nil {
		return Submission{}, err
	}
	if err = ns.Validate(ctx); err != nil {
		return Submission{}, err
	}

	sub, err := svc.repo.CreateSubmission(ctx, Submission{
		AssignmentID: assignmentID,
		StudentID:    p.ID,
		Content:      ns.Content,
		Attachment:   ns.Attachment,
		SubmittedAt:  time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrAlreadySubmitted) {
			return Submission{}, authz.NewError(authz.AlreadyExists)
		}
		return Submission{}, err
	}
	return sub, nil
}

// Grade records an instructor's score for a submission. Only the owning
// instructor of the assignment's course may grade; the score must be within
// [0, Assignment.MaxScore]. Re-grading overwrites the previous grade and
// feedback.
func (svc *Service) Grade(ctx context.Context, p authz.Principal, id int, gi GradeInput) (Submission, error) {
	sub, err := svc.repo.GetSubmissionByID(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	asg, err := svc.crsRepo.GetAssignmentByID(ctx, sub.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	crs, err := svc.crsRepo.GetCourseByID(ctx, asg.CourseID)
	if err != nil {
		return Submission{}, err
	}

	if err = authz.Decide(p, authz.ActionGrade, authz.Target{CourseInstructorID: crs.InstructorID}).Err(); err != nil {
		return Submission{}, err
	}
	if err = gi.Validate(ctx); err != nil {
		return Submission{}, err
	}
	if gi.Score < 0 || gi.Score > float64(asg.MaxScore) {
		return Submission{}, authz.NewError(authz.OutOfRange)
	}

	graded, err := svc.repo.SetGrade(ctx, id, gi.Score, gi.Feedback, p.ID, time.Now().UTC())
	if err != nil {
		return Submission{}, err
	}
	svc.sendGradedEmail(ctx, graded, asg, crs)
	return graded, nil
}

// Get returns a submission to its student owner, the owning instructor of
// its course, or an admin.
func (svc *Service) Get(ctx context.Context, p authz.Principal, id int) (Submission, error) {
	sub, err := svc.repo.GetSubmissionByID(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if err = svc.checkReadAccess(ctx, p, sub); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// ListForAssignment lists an assignment's submissions for the owning
// instructor or an admin.
func (svc *Service) ListForAssignment(ctx context.Context, p authz.Principal, assignmentID int) ([]Submission, error) {
	asg, err := svc.crsRepo.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	crs, err := svc.crsRepo.GetCourseByID(ctx, asg.CourseID)
	if err != nil {
		return nil, err
	}
	if p.IsStudent() {
		return nil, authz.NewError(authz.WrongRole)
	}
	if err = authz.Decide(p, authz.ActionViewContent, authz.Target{CourseInstructorID: crs.InstructorID}).Err(); err != nil {
		return nil, err
	}
	return svc.repo.GetAssignmentSubmissions(ctx, assignmentID)
}

// ListMine lists the acting student's own submissions.
func (svc *Service) ListMine(ctx context.Context, p authz.Principal) ([]Submission, error) {
	if p.Anonymous() {
		return nil, authz.NewError(authz.NotAuthenticated)
	}
	return svc.repo.GetStudentSubmissions(ctx, p.ID)
}

func (svc *Service) CountUngraded(ctx context.Context, courseIDs ...int) (int, error) {
	return svc.repo.CountUngradedSubmissions(ctx, courseIDs...)
}

// helpers

func (svc *Service) checkReadAccess(ctx context.Context, p authz.Principal, sub Submission) error {
	if p.Anonymous() {
		return authz.NewError(authz.NotAuthenticated)
	}
	if p.IsStudent() {
		if p.ID != sub.StudentID {
			return authz.NewError(authz.NotOwner)
		}
		return nil
	}
	asg, err := svc.crsRepo.GetAssignmentByID(ctx, sub.AssignmentID)
	if err != nil {
		return err
	}
	crs, err := svc.crsRepo.GetCourseByID(ctx, asg.CourseID)
	if err != nil {
		return err
	}
	return authz.Decide(p, authz.ActionViewContent, authz.Target{CourseInstructorID: crs.InstructorID}).Err()
}

// sendGradedEmail notifies the student that their submission was graded.
// Delivery is best-effort; the grade is already persisted.
func (svc *Service) sendGradedEmail(ctx context.Context, sub Submission, asg course.Assignment, crs course.Course) {
	usr, err := svc.usrSvc.GetByID(ctx, sub.StudentID)
	if err != nil {
		return
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYour submission for the assignment %q in %q has been graded: %.2f out of %d.",
		usr.Name, asg.Title, crs.Title, *sub.Score, asg.MaxScore,
	)
	if sub.Feedback != "" {
		body += fmt.Sprintf("\n\nFeedback: %s", sub.Feedback)
	}
	body += fmt.Sprintf("\n\n- The %s Team", core.Conf.AppName)

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: fmt.Sprintf("Your submission for %q has been graded", asg.Title),
		Body:    body,
	})
}
