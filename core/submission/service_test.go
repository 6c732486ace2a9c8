package submission_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core/authz"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

func TestMain(m *testing.M) {
	testutil.NewTestConfig()
	os.Exit(m.Run())
}

type fixture struct {
	svc        *submission.Service
	enrSvc     *enrollment.Service
	crsSvc     *course.Service
	instructor user.User
	other      user.User
	student    user.User
	student2   user.User
	admin      user.User
	crs        course.Course
	asg        course.Assignment
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	usrRepo := dummydb.NewUserRepository(db)
	crsRepo := dummydb.NewCourseRepository(db)
	enrRepo := dummydb.NewEnrollmentRepository(db)
	subRepo := dummydb.NewSubmissionRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewService(usrRepo, mailSvc)
	crsSvc := course.NewService(crsRepo, usrSvc, enrRepo)
	enrSvc := enrollment.NewService(enrRepo, crsRepo, usrSvc)
	svc := submission.NewService(subRepo, crsRepo, enrRepo, usrSvc, mailSvc)

	f := &fixture{svc: svc, enrSvc: enrSvc, crsSvc: crsSvc}
	f.instructor = createUser(t, usrRepo, "Jane Teach", "jane@test.test", user.RoleInstructor)
	f.other = createUser(t, usrRepo, "John Teach", "john@test.test", user.RoleInstructor)
	f.student = createUser(t, usrRepo, "Sam Learn", "sam@test.test", user.RoleStudent)
	f.student2 = createUser(t, usrRepo, "Sue Learn", "sue@test.test", user.RoleStudent)
	f.admin = createUser(t, usrRepo, "Ada Admin", "ada@test.test", user.RoleAdmin)

	ctx := context.Background()
	instr := authz.PrincipalFor(f.instructor)
	if f.crs, err = crsSvc.Create(ctx, instr, course.NewCourse{Title: "Go 101"}); err != nil {
		t.Fatalf("Create(course): %v", err)
	}
	published := true
	if f.crs, err = crsSvc.Update(ctx, instr, f.crs.ID, course.UpdateCourse{Published: &published}); err != nil {
		t.Fatalf("Update(publish): %v", err)
	}
	f.asg, err = crsSvc.AddAssignment(ctx, instr, f.crs.ID, course.NewAssignment{
		Title: "HW1", DueDate: time.Now().Add(7 * 24 * time.Hour), MaxScore: 100,
	})
	if err != nil {
		t.Fatalf("AddAssignment(): %v", err)
	}
	if _, err = enrSvc.Enroll(ctx, authz.PrincipalFor(f.student), f.crs.ID); err != nil {
		t.Fatalf("Enroll(): %v", err)
	}
	return f
}

func createUser(t *testing.T, repo user.Repository, name, email string, role user.Role) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name: name, Email: email, Role: role, IsActive: true, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func assertDenied(t *testing.T, err error, reason authz.Reason) {
	t.Helper()
	var authzErr *authz.Error
	if !errors.As(err, &authzErr) {
		t.Fatalf("expected authz error, got %v", err)
	}
	assert.Equal(t, reason, authzErr.Reason)
}

func TestService_Submit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	std := authz.PrincipalFor(f.student)

	t.Run("enrolled student submits once", func(t *testing.T) {
		sub, err := f.svc.Submit(ctx, std, f.asg.ID, submission.NewSubmission{Content: "my answer to HW1"})
		assert.NoError(t, err)
		assert.Equal(t, f.student.ID, sub.StudentID)
		assert.False(t, sub.Graded())

		_, err = f.svc.Submit(ctx, std, f.asg.ID, submission.NewSubmission{Content: "second try, not allowed"})
		assertDenied(t, err, authz.AlreadyExists)
	})

	t.Run("unenrolled student denied", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, authz.PrincipalFor(f.student2), f.asg.ID, submission.NewSubmission{Content: "not enrolled here"})
		assertDenied(t, err, authz.NotEnrolled)
	})

	t.Run("instructor denied", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, authz.PrincipalFor(f.instructor), f.asg.ID, submission.NewSubmission{Content: "teachers do not submit"})
		assertDenied(t, err, authz.WrongRole)
	})

	t.Run("content too short", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, authz.PrincipalFor(f.student2), f.asg.ID, submission.NewSubmission{Content: "short"})
		// enrollment is checked first
		assertDenied(t, err, authz.NotEnrolled)

		if _, err = f.enrSvc.Enroll(ctx, authz.PrincipalFor(f.student2), f.crs.ID); err != nil {
			t.Fatalf("Enroll(): %v", err)
		}
		_, err = f.svc.Submit(ctx, authz.PrincipalFor(f.student2), f.asg.ID, submission.NewSubmission{Content: "short"})
		assert.Error(t, err)
	})

	t.Run("unknown assignment", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, std, 999, submission.NewSubmission{Content: "where does this go"})
		assert.True(t, errors.Is(err, course.ErrAssignmentNotFound))
	})
}

func TestService_Grade(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	std := authz.PrincipalFor(f.student)
	instr := authz.PrincipalFor(f.instructor)

	sub, err := f.svc.Submit(ctx, std, f.asg.ID, submission.NewSubmission{Content: "my answer to HW1"})
	if err != nil {
		t.Fatalf("Submit(): %v", err)
	}

	t.Run("owner grades and student is notified", func(t *testing.T) {
		sentBefore := len(emailsvc.SentMessages)

		graded, err := f.svc.Grade(ctx, instr, sub.ID, submission.GradeInput{Score: 87.5, Feedback: "solid work"})
		assert.NoError(t, err)
		if assert.True(t, graded.Graded()) {
			assert.Equal(t, 87.5, *graded.Score)
			assert.Equal(t, "solid work", graded.Feedback)
			assert.Equal(t, f.instructor.ID, *graded.GradedByID)
		}

		if assert.Equal(t, sentBefore+1, len(emailsvc.SentMessages)) {
			msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
			assert.Equal(t, f.student.Email, msg.To[0].Address)
			assert.True(t, strings.Contains(msg.Subject, "graded"))
		}
	})

	t.Run("re-grade overwrites silently", func(t *testing.T) {
		graded, err := f.svc.Grade(ctx, instr, sub.ID, submission.GradeInput{Score: 90, Feedback: "even better"})
		assert.NoError(t, err)
		assert.Equal(t, float64(90), *graded.Score)
		assert.Equal(t, "even better", graded.Feedback)
	})

	t.Run("score out of range leaves grade untouched", func(t *testing.T) {
		_, err := f.svc.Grade(ctx, instr, sub.ID, submission.GradeInput{Score: 100.5})
		assertDenied(t, err, authz.OutOfRange)

		_, err = f.svc.Grade(ctx, instr, sub.ID, submission.GradeInput{Score: -5})
		assertDenied(t, err, authz.OutOfRange)

		got, err := f.svc.Get(ctx, instr, sub.ID)
		assert.NoError(t, err)
		assert.Equal(t, float64(90), *got.Score)
	})

	t.Run("other instructor denied", func(t *testing.T) {
		_, err := f.svc.Grade(ctx, authz.PrincipalFor(f.other), sub.ID, submission.GradeInput{Score: 50})
		assertDenied(t, err, authz.NotOwner)
	})

	t.Run("admin denied", func(t *testing.T) {
		_, err := f.svc.Grade(ctx, authz.PrincipalFor(f.admin), sub.ID, submission.GradeInput{Score: 50})
		assertDenied(t, err, authz.WrongRole)
	})

	t.Run("zero is a valid score", func(t *testing.T) {
		graded, err := f.svc.Grade(ctx, instr, sub.ID, submission.GradeInput{Score: 0})
		assert.NoError(t, err)
		assert.Equal(t, float64(0), *graded.Score)
	})
}

func TestService_ReadAccess(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	std := authz.PrincipalFor(f.student)

	sub, err := f.svc.Submit(ctx, std, f.asg.ID, submission.NewSubmission{Content: "my answer to HW1"})
	if err != nil {
		t.Fatalf("Submit(): %v", err)
	}

	t.Run("student reads own", func(t *testing.T) {
		got, err := f.svc.Get(ctx, std, sub.ID)
		assert.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
	})

	t.Run("other student denied", func(t *testing.T) {
		_, err := f.svc.Get(ctx, authz.PrincipalFor(f.student2), sub.ID)
		assertDenied(t, err, authz.NotOwner)
	})

	t.Run("other instructor denied", func(t *testing.T) {
		_, err := f.svc.Get(ctx, authz.PrincipalFor(f.other), sub.ID)
		assertDenied(t, err, authz.NotOwner)
	})

	t.Run("owner lists assignment submissions", func(t *testing.T) {
		subs, err := f.svc.ListForAssignment(ctx, authz.PrincipalFor(f.instructor), f.asg.ID)
		assert.NoError(t, err)
		assert.Len(t, subs, 1)
	})

	t.Run("student cannot list assignment submissions", func(t *testing.T) {
		_, err := f.svc.ListForAssignment(ctx, std, f.asg.ID)
		assertDenied(t, err, authz.WrongRole)
	})

	t.Run("student lists own submissions", func(t *testing.T) {
		subs, err := f.svc.ListMine(ctx, std)
		assert.NoError(t, err)
		assert.Len(t, subs, 1)
	})

	t.Run("assignment submissions come newest first", func(t *testing.T) {
		if _, err := f.enrSvc.Enroll(ctx, authz.PrincipalFor(f.student2), f.crs.ID); err != nil {
			t.Fatalf("Enroll(): %v", err)
		}
		later, err := f.svc.Submit(ctx, authz.PrincipalFor(f.student2), f.asg.ID, submission.NewSubmission{Content: "a later answer to HW1"})
		if err != nil {
			t.Fatalf("Submit(): %v", err)
		}

		subs, err := f.svc.ListForAssignment(ctx, authz.PrincipalFor(f.instructor), f.asg.ID)
		assert.NoError(t, err)
		if assert.Len(t, subs, 2) {
			assert.Equal(t, later.ID, subs[0].ID)
			assert.Equal(t, sub.ID, subs[1].ID)
		}
	})
}
