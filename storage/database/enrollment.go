package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/enrollment"
)

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

type enrollmentRow struct {
	ID         int       `db:"id"`
	StudentID  int       `db:"student_id"`
	CourseID   int       `db:"course_id"`
	EnrolledAt time.Time `db:"enrolled_at"`
}

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment(r)
}

type progressRow struct {
	ID          int       `db:"id"`
	StudentID   int       `db:"student_id"`
	LessonID    int       `db:"lesson_id"`
	Completed   bool      `db:"is_completed"`
	CompletedAt time.Time `db:"completed_at"`
}

func (r progressRow) toProgress() enrollment.Progress {
	return enrollment.Progress(r)
}

const selectEnrollment = `SELECT id, student_id, course_id, enrolled_at FROM enrollment`

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	query := `INSERT INTO enrollment (student_id, course_id, enrolled_at) VALUES ($1, $2, $3) RETURNING id`
	if err := repo.db.GetContext(ctx, &e.ID, query, e.StudentID, e.CourseID, e.EnrolledAt); err != nil {
		if isUniqueViolation(err, "enrollment_student_course_idx") {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return e, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, studentID, courseID int) (enrollment.Enrollment, error) {
	var row enrollmentRow
	query := selectEnrollment + ` WHERE student_id = $1 AND course_id = $2`
	if err := repo.db.GetContext(ctx, &row, query, studentID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM enrollment WHERE student_id = $1 AND course_id = $2)`
	if err := repo.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return exists, nil
}

func (repo *enrollmentRepository) GetCourseEnrollments(ctx context.Context, courseID int) ([]enrollment.Enrollment, error) {
	var rows []enrollmentRow
	query := selectEnrollment + ` WHERE course_id = $1 ORDER BY id ASC`
	if err := repo.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, errors.Wrap(err, "getting course enrollments")
	}
	return toEnrollments(rows), nil
}

func (repo *enrollmentRepository) GetStudentEnrollments(ctx context.Context, studentID int) ([]enrollment.Enrollment, error) {
	var rows []enrollmentRow
	query := selectEnrollment + ` WHERE student_id = $1 ORDER BY id ASC`
	if err := repo.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, errors.Wrap(err, "getting student enrollments")
	}
	return toEnrollments(rows), nil
}

func (repo *enrollmentRepository) CountEnrollments(ctx context.Context, courseIDs ...int) (int, error) {
	var count int
	if len(courseIDs) == 0 {
		if err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollment`); err != nil {
			return 0, errors.Wrap(err, "counting enrollments")
		}
		return count, nil
	}
	query := `SELECT COUNT(*) FROM enrollment WHERE course_id = ANY($1)`
	if err := repo.db.GetContext(ctx, &count, query, pq.Array(courseIDs)); err != nil {
		return 0, errors.Wrap(err, "counting enrollments")
	}
	return count, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, studentID, courseID int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM enrollment WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enrollment.ErrNotFound
	}
	return nil
}

func (repo *enrollmentRepository) UpsertProgress(ctx context.Context, pr enrollment.Progress) (enrollment.Progress, error) {
	query := `INSERT INTO progress (student_id, lesson_id, is_completed, completed_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (student_id, lesson_id) DO UPDATE SET is_completed = EXCLUDED.is_completed, completed_at = EXCLUDED.completed_at
RETURNING id, student_id, lesson_id, is_completed, completed_at`

	var row progressRow
	if err := repo.db.GetContext(ctx, &row, query, pr.StudentID, pr.LessonID, pr.Completed, pr.CompletedAt); err != nil {
		return enrollment.Progress{}, errors.Wrap(err, "upserting progress")
	}
	return row.toProgress(), nil
}

func (repo *enrollmentRepository) CountCompletedLessons(ctx context.Context, studentID, courseID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM progress p JOIN lesson l ON l.id = p.lesson_id
WHERE p.student_id = $1 AND l.course_id = $2 AND p.is_completed`
	if err := repo.db.GetContext(ctx, &count, query, studentID, courseID); err != nil {
		return 0, errors.Wrap(err, "counting completed lessons")
	}
	return count, nil
}

func toEnrollments(rows []enrollmentRow) []enrollment.Enrollment {
	enrollments := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.toEnrollment())
	}
	return enrollments
}
