package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/submission"
)

type submissionRepository struct {
	db *sqlx.DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *sqlx.DB) submission.Repository {
	return &submissionRepository{db: db}
}

type submissionRow struct {
	ID           int          `db:"id"`
	AssignmentID int          `db:"assignment_id"`
	StudentID    int          `db:"student_id"`
	Content      string       `db:"content"`
	Attachment   string       `db:"attachment"`
	SubmittedAt  time.Time    `db:"submitted_at"`
	Score        null.Float64 `db:"score"`
	Feedback     string       `db:"feedback"`
	GradedByID   null.Int     `db:"graded_by_id"`
	GradedAt     null.Time    `db:"graded_at"`
}

func (r submissionRow) toSubmission() submission.Submission {
	sub := submission.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		Content:      r.Content,
		Attachment:   r.Attachment,
		SubmittedAt:  r.SubmittedAt,
		Feedback:     r.Feedback,
	}
	if r.Score.Valid {
		sub.Score = &r.Score.Float64
	}
	if r.GradedByID.Valid {
		sub.GradedByID = &r.GradedByID.Int
	}
	if r.GradedAt.Valid {
		sub.GradedAt = &r.GradedAt.Time
	}
	return sub
}

const selectSubmission = `SELECT id, assignment_id, student_id, content, attachment, submitted_at, score, feedback, graded_by_id, graded_at FROM submission`

func (repo *submissionRepository) CreateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	query := `INSERT INTO submission (assignment_id, student_id, content, attachment, submitted_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := repo.db.GetContext(ctx, &s.ID, query, s.AssignmentID, s.StudentID, s.Content, s.Attachment, s.SubmittedAt); err != nil {
		if isUniqueViolation(err, "submission_assignment_student_idx") {
			return submission.Submission{}, submission.ErrAlreadySubmitted
		}
		return submission.Submission{}, errors.Wrap(err, "creating submission")
	}
	return s, nil
}

func (repo *submissionRepository) GetSubmissionByID(ctx context.Context, id int) (submission.Submission, error) {
	var row submissionRow
	if err := repo.db.GetContext(ctx, &row, selectSubmission+` WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return submission.Submission{}, submission.ErrNotFound
		}
		return submission.Submission{}, errors.Wrap(err, "getting submission")
	}
	return row.toSubmission(), nil
}

func (repo *submissionRepository) HasSubmission(ctx context.Context, studentID, assignmentID int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM submission WHERE student_id = $1 AND assignment_id = $2)`
	if err := repo.db.GetContext(ctx, &exists, query, studentID, assignmentID); err != nil {
		return false, errors.Wrap(err, "checking submission")
	}
	return exists, nil
}

func (repo *submissionRepository) GetAssignmentSubmissions(ctx context.Context, assignmentID int) ([]submission.Submission, error) {
	var rows []submissionRow
	query := selectSubmission + ` WHERE assignment_id = $1 ORDER BY submitted_at DESC, id DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, assignmentID); err != nil {
		return nil, errors.Wrap(err, "getting assignment submissions")
	}
	return toSubmissions(rows), nil
}

func (repo *submissionRepository) GetStudentSubmissions(ctx context.Context, studentID int) ([]submission.Submission, error) {
	var rows []submissionRow
	query := selectSubmission + ` WHERE student_id = $1 ORDER BY id ASC`
	if err := repo.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, errors.Wrap(err, "getting student submissions")
	}
	return toSubmissions(rows), nil
}

func (repo *submissionRepository) SetGrade(ctx context.Context, id int, score float64, feedback string, gradedByID int, gradedAt time.Time) (submission.Submission, error) {
	query := `UPDATE submission SET score = $1, feedback = $2, graded_by_id = $3, graded_at = $4 WHERE id = $5
RETURNING id, assignment_id, student_id, content, attachment, submitted_at, score, feedback, graded_by_id, graded_at`

	var row submissionRow
	if err := repo.db.GetContext(ctx, &row, query, score, feedback, gradedByID, gradedAt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return submission.Submission{}, submission.ErrNotFound
		}
		return submission.Submission{}, errors.Wrap(err, "grading submission")
	}
	return row.toSubmission(), nil
}

func (repo *submissionRepository) CountUngradedSubmissions(ctx context.Context, courseIDs ...int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM submission s JOIN assignment a ON a.id = s.assignment_id
WHERE s.score IS NULL AND a.course_id = ANY($1)`
	if err := repo.db.GetContext(ctx, &count, query, pq.Array(courseIDs)); err != nil {
		return 0, errors.Wrap(err, "counting ungraded submissions")
	}
	return count, nil
}

func toSubmissions(rows []submissionRow) []submission.Submission {
	submissions := make([]submission.Submission, 0, len(rows))
	for _, row := range rows {
		submissions = append(submissions, row.toSubmission())
	}
	return submissions
}
