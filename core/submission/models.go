package submission

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core"
)

// Submission is a student's answer to an assignment. A student submits at
// most once per assignment; grading fields stay nil until an instructor
// grades it, and a re-grade overwrites them.
type Submission struct {
	ID           int        `json:"id"`
	AssignmentID int        `json:"assignment_id"`
	StudentID    int        `json:"student_id"`
	Content      string     `json:"content"`
	Attachment   string     `json:"attachment,omitempty"`
	SubmittedAt  time.Time  `json:"submitted_at"` // UTC
	Score        *float64   `json:"score,omitempty"`
	Feedback     string     `json:"feedback,omitempty"`
	GradedByID   *int       `json:"graded_by_id,omitempty"`
	GradedAt     *time.Time `json:"graded_at,omitempty"` // UTC
}

func (s *Submission) Graded() bool { return s.Score != nil }

// NewSubmission contains information needed to create a new Submission.
// Attachment is an optional link to supporting material.
type NewSubmission struct {
	Content    string `json:"content" validate:"required,min=10"`
	Attachment string `json:"attachment" validate:"omitempty,url,max=512"`
}

func (ns *NewSubmission) Validate(ctx context.Context) error {
	ns.Content = core.CleanString(ns.Content)
	ns.Attachment = core.CleanString(ns.Attachment)
	return core.Validate.StructCtx(ctx, ns)
}

// GradeInput carries an instructor's grade for a submission. The score range
// is checked by the service against the assignment's MaxScore.
type GradeInput struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

func (gi *GradeInput) Validate(ctx context.Context) error {
	gi.Feedback = core.CleanString(gi.Feedback)
	return core.Validate.StructCtx(ctx, gi)
}
