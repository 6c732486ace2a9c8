package enrollment

import "time"

// Enrollment ties a student to a course. A student holds at most one
// enrollment per course.
type Enrollment struct {
	ID         int       `json:"id"`
	StudentID  int       `json:"student_id"`
	CourseID   int       `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
}

// Progress records that a student completed a lesson. At most one row per
// (student, lesson); re-viewing refreshes CompletedAt. Rows outlive the
// enrollment so progress survives an unenroll/re-enroll cycle.
type Progress struct {
	ID          int       `json:"id"`
	StudentID   int       `json:"student_id"`
	LessonID    int       `json:"lesson_id"`
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completed_at"` // UTC
}

// ProgressSummary is a student's completion state for one course.
type ProgressSummary struct {
	CompletedLessons int `json:"completed_lessons"`
	TotalLessons     int `json:"total_lessons"`
	// Percent is round(100 * completed / total), 0 for a course with no
	// lessons.
	Percent int `json:"percent"`
}
