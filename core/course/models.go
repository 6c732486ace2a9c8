package course

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core"
)

type Course struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	InstructorID int       `json:"instructor_id"`
	Published    bool      `json:"published"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// LessonType discriminates lesson bodies: text lessons carry Content,
// video lessons carry VideoURL.
type LessonType string

const (
	LessonText  LessonType = "text"
	LessonVideo LessonType = "video"
)

func (t LessonType) Valid() bool { return t == LessonText || t == LessonVideo }

type Lesson struct {
	ID        int        `json:"id"`
	CourseID  int        `json:"course_id"`
	Title     string     `json:"title"`
	Type      LessonType `json:"type"`
	Content   string     `json:"content,omitempty"`
	VideoURL  string     `json:"video_url,omitempty"`
	Order     int        `json:"order"`
	CreatedAt time.Time  `json:"created_at"` // UTC
	UpdatedAt time.Time  `json:"updated_at"` // UTC
}

type Assignment struct {
	ID          int       `json:"id"`
	CourseID    int       `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date,omitempty"` // zero when the assignment has no due date
	MaxScore    int       `json:"max_score"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
// InstructorID is only consulted when an admin creates on behalf of an
// instructor; instructors always own the courses they create.
type NewCourse struct {
	Title        string `json:"title" validate:"required,max=255"`
	Description  string `json:"description"`
	Thumbnail    string `json:"thumbnail" validate:"omitempty,url,max=512"`
	InstructorID int    `json:"instructor_id"`
}

func (nc *NewCourse) Validate(ctx context.Context) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Thumbnail = core.CleanString(nc.Thumbnail)
	return core.Validate.StructCtx(ctx, nc)
}

// UpdateCourse defines what information may be provided to modify an existing
// Course. Publishing and unpublishing go through the Published flag.
type UpdateCourse struct {
	Title       string `json:"title" validate:"omitempty,max=255"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail" validate:"omitempty,url,max=512"`
	Published   *bool  `json:"published"`
}

func (uc *UpdateCourse) Validate(ctx context.Context, orig Course) error {
	title := core.CleanString(uc.Title)
	if title == "" {
		title = orig.Title
	}
	uc.Title = title

	desc := core.CleanString(uc.Description)
	if desc == "" {
		desc = orig.Description
	}
	uc.Description = desc

	uc.Thumbnail = core.CleanString(uc.Thumbnail)
	if err := core.Validate.StructCtx(ctx, uc); err != nil {
		return err
	}
	if uc.Thumbnail == "" {
		uc.Thumbnail = orig.Thumbnail
	}
	return nil
}

// NewLesson contains information needed to create a new Lesson.
// Order is optional; when omitted the lesson is appended after the course's
// current last lesson.
type NewLesson struct {
	Title    string     `json:"title" validate:"required,max=255"`
	Type     LessonType `json:"type" validate:"required,lessontype"`
	Content  string     `json:"content"`
	VideoURL string     `json:"video_url" validate:"omitempty,url"`
	Order    int        `json:"order" validate:"omitempty,min=1"`
}

func (nl *NewLesson) Validate(ctx context.Context) error {
	nl.Title = core.CleanString(nl.Title)
	nl.VideoURL = core.CleanString(nl.VideoURL)
	return core.Validate.StructCtx(ctx, nl)
}

type UpdateLesson struct {
	Title    string     `json:"title" validate:"omitempty,max=255"`
	Type     LessonType `json:"type" validate:"omitempty,lessontype"`
	Content  string     `json:"content"`
	VideoURL string     `json:"video_url" validate:"omitempty,url"`
	Order    int        `json:"order" validate:"omitempty,min=1"`
}

func (ul *UpdateLesson) Validate(ctx context.Context, orig Lesson) error {
	title := core.CleanString(ul.Title)
	if title == "" {
		title = orig.Title
	}
	ul.Title = title

	if ul.Type == "" {
		ul.Type = orig.Type
	}
	if ul.Content == "" {
		ul.Content = orig.Content
	}
	ul.VideoURL = core.CleanString(ul.VideoURL)
	if ul.VideoURL == "" {
		ul.VideoURL = orig.VideoURL
	}
	if ul.Order == 0 {
		ul.Order = orig.Order
	}

	return core.Validate.StructCtx(ctx, ul)
}

// NewAssignment contains information needed to create a new Assignment.
// DueDate is optional; when set it must lie in the future.
type NewAssignment struct {
	Title       string    `json:"title" validate:"required,max=255"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"omitempty,future"`
	MaxScore    int       `json:"max_score" validate:"required,gte=1,lte=1000"`
}

func (na *NewAssignment) Validate(ctx context.Context) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return core.Validate.StructCtx(ctx, na)
}

type UpdateAssignment struct {
	Title       string    `json:"title" validate:"omitempty,max=255"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"omitempty,future"`
	MaxScore    int       `json:"max_score" validate:"omitempty,gte=1,lte=1000"`
}

func (ua *UpdateAssignment) Validate(ctx context.Context, orig Assignment) error {
	ua.Title = core.CleanString(ua.Title)
	ua.Description = core.CleanString(ua.Description)

	// validate before backfilling: an untouched due date that has since
	// passed must not trip the future check.
	if err := core.Validate.StructCtx(ctx, ua); err != nil {
		return err
	}

	if ua.Title == "" {
		ua.Title = orig.Title
	}
	if ua.Description == "" {
		ua.Description = orig.Description
	}
	if ua.DueDate.IsZero() {
		ua.DueDate = orig.DueDate
	}
	if ua.MaxScore == 0 {
		ua.MaxScore = orig.MaxScore
	}
	return nil
}

type QueryFilter struct {
	Search       string `query:"search"`
	InstructorID int    `query:"instructor_id"`
	Published    *bool  `query:"published"`
	Limit        int    `query:"limit"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.InstructorID == 0 && qf.Published == nil && qf.Limit == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
