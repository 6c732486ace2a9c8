package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID           int       `db:"id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	Thumbnail    string    `db:"thumbnail"`
	InstructorID int       `db:"instructor_id"`
	Published    bool      `db:"published"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course(r)
}

type lessonRow struct {
	ID        int       `db:"id"`
	CourseID  int       `db:"course_id"`
	Title     string    `db:"title"`
	Type      string    `db:"type"`
	Content   string    `db:"content"`
	VideoURL  string    `db:"video_url"`
	Order     int       `db:"order"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r lessonRow) toLesson() course.Lesson {
	return course.Lesson{
		ID:        r.ID,
		CourseID:  r.CourseID,
		Title:     r.Title,
		Type:      course.LessonType(r.Type),
		Content:   r.Content,
		VideoURL:  r.VideoURL,
		Order:     r.Order,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type assignmentRow struct {
	ID          int       `db:"id"`
	CourseID    int       `db:"course_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	DueDate     null.Time `db:"due_date"`
	MaxScore    int       `db:"max_score"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r assignmentRow) toAssignment() course.Assignment {
	return course.Assignment{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate.Time,
		MaxScore:    r.MaxScore,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const (
	selectCourse     = `SELECT id, title, description, thumbnail, instructor_id, published, created_at, updated_at FROM course`
	selectLesson     = `SELECT id, course_id, title, type, content, video_url, "order", created_at, updated_at FROM lesson`
	selectAssignment = `SELECT id, course_id, title, description, due_date, max_score, created_at, updated_at FROM assignment`
)

// Courses

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	query := `INSERT INTO course (title, description, thumbnail, instructor_id, published, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := repo.db.GetContext(
		ctx, &c.ID, query,
		c.Title, c.Description, c.Thumbnail, c.InstructorID, c.Published, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return c, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, selectCourse+` WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return course.Course{}, course.ErrCourseNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return row.toCourse(), nil
}

func courseConds(filter course.QueryFilter, args *[]interface{}) []string {
	var conds []string
	arg := func(v interface{}) string {
		*args = append(*args, v)
		return fmt.Sprintf("$%d", len(*args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}
	if filter.InstructorID != 0 {
		conds = append(conds, "instructor_id = "+arg(filter.InstructorID))
	}
	if filter.Published != nil {
		conds = append(conds, "published = "+arg(*filter.Published))
	}
	return conds
}

func (repo *courseRepository) FilterCourses(ctx context.Context, filter course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	var args []interface{}
	conds := courseConds(filter, &args)

	query := selectCourse
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + orderBy(ordering, "id ASC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) CountCourses(ctx context.Context, filter course.QueryFilter) (int, error) {
	var args []interface{}
	conds := courseConds(filter, &args)

	query := `SELECT COUNT(*) FROM course`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting courses")
	}
	return count, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course, published *bool) (course.Course, error) {
	// only save set fields
	var (
		sets []string
		args []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if c.Title != "" {
		sets = append(sets, "title = "+arg(c.Title))
	}
	if c.Description != "" {
		sets = append(sets, "description = "+arg(c.Description))
	}
	if c.Thumbnail != "" {
		sets = append(sets, "thumbnail = "+arg(c.Thumbnail))
	}
	if published != nil {
		sets = append(sets, "published = "+arg(*published))
	}
	sets = append(sets, "updated_at = "+arg(c.UpdatedAt))

	query := fmt.Sprintf(`UPDATE course SET %s WHERE id = %s
RETURNING id, title, description, thumbnail, instructor_id, published, created_at, updated_at`,
		strings.Join(sets, ", "), arg(c.ID))

	var row courseRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return course.Course{}, course.ErrCourseNotFound
		}
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) SetCourseInstructor(ctx context.Context, id, instructorID int) (course.Course, error) {
	query := `UPDATE course SET instructor_id = $1, updated_at = $2 WHERE id = $3
RETURNING id, title, description, thumbnail, instructor_id, published, created_at, updated_at`

	var row courseRow
	if err := repo.db.GetContext(ctx, &row, query, instructorID, time.Now().UTC(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return course.Course{}, course.ErrCourseNotFound
		}
		return course.Course{}, errors.Wrap(err, "setting course instructor")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...int) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	queries := []string{
		`DELETE FROM progress WHERE lesson_id IN (SELECT id FROM lesson WHERE course_id = ANY($1))`,
		`DELETE FROM submission WHERE assignment_id IN (SELECT id FROM assignment WHERE course_id = ANY($1))`,
		`DELETE FROM lesson WHERE course_id = ANY($1)`,
		`DELETE FROM assignment WHERE course_id = ANY($1)`,
		`DELETE FROM enrollment WHERE course_id = ANY($1)`,
		`DELETE FROM course WHERE id = ANY($1)`,
	}
	for _, query := range queries {
		if _, err = tx.ExecContext(ctx, query, pq.Array(ids)); err != nil {
			return errors.Wrap(err, "deleting courses")
		}
	}
	return errors.Wrap(tx.Commit(), "committing tx")
}

// Lessons

func (repo *courseRepository) CreateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	query := `INSERT INTO lesson (course_id, title, type, content, video_url, "order", created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := repo.db.GetContext(
		ctx, &l.ID, query,
		l.CourseID, l.Title, l.Type, l.Content, l.VideoURL, l.Order, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "creating lesson")
	}
	return l, nil
}

func (repo *courseRepository) GetLessonByID(ctx context.Context, id int) (course.Lesson, error) {
	var row lessonRow
	if err := repo.db.GetContext(ctx, &row, selectLesson+` WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return course.Lesson{}, course.ErrLessonNotFound
		}
		return course.Lesson{}, errors.Wrap(err, "getting lesson")
	}
	return row.toLesson(), nil
}

func (repo *courseRepository) GetCourseLessons(ctx context.Context, courseID int) ([]course.Lesson, error) {
	var rows []lessonRow
	query := selectLesson + ` WHERE course_id = $1 ORDER BY "order" ASC, id ASC`
	if err := repo.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, errors.Wrap(err, "getting course lessons")
	}
	lessons := make([]course.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, row.toLesson())
	}
	return lessons, nil
}

func (repo *courseRepository) CountCourseLessons(ctx context.Context, courseID int) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM lesson WHERE course_id = $1`, courseID); err != nil {
		return 0, errors.Wrap(err, "counting lessons")
	}
	return count, nil
}

func (repo *courseRepository) NextLessonOrder(ctx context.Context, courseID int) (int, error) {
	var max int
	query := `SELECT COALESCE(MAX("order"), 0) FROM lesson WHERE course_id = $1`
	if err := repo.db.GetContext(ctx, &max, query, courseID); err != nil {
		return 0, errors.Wrap(err, "getting next lesson order")
	}
	return max + 1, nil
}

func (repo *courseRepository) AdjacentLessons(ctx context.Context, l course.Lesson) (prev, next *course.Lesson, err error) {
	prevQuery := selectLesson + ` WHERE course_id = $1 AND ("order", id) < ($2, $3) ORDER BY "order" DESC, id DESC LIMIT 1`
	nextQuery := selectLesson + ` WHERE course_id = $1 AND ("order", id) > ($2, $3) ORDER BY "order" ASC, id ASC LIMIT 1`

	var row lessonRow
	if err = repo.db.GetContext(ctx, &row, prevQuery, l.CourseID, l.Order, l.ID); err == nil {
		p := row.toLesson()
		prev = &p
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, errors.Wrap(err, "getting previous lesson")
	}

	if err = repo.db.GetContext(ctx, &row, nextQuery, l.CourseID, l.Order, l.ID); err == nil {
		n := row.toLesson()
		next = &n
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, errors.Wrap(err, "getting next lesson")
	}

	return prev, next, nil
}

func (repo *courseRepository) UpdateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	query := `UPDATE lesson SET title = $1, type = $2, content = $3, video_url = $4, "order" = $5, updated_at = $6
WHERE id = $7 RETURNING id, course_id, title, type, content, video_url, "order", created_at, updated_at`

	var row lessonRow
	err := repo.db.GetContext(ctx, &row, query, l.Title, l.Type, l.Content, l.VideoURL, l.Order, l.UpdatedAt, l.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return course.Lesson{}, course.ErrLessonNotFound
		}
		return course.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	return row.toLesson(), nil
}

func (repo *courseRepository) DeleteLessonsByID(ctx context.Context, ids ...int) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	queries := []string{
		`DELETE FROM progress WHERE lesson_id = ANY($1)`,
		`DELETE FROM lesson WHERE id = ANY($1)`,
	}
	for _, query := range queries {
		if _, err = tx.ExecContext(ctx, query, pq.Array(ids)); err != nil {
			return errors.Wrap(err, "deleting lessons")
		}
	}
	return errors.Wrap(tx.Commit(), "committing tx")
}

// Assignments

func (repo *courseRepository) CreateAssignment(ctx context.Context, a course.Assignment) (course.Assignment, error) {
	query := `INSERT INTO assignment (course_id, title, description, due_date, max_score, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := repo.db.GetContext(
		ctx, &a.ID, query,
		a.CourseID, a.Title, a.Description, null.NewTime(a.DueDate, !a.DueDate.IsZero()), a.MaxScore, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return course.Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return a, nil
}

func (repo *courseRepository) GetAssignmentByID(ctx context.Context, id int) (course.Assignment, error) {
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, selectAssignment+` WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return course.Assignment{}, course.ErrAssignmentNotFound
		}
		return course.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return row.toAssignment(), nil
}

func (repo *courseRepository) GetCourseAssignments(ctx context.Context, courseID int) ([]course.Assignment, error) {
	var rows []assignmentRow
	query := selectAssignment + ` WHERE course_id = $1 ORDER BY id ASC`
	if err := repo.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, errors.Wrap(err, "getting course assignments")
	}
	assignments := make([]course.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.toAssignment())
	}
	return assignments, nil
}

func (repo *courseRepository) UpdateAssignment(ctx context.Context, a course.Assignment) (course.Assignment, error) {
	query := `UPDATE assignment SET title = $1, description = $2, due_date = $3, max_score = $4, updated_at = $5
WHERE id = $6 RETURNING id, course_id, title, description, due_date, max_score, created_at, updated_at`

	var row assignmentRow
	err := repo.db.GetContext(
		ctx, &row, query,
		a.Title, a.Description, null.NewTime(a.DueDate, !a.DueDate.IsZero()), a.MaxScore, a.UpdatedAt, a.ID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return course.Assignment{}, course.ErrAssignmentNotFound
		}
		return course.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	return row.toAssignment(), nil
}

func (repo *courseRepository) DeleteAssignmentsByID(ctx context.Context, ids ...int) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	queries := []string{
		`DELETE FROM submission WHERE assignment_id = ANY($1)`,
		`DELETE FROM assignment WHERE id = ANY($1)`,
	}
	for _, query := range queries {
		if _, err = tx.ExecContext(ctx, query, pq.Array(ids)); err != nil {
			return errors.Wrap(err, "deleting assignments")
		}
	}
	return errors.Wrap(tx.Commit(), "committing tx")
}
