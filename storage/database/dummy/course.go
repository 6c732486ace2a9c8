package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) query() []course.Course {
	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses
}

// orderedLessons returns the course's lessons in (Order, ID) ascending order.
func (repo *courseRepository) orderedLessons(courseID int) []course.Lesson {
	var lessons []course.Lesson
	for _, l := range repo.db.lessons {
		if l.CourseID == courseID {
			lessons = append(lessons, *l)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].Order != lessons[j].Order {
			return lessons[i].Order < lessons[j].Order
		}
		return lessons[i].ID < lessons[j].ID
	})
	return lessons
}

// Courses

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = repo.db.nextID("course")
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrCourseNotFound
}

func (repo *courseRepository) FilterCourses(ctx context.Context, filter course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.filter(filter), nil
}

func (repo *courseRepository) filter(filter course.QueryFilter) []course.Course {
	courses := repo.query()

	if filter.Search != "" {
		var filtered []course.Course
		search := strings.ToLower(filter.Search)
		for _, c := range courses {
			if strings.Contains(strings.ToLower(c.Title), search) ||
				strings.Contains(strings.ToLower(c.Description), search) {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.InstructorID != 0 {
		var filtered []course.Course
		for _, c := range courses {
			if c.InstructorID == filter.InstructorID {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.Published != nil {
		var filtered []course.Course
		for _, c := range courses {
			if c.Published == *filter.Published {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if filter.Limit > 0 && len(courses) > filter.Limit {
		courses = courses[:filter.Limit]
	}
	return courses
}

func (repo *courseRepository) CountCourses(ctx context.Context, filter course.QueryFilter) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.filter(filter)), nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course, published *bool) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	orig, ok := repo.db.courses[c.ID]
	if !ok {
		return course.Course{}, course.ErrCourseNotFound
	}
	if c.Title != "" {
		orig.Title = c.Title
	}
	if c.Description != "" {
		orig.Description = c.Description
	}
	if c.Thumbnail != "" {
		orig.Thumbnail = c.Thumbnail
	}
	if published != nil {
		orig.Published = *published
	}
	orig.UpdatedAt = c.UpdatedAt
	return *orig, nil
}

func (repo *courseRepository) SetCourseInstructor(ctx context.Context, id, instructorID int) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.courses[id]
	if !ok {
		return course.Course{}, course.ErrCourseNotFound
	}
	c.InstructorID = instructorID
	return *c, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		repo.db.deleteCourseTree(id)
	}
	return nil
}

// Lessons

func (repo *courseRepository) CreateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	l.ID = repo.db.nextID("lesson")
	repo.db.lessons[l.ID] = &l
	return l, nil
}

func (repo *courseRepository) GetLessonByID(ctx context.Context, id int) (course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if l, ok := repo.db.lessons[id]; ok {
		return *l, nil
	}
	return course.Lesson{}, course.ErrLessonNotFound
}

func (repo *courseRepository) GetCourseLessons(ctx context.Context, courseID int) ([]course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.orderedLessons(courseID), nil
}

func (repo *courseRepository) CountCourseLessons(ctx context.Context, courseID int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, l := range repo.db.lessons {
		if l.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

func (repo *courseRepository) NextLessonOrder(ctx context.Context, courseID int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	max := 0
	for _, l := range repo.db.lessons {
		if l.CourseID == courseID && l.Order > max {
			max = l.Order
		}
	}
	return max + 1, nil
}

func (repo *courseRepository) AdjacentLessons(ctx context.Context, lsn course.Lesson) (prev, next *course.Lesson, err error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := repo.orderedLessons(lsn.CourseID)
	for i, l := range lessons {
		if l.ID == lsn.ID {
			if i > 0 {
				p := lessons[i-1]
				prev = &p
			}
			if i < len(lessons)-1 {
				n := lessons[i+1]
				next = &n
			}
			return prev, next, nil
		}
	}
	return nil, nil, course.ErrLessonNotFound
}

func (repo *courseRepository) UpdateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.lessons[l.ID]
	if !ok {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	l.CourseID = orig.CourseID
	l.CreatedAt = orig.CreatedAt
	repo.db.lessons[l.ID] = &l
	return l, nil
}

func (repo *courseRepository) DeleteLessonsByID(ctx context.Context, ids ...int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		repo.db.deleteLessonProgress(id)
		delete(repo.db.lessons, id)
	}
	return nil
}

// Assignments

func (repo *courseRepository) CreateAssignment(ctx context.Context, a course.Assignment) (course.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = repo.db.nextID("assignment")
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *courseRepository) GetAssignmentByID(ctx context.Context, id int) (course.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return course.Assignment{}, course.ErrAssignmentNotFound
}

func (repo *courseRepository) GetCourseAssignments(ctx context.Context, courseID int) ([]course.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var assignments []course.Assignment
	for _, a := range repo.db.assignments {
		if a.CourseID == courseID {
			assignments = append(assignments, *a)
		}
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].ID < assignments[j].ID })
	return assignments, nil
}

func (repo *courseRepository) UpdateAssignment(ctx context.Context, a course.Assignment) (course.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.assignments[a.ID]
	if !ok {
		return course.Assignment{}, course.ErrAssignmentNotFound
	}
	a.CourseID = orig.CourseID
	a.CreatedAt = orig.CreatedAt
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *courseRepository) DeleteAssignmentsByID(ctx context.Context, ids ...int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		repo.db.deleteAssignmentSubmissions(id)
		delete(repo.db.assignments, id)
	}
	return nil
}
