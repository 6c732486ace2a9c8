// Package dummydb is an in-memory database used by tests. It mirrors the
// uniqueness and cascade semantics of the real database so service tests
// exercise the same error paths.
package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
)

type DB struct {
	sync.RWMutex

	users       map[int]*user.User
	courses     map[int]*course.Course
	lessons     map[int]*course.Lesson
	assignments map[int]*course.Assignment
	enrollments map[int]*enrollment.Enrollment
	progress    map[int]*enrollment.Progress
	submissions map[int]*submission.Submission

	seq map[string]int
}

func Open() (*DB, error) {
	db := &DB{
		users:       make(map[int]*user.User),
		courses:     make(map[int]*course.Course),
		lessons:     make(map[int]*course.Lesson),
		assignments: make(map[int]*course.Assignment),
		enrollments: make(map[int]*enrollment.Enrollment),
		progress:    make(map[int]*enrollment.Progress),
		submissions: make(map[int]*submission.Submission),
		seq:         make(map[string]int),
	}
	return db, nil
}

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) int {
	db.seq[table]++
	return db.seq[table]
}

// cascade helpers; must be called with the write lock held.

func (db *DB) deleteCourseTree(courseID int) {
	for id, l := range db.lessons {
		if l.CourseID == courseID {
			db.deleteLessonProgress(id)
			delete(db.lessons, id)
		}
	}
	for id, a := range db.assignments {
		if a.CourseID == courseID {
			db.deleteAssignmentSubmissions(id)
			delete(db.assignments, id)
		}
	}
	for id, e := range db.enrollments {
		if e.CourseID == courseID {
			delete(db.enrollments, id)
		}
	}
	delete(db.courses, courseID)
}

func (db *DB) deleteLessonProgress(lessonID int) {
	for id, pr := range db.progress {
		if pr.LessonID == lessonID {
			delete(db.progress, id)
		}
	}
}

func (db *DB) deleteAssignmentSubmissions(assignmentID int) {
	for id, s := range db.submissions {
		if s.AssignmentID == assignmentID {
			delete(db.submissions, id)
		}
	}
}

func (db *DB) deleteUserTree(userID int) {
	for id, c := range db.courses {
		if c.InstructorID == userID {
			db.deleteCourseTree(id)
		}
	}
	for id, e := range db.enrollments {
		if e.StudentID == userID {
			delete(db.enrollments, id)
		}
	}
	for id, s := range db.submissions {
		if s.StudentID == userID {
			delete(db.submissions, id)
		}
	}
	for id, pr := range db.progress {
		if pr.StudentID == userID {
			delete(db.progress, id)
		}
	}
	delete(db.users, userID)
}
