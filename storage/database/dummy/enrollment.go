package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.enrollments {
		if existing.StudentID == e.StudentID && existing.CourseID == e.CourseID {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
	}
	e.ID = repo.db.nextID("enrollment")
	repo.db.enrollments[e.ID] = &e
	return e, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, studentID, courseID int) (enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return *e, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error) {
	_, err := repo.GetEnrollment(ctx, studentID, courseID)
	if err == enrollment.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (repo *enrollmentRepository) GetCourseEnrollments(ctx context.Context, courseID int) ([]enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var enrollments []enrollment.Enrollment
	for _, e := range repo.db.enrollments {
		if e.CourseID == courseID {
			enrollments = append(enrollments, *e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].ID < enrollments[j].ID })
	return enrollments, nil
}

func (repo *enrollmentRepository) GetStudentEnrollments(ctx context.Context, studentID int) ([]enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var enrollments []enrollment.Enrollment
	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID {
			enrollments = append(enrollments, *e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].ID < enrollments[j].ID })
	return enrollments, nil
}

func (repo *enrollmentRepository) CountEnrollments(ctx context.Context, courseIDs ...int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if len(courseIDs) == 0 {
		return len(repo.db.enrollments), nil
	}
	ids := make(map[int]bool, len(courseIDs))
	for _, id := range courseIDs {
		ids[id] = true
	}
	var count int
	for _, e := range repo.db.enrollments {
		if ids[e.CourseID] {
			count++
		}
	}
	return count, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, studentID, courseID int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, e := range repo.db.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			delete(repo.db.enrollments, id)
			return nil
		}
	}
	return enrollment.ErrNotFound
}

func (repo *enrollmentRepository) UpsertProgress(ctx context.Context, pr enrollment.Progress) (enrollment.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.progress {
		if existing.StudentID == pr.StudentID && existing.LessonID == pr.LessonID {
			existing.Completed = pr.Completed
			existing.CompletedAt = pr.CompletedAt
			return *existing, nil
		}
	}
	pr.ID = repo.db.nextID("progress")
	repo.db.progress[pr.ID] = &pr
	return pr, nil
}

func (repo *enrollmentRepository) CountCompletedLessons(ctx context.Context, studentID, courseID int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, pr := range repo.db.progress {
		if pr.StudentID != studentID || !pr.Completed {
			continue
		}
		if l, ok := repo.db.lessons[pr.LessonID]; ok && l.CourseID == courseID {
			count++
		}
	}
	return count, nil
}
