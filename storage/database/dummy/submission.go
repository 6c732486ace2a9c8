package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/darasa/core/submission"
)

type submissionRepository struct {
	db *DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.submissions {
		if existing.StudentID == s.StudentID && existing.AssignmentID == s.AssignmentID {
			return submission.Submission{}, submission.ErrAlreadySubmitted
		}
	}
	s.ID = repo.db.nextID("submission")
	repo.db.submissions[s.ID] = &s
	return s, nil
}

func (repo *submissionRepository) GetSubmissionByID(ctx context.Context, id int) (submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.submissions[id]; ok {
		return *s, nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

func (repo *submissionRepository) HasSubmission(ctx context.Context, studentID, assignmentID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.submissions {
		if s.StudentID == studentID && s.AssignmentID == assignmentID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *submissionRepository) GetAssignmentSubmissions(ctx context.Context, assignmentID int) ([]submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var submissions []submission.Submission
	for _, s := range repo.db.submissions {
		if s.AssignmentID == assignmentID {
			submissions = append(submissions, *s)
		}
	}
	// newest first
	sort.Slice(submissions, func(i, j int) bool {
		if !submissions[i].SubmittedAt.Equal(submissions[j].SubmittedAt) {
			return submissions[i].SubmittedAt.After(submissions[j].SubmittedAt)
		}
		return submissions[i].ID > submissions[j].ID
	})
	return submissions, nil
}

func (repo *submissionRepository) GetStudentSubmissions(ctx context.Context, studentID int) ([]submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var submissions []submission.Submission
	for _, s := range repo.db.submissions {
		if s.StudentID == studentID {
			submissions = append(submissions, *s)
		}
	}
	sort.Slice(submissions, func(i, j int) bool { return submissions[i].ID < submissions[j].ID })
	return submissions, nil
}

func (repo *submissionRepository) SetGrade(ctx context.Context, id int, score float64, feedback string, gradedByID int, gradedAt time.Time) (submission.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.db.submissions[id]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	s.Score = &score
	s.Feedback = feedback
	s.GradedByID = &gradedByID
	s.GradedAt = &gradedAt
	return *s, nil
}

func (repo *submissionRepository) CountUngradedSubmissions(ctx context.Context, courseIDs ...int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make(map[int]bool, len(courseIDs))
	for _, id := range courseIDs {
		ids[id] = true
	}
	var count int
	for _, s := range repo.db.submissions {
		if s.Graded() {
			continue
		}
		if a, ok := repo.db.assignments[s.AssignmentID]; ok && ids[a.CourseID] {
			count++
		}
	}
	return count, nil
}
