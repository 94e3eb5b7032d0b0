package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/competency"
	"github.com/trezcool/cblms/core/submission"
)

type submissionRepository struct {
	db *DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) copy(row *submission.Submission) submission.Submission {
	sub := *row
	sub.ReviewedAt = copyTime(row.ReviewedAt)
	return sub
}

func (repo *submissionRepository) GetSubmission(_ context.Context, filter submission.GetFilter) (submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := repo.db.submissions.all(func(s *submission.Submission) bool {
		return (filter.ID == "" || s.ID == filter.ID) &&
			(filter.StudentID == "" || s.StudentID == filter.StudentID) &&
			(filter.AssignmentID == "" || s.AssignmentID == filter.AssignmentID)
	})
	if len(rows) == 0 || (filter.ID == "" && filter.StudentID == "" && filter.AssignmentID == "") {
		return submission.Submission{}, submission.ErrNotFound
	}
	return repo.copy(rows[0]), nil
}

func (repo *submissionRepository) UpsertSubmission(_ context.Context, sub submission.Submission) (submission.Submission, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.assignments.get(sub.AssignmentID); !ok {
		return submission.Submission{}, false, assignment.ErrNotFound
	}
	if row, ok := repo.db.findSubmission(sub.StudentID, sub.AssignmentID); ok {
		row.Content = sub.Content
		row.Status = sub.Status
		row.SubmittedAt = sub.SubmittedAt
		row.UpdatedAt = sub.UpdatedAt
		return repo.copy(row), false, nil
	}

	sub.ID = newID()
	return repo.copy(repo.db.submissions.insert(sub.ID, sub)), true, nil
}

func (repo *submissionRepository) ReviewSubmission(_ context.Context, sub submission.Submission, competencyIDs []string) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.submissions.get(sub.ID)
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	row.Status = sub.Status
	row.Feedback = sub.Feedback
	row.ReviewedAt = copyTime(sub.ReviewedAt)
	row.UpdatedAt = sub.UpdatedAt

	for _, compID := range competencyIDs {
		if _, ok := repo.db.competencies.get(compID); !ok {
			continue
		}
		prog, ok := repo.db.findProgress(compID, row.StudentID)
		if !ok {
			id := newID()
			prog = repo.db.progress.insert(id, competency.Progress{
				ID:           id,
				CompetencyID: compID,
				StudentID:    row.StudentID,
				CreatedAt:    sub.UpdatedAt,
			})
		}
		prog.Status = sub.Status
		prog.SubmissionID = row.ID
		prog.Feedback = sub.Feedback
		prog.UpdatedAt = sub.UpdatedAt
		prog.AchievedAt = achievedAt(prog.AchievedAt, sub)
	}
	return repo.copy(row), nil
}

// achievedAt keeps the first time a competency was achieved, and clears it when the status falls back.
func achievedAt(prev *time.Time, sub submission.Submission) *time.Time {
	if !sub.Status.AchievedOrBetter() {
		return nil
	}
	if prev != nil {
		return prev
	}
	return copyTime(sub.ReviewedAt)
}

func (repo *submissionRepository) QueryAssignmentSubmissions(_ context.Context, assignmentID string) ([]submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := repo.db.submissions.all(func(s *submission.Submission) bool { return s.AssignmentID == assignmentID })
	newestFirst(rows, func(s *submission.Submission) time.Time { return s.SubmittedAt })

	subs := make([]submission.Submission, 0, len(rows))
	for _, row := range rows {
		usr, ok := repo.db.activeUser(row.StudentID)
		if !ok {
			continue
		}
		sub := repo.copy(row)
		sub.StudentName = usr.Name
		sub.StudentEmail = usr.Email
		subs = append(subs, sub)
	}
	return subs, nil
}

func (repo *submissionRepository) QueryStudentSubmissions(_ context.Context, studentID string) ([]submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	titles := make(map[string]string)
	for _, cls := range repo.db.classes.all() {
		for _, asg := range repo.db.activeAssignments(cls.ID) {
			titles[asg.ID] = asg.Title
		}
	}
	rows := repo.db.submissions.all(func(s *submission.Submission) bool {
		_, active := titles[s.AssignmentID]
		return s.StudentID == studentID && active
	})
	newestFirst(rows, func(s *submission.Submission) time.Time { return s.SubmittedAt })

	subs := make([]submission.Submission, 0, len(rows))
	for _, row := range rows {
		sub := repo.copy(row)
		sub.AssignmentTitle = titles[row.AssignmentID]
		subs = append(subs, sub)
	}
	return subs, nil
}
