package competency

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core"
)

// Progress is the mastery state of a student on one competency.
type Progress struct {
	ID           string             `json:"id"`
	CompetencyID string             `json:"competencyId"`
	StudentID    string             `json:"studentId"`
	Status       core.MasteryStatus `json:"status"`
	SubmissionID string             `json:"submissionId,omitempty"`
	AchievedAt   *time.Time         `json:"achievedAt,omitempty"`
	Feedback     string             `json:"feedback,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`

	CompetencyName  string `json:"competencyName"`
	AssignmentID    string `json:"assignmentId"`
	AssignmentTitle string `json:"assignmentTitle"`
	ClassID         string `json:"classId"`
	ClassName       string `json:"className"`
}

// StatusCounts holds a count per mastery status.
type StatusCounts struct {
	Mastered   int `json:"MASTERED"`
	Achieved   int `json:"ACHIEVED"`
	InProgress int `json:"IN_PROGRESS"`
}

func (sc *StatusCounts) Add(status core.MasteryStatus, n int) {
	switch status {
	case core.StatusMastered:
		sc.Mastered += n
	case core.StatusAchieved:
		sc.Achieved += n
	default:
		sc.InProgress += n
	}
}

func (sc StatusCounts) Total() int {
	return sc.Mastered + sc.Achieved + sc.InProgress
}

// SubmittedCompetencies is a submission status with the competencies of its assignment.
type SubmittedCompetencies struct {
	Status        core.MasteryStatus
	CompetencyIDs []string
}

// Snapshot is what the status of a student is computed from.
type Snapshot struct {
	// Reachable holds the competencies of the active assignments of the active classes the student is enrolled in.
	Reachable []string
	// Submissions to those assignments only.
	Submissions []SubmittedCompetencies
}

// ComputeStatus buckets the competencies of a student:
//   - MASTERED and ACHIEVED sum the competency counts of the submissions at that status;
//   - IN_PROGRESS is the size of the reachable set minus the achieved-or-better set.
//
// It is a set difference, not a per-competency tracker: a competency reachable through two
// assignments at different statuses is counted in every bucket it touches.
func ComputeStatus(snap Snapshot) StatusCounts {
	var counts StatusCounts
	achieved := make(map[string]struct{})
	for _, sub := range snap.Submissions {
		switch sub.Status {
		case core.StatusMastered:
			counts.Mastered += len(sub.CompetencyIDs)
		case core.StatusAchieved:
			counts.Achieved += len(sub.CompetencyIDs)
		}
		if sub.Status.AchievedOrBetter() {
			for _, id := range sub.CompetencyIDs {
				achieved[id] = struct{}{}
			}
		}
	}

	reachable := make(map[string]struct{}, len(snap.Reachable))
	for _, id := range snap.Reachable {
		reachable[id] = struct{}{}
	}
	for id := range reachable {
		if _, ok := achieved[id]; !ok {
			counts.InProgress++
		}
	}
	return counts
}

type (
	Repository interface {
		StudentSnapshot(ctx context.Context, studentID string) (Snapshot, error)
		// QueryStudentProgress returns the progress rows on competencies of active assignments of active classes.
		QueryStudentProgress(ctx context.Context, studentID string) ([]Progress, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Status(ctx context.Context, studentID string) (StatusCounts, error) {
	snap, err := svc.repo.StudentSnapshot(ctx, studentID)
	if err != nil {
		return StatusCounts{}, errors.Wrap(err, "taking student snapshot")
	}
	return ComputeStatus(snap), nil
}

func (svc *Service) Progress(ctx context.Context, studentID string) ([]Progress, error) {
	prog, err := svc.repo.QueryStudentProgress(ctx, studentID)
	return prog, errors.Wrap(err, "querying progress")
}
