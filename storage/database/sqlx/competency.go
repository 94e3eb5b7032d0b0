package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/competency"
)

// reachableJoins joins the competencies of the active assignments of the active classes
// a student is enrolled in, from class_students cs.
const reachableJoins = `
	JOIN classes cl ON cl.id = cs.class_id AND cl.deleted_at IS NULL
	JOIN assignments a ON a.class_id = cl.id AND a.deleted_at IS NULL
	JOIN competencies c ON c.assignment_id = a.id`

type competencyRepository struct {
	db *sqlx.DB
}

var _ competency.Repository = (*competencyRepository)(nil) // interface compliance check

func NewCompetencyRepository(db *sqlx.DB) competency.Repository {
	return &competencyRepository{db: db}
}

func (repo *competencyRepository) StudentSnapshot(ctx context.Context, studentID string) (competency.Snapshot, error) {
	var rows []struct {
		AssignmentID     string      `db:"assignment_id"`
		CompetencyID     string      `db:"competency_id"`
		SubmissionStatus null.String `db:"submission_status"`
	}
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT a.id AS assignment_id, c.id AS competency_id, s.status AS submission_status
		FROM class_students cs`+reachableJoins+`
		LEFT JOIN submissions s ON s.assignment_id = a.id AND s.student_id = cs.student_id
		WHERE cs.student_id = $1
		ORDER BY a.id, c.position`,
		studentID,
	)
	if err != nil {
		return competency.Snapshot{}, errors.Wrap(err, "selecting reachable competencies")
	}

	snap := competency.Snapshot{Reachable: make([]string, 0, len(rows))}
	var cur *competency.SubmittedCompetencies
	curAsg := ""
	for _, r := range rows {
		snap.Reachable = append(snap.Reachable, r.CompetencyID)
		if !r.SubmissionStatus.Valid {
			continue
		}
		if cur == nil || curAsg != r.AssignmentID {
			snap.Submissions = append(snap.Submissions, competency.SubmittedCompetencies{
				Status: core.MasteryStatus(r.SubmissionStatus.String),
			})
			cur = &snap.Submissions[len(snap.Submissions)-1]
			curAsg = r.AssignmentID
		}
		cur.CompetencyIDs = append(cur.CompetencyIDs, r.CompetencyID)
	}
	return snap, nil
}

type progressRow struct {
	ID           string      `db:"id"`
	CompetencyID string      `db:"competency_id"`
	StudentID    string      `db:"student_id"`
	Status       string      `db:"status"`
	SubmissionID null.String `db:"submission_id"`
	AchievedAt   null.Time   `db:"achieved_at"`
	Feedback     string      `db:"feedback"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`

	CompetencyName  string `db:"competency_name"`
	AssignmentID    string `db:"assignment_id"`
	AssignmentTitle string `db:"assignment_title"`
	ClassID         string `db:"class_id"`
	ClassName       string `db:"class_name"`
}

func (repo *competencyRepository) QueryStudentProgress(ctx context.Context, studentID string) ([]competency.Progress, error) {
	var rows []progressRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT p.id, p.competency_id, p.student_id, p.status, p.submission_id, p.achieved_at, p.feedback,
			p.created_at, p.updated_at, c.name AS competency_name, a.id AS assignment_id,
			a.title AS assignment_title, cl.id AS class_id, cl.name AS class_name
		FROM class_students cs`+reachableJoins+`
		JOIN competency_progress p ON p.competency_id = c.id AND p.student_id = cs.student_id
		WHERE cs.student_id = $1
		ORDER BY p.updated_at DESC`,
		studentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting competency progress")
	}

	progs := make([]competency.Progress, 0, len(rows))
	for _, r := range rows {
		progs = append(progs, competency.Progress{
			ID:              r.ID,
			CompetencyID:    r.CompetencyID,
			StudentID:       r.StudentID,
			Status:          core.MasteryStatus(r.Status),
			SubmissionID:    r.SubmissionID.String,
			AchievedAt:      r.AchievedAt.Ptr(),
			Feedback:        r.Feedback,
			CreatedAt:       r.CreatedAt.UTC(),
			UpdatedAt:       r.UpdatedAt.UTC(),
			CompetencyName:  r.CompetencyName,
			AssignmentID:    r.AssignmentID,
			AssignmentTitle: r.AssignmentTitle,
			ClassID:         r.ClassID,
			ClassName:       r.ClassName,
		})
	}
	return progs, nil
}
