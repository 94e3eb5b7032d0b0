package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/report"
)

// competencyRowsSelect selects one row per enrollment and reachable competency.
// A competency without a progress row is IN_PROGRESS.
const competencyRowsSelect = `
	SELECT cs.student_id, cl.id AS class_id, cl.name AS class_name,
		co.id AS cohort_id, co.name AS cohort_name, co.level AS cohort_level,
		a.id AS assignment_id, a.title AS assignment_title, c.id AS competency_id, c.name AS competency_name,
		COALESCE(p.status, 'IN_PROGRESS') AS status, p.achieved_at, s.status AS submission_status
	FROM class_students cs` + reachableJoins + `
	JOIN users u ON u.id = cs.student_id AND u.deleted_at IS NULL
	LEFT JOIN cohorts co ON co.id = cl.cohort_id
	LEFT JOIN competency_progress p ON p.competency_id = c.id AND p.student_id = cs.student_id
	LEFT JOIN submissions s ON s.assignment_id = a.id AND s.student_id = cs.student_id`

type competencyReportRow struct {
	StudentID        string      `db:"student_id"`
	ClassID          string      `db:"class_id"`
	ClassName        string      `db:"class_name"`
	CohortID         null.String `db:"cohort_id"`
	CohortName       null.String `db:"cohort_name"`
	CohortLevel      null.Int    `db:"cohort_level"`
	AssignmentID     string      `db:"assignment_id"`
	AssignmentTitle  string      `db:"assignment_title"`
	CompetencyID     string      `db:"competency_id"`
	CompetencyName   string      `db:"competency_name"`
	Status           string      `db:"status"`
	AchievedAt       null.Time   `db:"achieved_at"`
	SubmissionStatus null.String `db:"submission_status"`
}

func (r competencyReportRow) row() report.CompetencyRow {
	return report.CompetencyRow{
		StudentID:        r.StudentID,
		ClassID:          r.ClassID,
		ClassName:        r.ClassName,
		CohortID:         r.CohortID.String,
		CohortName:       r.CohortName.String,
		CohortLevel:      r.CohortLevel.Int,
		AssignmentID:     r.AssignmentID,
		AssignmentTitle:  r.AssignmentTitle,
		CompetencyID:     r.CompetencyID,
		CompetencyName:   r.CompetencyName,
		Status:           core.MasteryStatus(r.Status),
		AchievedAt:       r.AchievedAt.Ptr(),
		SubmissionStatus: core.MasteryStatus(r.SubmissionStatus.String),
	}
}

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sqlx.DB) report.Repository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) query(ctx context.Context, where, arg string) ([]report.CompetencyRow, error) {
	var rows []competencyReportRow
	q := competencyRowsSelect + ` WHERE ` + where + ` ORDER BY cs.student_id, a.created_at DESC, c.position`
	if err := repo.db.SelectContext(ctx, &rows, q, arg); err != nil {
		return nil, errors.Wrap(err, "selecting competency rows")
	}
	res := make([]report.CompetencyRow, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.row())
	}
	return res, nil
}

func (repo *reportRepository) QueryStudentRows(ctx context.Context, studentID string) ([]report.CompetencyRow, error) {
	return repo.query(ctx, `cs.student_id = $1`, studentID)
}

func (repo *reportRepository) QueryClassRows(ctx context.Context, classID string) ([]report.CompetencyRow, error) {
	return repo.query(ctx, `cs.class_id = $1`, classID)
}
