package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/submission"
)

const submissionColumns = `id, student_id, assignment_id, content, status, submitted_at, reviewed_at, feedback, created_at, updated_at`

type submissionRow struct {
	ID           string    `db:"id"`
	StudentID    string    `db:"student_id"`
	AssignmentID string    `db:"assignment_id"`
	Content      string    `db:"content"`
	Status       string    `db:"status"`
	SubmittedAt  time.Time `db:"submitted_at"`
	ReviewedAt   null.Time `db:"reviewed_at"`
	Feedback     string    `db:"feedback"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`

	StudentName     null.String `db:"student_name"`
	StudentEmail    null.String `db:"student_email"`
	AssignmentTitle null.String `db:"assignment_title"`
}

func (r submissionRow) submission() submission.Submission {
	return submission.Submission{
		ID:              r.ID,
		StudentID:       r.StudentID,
		AssignmentID:    r.AssignmentID,
		Content:         r.Content,
		Status:          core.MasteryStatus(r.Status),
		SubmittedAt:     r.SubmittedAt.UTC(),
		ReviewedAt:      r.ReviewedAt.Ptr(),
		Feedback:        r.Feedback,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
		StudentName:     r.StudentName.String,
		StudentEmail:    r.StudentEmail.String,
		AssignmentTitle: r.AssignmentTitle.String,
	}
}

func submissionsFromRows(rows []submissionRow) []submission.Submission {
	subs := make([]submission.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.submission())
	}
	return subs
}

type submissionRepository struct {
	db *sqlx.DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *sqlx.DB) submission.Repository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, filter submission.GetFilter) (submission.Submission, error) {
	var (
		where []string
		args  []interface{}
	)
	for col, val := range map[string]string{"id": filter.ID, "student_id": filter.StudentID, "assignment_id": filter.AssignmentID} {
		if val != "" {
			args = append(args, val)
			where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	if len(where) == 0 {
		return submission.Submission{}, submission.ErrNotFound
	}

	var row submissionRow
	q := `SELECT ` + submissionColumns + ` FROM submissions WHERE ` + strings.Join(where, " AND ") + ` LIMIT 1`
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		return submission.Submission{}, notFound(errors.Wrap(err, "selecting submission"), submission.ErrNotFound)
	}
	return row.submission(), nil
}

// UpsertSubmission reports whether the row was inserted with postgres' xmax system column,
// which is 0 for a fresh insert and set for a row updated by ON CONFLICT.
func (repo *submissionRepository) UpsertSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, bool, error) {
	var row struct {
		submissionRow
		Inserted bool `db:"inserted"`
	}
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO submissions (id, student_id, assignment_id, content, status, submitted_at, feedback, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, '', $7, $8)
		ON CONFLICT (student_id, assignment_id) DO UPDATE
		SET content = EXCLUDED.content, status = EXCLUDED.status,
			submitted_at = EXCLUDED.submitted_at, updated_at = EXCLUDED.updated_at
		RETURNING `+submissionColumns+`, (xmax = 0) AS inserted`,
		newID(), sub.StudentID, sub.AssignmentID, sub.Content, string(sub.Status), sub.SubmittedAt,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return submission.Submission{}, false, errors.Wrap(err, "upserting submission")
	}
	return row.submission(), row.Inserted, nil
}

// ReviewSubmission keeps achieved_at at the first achievement, and clears it when the status falls back.
func (repo *submissionRepository) ReviewSubmission(ctx context.Context, sub submission.Submission, competencyIDs []string) (submission.Submission, error) {
	var row submissionRow
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &row, `
			UPDATE submissions SET status = $2, feedback = $3, reviewed_at = $4, updated_at = $5
			WHERE id = $1
			RETURNING `+submissionColumns,
			sub.ID, string(sub.Status), sub.Feedback, nullTime(sub.ReviewedAt), sub.UpdatedAt,
		)
		if err != nil {
			return notFound(errors.Wrap(err, "updating submission"), submission.ErrNotFound)
		}

		var achievedAt null.Time
		if sub.Status.AchievedOrBetter() {
			achievedAt = nullTime(sub.ReviewedAt)
		}
		for _, compID := range competencyIDs {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO competency_progress
					(id, competency_id, student_id, status, submission_id, achieved_at, feedback, created_at, updated_at)
				SELECT $1, c.id, $3, $4, $5, $6, $7, $8, $8 FROM competencies c WHERE c.id = $2
				ON CONFLICT (competency_id, student_id) DO UPDATE
				SET status = EXCLUDED.status, submission_id = EXCLUDED.submission_id,
					feedback = EXCLUDED.feedback, updated_at = EXCLUDED.updated_at,
					achieved_at = CASE
						WHEN EXCLUDED.achieved_at IS NULL THEN NULL
						ELSE COALESCE(competency_progress.achieved_at, EXCLUDED.achieved_at)
					END`,
				newID(), compID, row.StudentID, string(sub.Status), row.ID, achievedAt, sub.Feedback, sub.UpdatedAt,
			)
			if err != nil {
				return errors.Wrap(err, "upserting competency progress")
			}
		}
		return nil
	})
	if err != nil {
		return submission.Submission{}, err
	}
	return row.submission(), nil
}

func (repo *submissionRepository) QueryAssignmentSubmissions(ctx context.Context, assignmentID string) ([]submission.Submission, error) {
	var rows []submissionRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT `+prefixColumns("s", submissionColumns)+`, u.name AS student_name, u.email AS student_email
		FROM submissions s
		JOIN users u ON u.id = s.student_id AND u.deleted_at IS NULL
		WHERE s.assignment_id = $1
		ORDER BY s.submitted_at DESC`,
		assignmentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting assignment submissions")
	}
	return submissionsFromRows(rows), nil
}

func (repo *submissionRepository) QueryStudentSubmissions(ctx context.Context, studentID string) ([]submission.Submission, error) {
	var rows []submissionRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT `+prefixColumns("s", submissionColumns)+`, a.title AS assignment_title
		FROM submissions s
		JOIN assignments a ON a.id = s.assignment_id AND a.deleted_at IS NULL
		JOIN classes c ON c.id = a.class_id AND c.deleted_at IS NULL
		WHERE s.student_id = $1
		ORDER BY s.submitted_at DESC`,
		studentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting student submissions")
	}
	return submissionsFromRows(rows), nil
}
