package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/class"
)

const classColumns = `id, name, description, teacher_id, cohort_id, created_at, updated_at, deleted_at`

type classRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	Description string      `db:"description"`
	TeacherID   string      `db:"teacher_id"`
	CohortID    null.String `db:"cohort_id"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
	DeletedAt   null.Time   `db:"deleted_at"`
}

func (r classRow) class() class.Class {
	return class.Class{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		TeacherID:   r.TeacherID,
		CohortID:    r.CohortID.String,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
		DeletedAt:   r.DeletedAt.Ptr(),
	}
}

type memberRow struct {
	ClassID  string      `db:"class_id"`
	ID       string      `db:"id"`
	Name     string      `db:"name"`
	Email    string      `db:"email"`
	PhotoURL null.String `db:"photo_url"`
}

func (r memberRow) member() class.Member {
	return class.Member{ID: r.ID, Name: r.Name, Email: r.Email, PhotoURL: r.PhotoURL.String}
}

type assignmentSummaryRow struct {
	ID              string    `db:"id"`
	ClassID         string    `db:"class_id"`
	Title           string    `db:"title"`
	Deadline        null.Time `db:"deadline"`
	CreatedAt       time.Time `db:"created_at"`
	CompetencyCount int       `db:"competency_count"`
	SubmissionCount int       `db:"submission_count"`
}

type submissionSummaryRow struct {
	ID           string    `db:"id"`
	AssignmentID string    `db:"assignment_id"`
	Status       string    `db:"status"`
	SubmittedAt  time.Time `db:"submitted_at"`
	ReviewedAt   null.Time `db:"reviewed_at"`
	Feedback     string    `db:"feedback"`
}

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *sqlx.DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class, studentIDs []string) (class.Class, error) {
	var row classRow
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &row, `
			INSERT INTO classes (id, name, description, teacher_id, cohort_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+classColumns,
			newID(), cls.Name, cls.Description, cls.TeacherID, nullString(cls.CohortID), cls.CreatedAt, cls.UpdatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "inserting class")
		}
		return enroll(ctx, tx, row.ID, studentIDs, cls.CreatedAt)
	})
	if err != nil {
		return class.Class{}, err
	}
	return row.class(), nil
}

// enroll skips students already in the class.
func enroll(ctx context.Context, tx *sqlx.Tx, classID string, studentIDs []string, at time.Time) error {
	if len(studentIDs) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO class_students (class_id, student_id, enrolled_at)
		SELECT $1, unnest($2::uuid[]), $3
		ON CONFLICT DO NOTHING`,
		classID, pq.Array(studentIDs), at,
	)
	return errors.Wrap(err, "enrolling students")
}

func (repo *classRepository) GetClass(ctx context.Context, filter class.GetFilter) (class.Class, error) {
	q := `SELECT ` + classColumns + ` FROM classes WHERE id = $1`
	args := []interface{}{filter.ID}
	if filter.Deleted {
		q += ` AND deleted_at IS NOT NULL`
	} else {
		q += ` AND deleted_at IS NULL`
	}
	if filter.TeacherID != "" {
		q += ` AND teacher_id = $2`
		args = append(args, filter.TeacherID)
	}

	var row classRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		return class.Class{}, notFound(errors.Wrap(err, "selecting class"), class.ErrNotFound)
	}
	return row.class(), nil
}

func (repo *classRepository) QueryClassDetails(ctx context.Context, filter class.QueryFilter) ([]class.Detail, error) {
	where := []string{"c.deleted_at IS NULL"}
	var args []interface{}
	if filter.ID != "" {
		args = append(args, filter.ID)
		where = append(where, fmt.Sprintf("c.id = $%d", len(args)))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		where = append(where, fmt.Sprintf("c.teacher_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM class_students cs WHERE cs.class_id = c.id AND cs.student_id = $%d)", len(args)))
	}

	var rows []classRow
	q := `SELECT ` + prefixColumns("c", classColumns) + ` FROM classes c WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY c.created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting classes")
	}

	details := make([]class.Detail, 0, len(rows))
	if len(rows) == 0 {
		return details, nil
	}

	index := make(map[string]int, len(rows))
	classIDs := make([]string, 0, len(rows))
	teacherIDs := make([]string, 0, len(rows))
	for i, r := range rows {
		index[r.ID] = i
		classIDs = append(classIDs, r.ID)
		teacherIDs = append(teacherIDs, r.TeacherID)
		details = append(details, class.Detail{
			Class:       r.class(),
			Students:    make([]class.Member, 0),
			Assignments: make([]class.AssignmentSummary, 0),
		})
	}

	if err := repo.loadMembers(ctx, details, index, classIDs, teacherIDs); err != nil {
		return nil, err
	}
	if err := repo.loadAssignments(ctx, details, index, classIDs, filter.StudentID); err != nil {
		return nil, err
	}
	return details, nil
}

func (repo *classRepository) loadMembers(ctx context.Context, details []class.Detail, index map[string]int, classIDs, teacherIDs []string) error {
	var teachers []memberRow
	err := repo.db.SelectContext(ctx, &teachers,
		`SELECT '' AS class_id, id, name, email, photo_url FROM users WHERE id = ANY($1)`, pq.Array(teacherIDs))
	if err != nil {
		return errors.Wrap(err, "selecting teachers")
	}
	byID := make(map[string]class.Member, len(teachers))
	for _, t := range teachers {
		byID[t.ID] = t.member()
	}
	for i := range details {
		details[i].Teacher = byID[details[i].TeacherID]
	}

	var students []memberRow
	err = repo.db.SelectContext(ctx, &students, `
		SELECT cs.class_id, u.id, u.name, u.email, u.photo_url
		FROM class_students cs
		JOIN users u ON u.id = cs.student_id AND u.deleted_at IS NULL
		WHERE cs.class_id = ANY($1)
		ORDER BY lower(u.name), u.id`,
		pq.Array(classIDs),
	)
	if err != nil {
		return errors.Wrap(err, "selecting students")
	}
	for _, s := range students {
		d := &details[index[s.ClassID]]
		d.Students = append(d.Students, s.member())
	}
	return nil
}

func (repo *classRepository) loadAssignments(ctx context.Context, details []class.Detail, index map[string]int, classIDs []string, studentID string) error {
	var asgs []assignmentSummaryRow
	err := repo.db.SelectContext(ctx, &asgs, `
		SELECT a.id, a.class_id, a.title, a.deadline, a.created_at,
			(SELECT count(*) FROM competencies c WHERE c.assignment_id = a.id) AS competency_count,
			(SELECT count(*) FROM submissions s WHERE s.assignment_id = a.id) AS submission_count
		FROM assignments a
		WHERE a.class_id = ANY($1) AND a.deleted_at IS NULL
		ORDER BY a.created_at DESC`,
		pq.Array(classIDs),
	)
	if err != nil {
		return errors.Wrap(err, "selecting assignments")
	}

	subs := make(map[string]*class.SubmissionSummary)
	if studentID != "" && len(asgs) > 0 {
		asgIDs := make([]string, 0, len(asgs))
		for _, a := range asgs {
			asgIDs = append(asgIDs, a.ID)
		}
		var rows []submissionSummaryRow
		err = repo.db.SelectContext(ctx, &rows, `
			SELECT id, assignment_id, status, submitted_at, reviewed_at, feedback
			FROM submissions
			WHERE student_id = $1 AND assignment_id = ANY($2)`,
			studentID, pq.Array(asgIDs),
		)
		if err != nil {
			return errors.Wrap(err, "selecting student submissions")
		}
		for _, r := range rows {
			subs[r.AssignmentID] = &class.SubmissionSummary{
				ID:          r.ID,
				Status:      core.MasteryStatus(r.Status),
				SubmittedAt: r.SubmittedAt.UTC(),
				ReviewedAt:  r.ReviewedAt.Ptr(),
				Feedback:    r.Feedback,
			}
		}
	}

	for _, a := range asgs {
		d := &details[index[a.ClassID]]
		d.Assignments = append(d.Assignments, class.AssignmentSummary{
			ID:              a.ID,
			Title:           a.Title,
			Deadline:        a.Deadline.Ptr(),
			CreatedAt:       a.CreatedAt.UTC(),
			CompetencyCount: a.CompetencyCount,
			SubmissionCount: a.SubmissionCount,
			Submission:      subs[a.ID],
		})
	}
	return nil
}

func (repo *classRepository) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	var enrolled bool
	err := repo.db.GetContext(ctx, &enrolled,
		`SELECT EXISTS (SELECT 1 FROM class_students WHERE class_id = $1 AND student_id = $2)`, classID, studentID)
	return enrolled, errors.Wrap(err, "checking enrollment")
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class, studentIDs []string) (class.Class, error) {
	var row classRow
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &row, `
			UPDATE classes SET name = $2, description = $3, cohort_id = $4, updated_at = $5
			WHERE id = $1
			RETURNING `+classColumns,
			cls.ID, cls.Name, cls.Description, nullString(cls.CohortID), cls.UpdatedAt,
		)
		if err != nil {
			return notFound(errors.Wrap(err, "updating class"), class.ErrNotFound)
		}
		if studentIDs == nil {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM class_students WHERE class_id = $1 AND NOT (student_id = ANY($2::uuid[]))`,
			cls.ID, pq.Array(studentIDs))
		if err != nil {
			return errors.Wrap(err, "unenrolling students")
		}
		return enroll(ctx, tx, cls.ID, studentIDs, cls.UpdatedAt)
	})
	if err != nil {
		return class.Class{}, err
	}
	return row.class(), nil
}

func (repo *classRepository) SetClassDeletedAt(ctx context.Context, id string, deletedAt *time.Time) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE classes SET deleted_at = $2 WHERE id = $1`, id, nullTime(deletedAt))
	if err != nil {
		return errors.Wrap(err, "setting class deleted_at")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return class.ErrNotFound
	}
	return nil
}

// DeleteClass relies on the ON DELETE CASCADE foreign keys to remove the dependent rows.
func (repo *classRepository) DeleteClass(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return class.ErrNotFound
	}
	return nil
}

func (repo *classRepository) EnrollStudents(ctx context.Context, classID string, studentIDs []string) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM classes WHERE id = $1)`, classID); err != nil {
			return errors.Wrap(err, "checking class")
		}
		if !exists {
			return class.ErrNotFound
		}
		return enroll(ctx, tx, classID, studentIDs, core.NowFunc())
	})
}

func (repo *classRepository) UnenrollStudent(ctx context.Context, classID, studentID string) error {
	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM class_students WHERE class_id = $1 AND student_id = $2`, classID, studentID)
	if err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return class.ErrNotEnrolled
	}
	return nil
}

func (repo *classRepository) QueryDeletedClasses(ctx context.Context, teacherID string) ([]class.Class, error) {
	var rows []classRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT `+classColumns+` FROM classes
		WHERE teacher_id = $1 AND deleted_at IS NOT NULL
		ORDER BY deleted_at DESC`,
		teacherID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting deleted classes")
	}
	classes := make([]class.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.class())
	}
	return classes, nil
}

// prefixColumns qualifies a comma separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
