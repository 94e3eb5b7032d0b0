package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cblms/core/assignment"
)

const assignmentSelect = `
	SELECT a.id, a.title, a.description, a.class_id, c.name AS class_name, a.deadline,
		a.created_at, a.updated_at, a.deleted_at
	FROM assignments a
	JOIN classes c ON c.id = a.class_id`

type assignmentRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	ClassID     string    `db:"class_id"`
	ClassName   string    `db:"class_name"`
	Deadline    null.Time `db:"deadline"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	DeletedAt   null.Time `db:"deleted_at"`
}

func (r assignmentRow) assignment() assignment.Assignment {
	return assignment.Assignment{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		ClassID:      r.ClassID,
		ClassName:    r.ClassName,
		Deadline:     r.Deadline.Ptr(),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		DeletedAt:    r.DeletedAt.Ptr(),
		Competencies: make([]assignment.Competency, 0),
	}
}

type competencyRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	AssignmentID string    `db:"assignment_id"`
	CreatedAt    time.Time `db:"created_at"`
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func insertCompetencies(ctx context.Context, tx *sqlx.Tx, asgID string, comps []assignment.Competency) error {
	for i, comp := range comps {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO competencies (id, name, assignment_id, position, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			newID(), comp.Name, asgID, i, comp.CreatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "inserting competency")
		}
	}
	return nil
}

// load fills the competencies of the assignments.
func (repo *assignmentRepository) load(ctx context.Context, q sqlx.QueryerContext, rows []assignmentRow) ([]assignment.Assignment, error) {
	asgs := make([]assignment.Assignment, 0, len(rows))
	if len(rows) == 0 {
		return asgs, nil
	}
	index := make(map[string]int, len(rows))
	ids := make([]string, 0, len(rows))
	for i, r := range rows {
		index[r.ID] = i
		ids = append(ids, r.ID)
		asgs = append(asgs, r.assignment())
	}

	var comps []competencyRow
	err := sqlx.SelectContext(ctx, q, &comps, `
		SELECT id, name, assignment_id, created_at FROM competencies
		WHERE assignment_id = ANY($1)
		ORDER BY position, created_at`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting competencies")
	}
	for _, c := range comps {
		a := &asgs[index[c.AssignmentID]]
		a.Competencies = append(a.Competencies, assignment.Competency{
			ID:           c.ID,
			Name:         c.Name,
			AssignmentID: c.AssignmentID,
			CreatedAt:    c.CreatedAt.UTC(),
		})
	}
	return asgs, nil
}

func (repo *assignmentRepository) getByID(ctx context.Context, q sqlx.QueryerContext, id string) (assignment.Assignment, error) {
	var row assignmentRow
	if err := sqlx.GetContext(ctx, q, &row, assignmentSelect+` WHERE a.id = $1`, id); err != nil {
		return assignment.Assignment{}, notFound(errors.Wrap(err, "selecting assignment"), assignment.ErrNotFound)
	}
	asgs, err := repo.load(ctx, q, []assignmentRow{row})
	if err != nil {
		return assignment.Assignment{}, err
	}
	return asgs[0], nil
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	var created assignment.Assignment
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		id := newID()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO assignments (id, title, description, class_id, deadline, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, asg.Title, asg.Description, asg.ClassID, nullTime(asg.Deadline), asg.CreatedAt, asg.UpdatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "inserting assignment")
		}
		if err = insertCompetencies(ctx, tx, id, asg.Competencies); err != nil {
			return err
		}
		created, err = repo.getByID(ctx, tx, id)
		return err
	})
	return created, err
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, filter assignment.GetFilter) (assignment.Assignment, error) {
	q := assignmentSelect + ` WHERE a.id = $1`
	args := []interface{}{filter.ID}
	if filter.Deleted {
		q += ` AND a.deleted_at IS NOT NULL`
	} else {
		q += ` AND a.deleted_at IS NULL AND c.deleted_at IS NULL`
	}
	if filter.TeacherID != "" {
		q += ` AND c.teacher_id = $2`
		args = append(args, filter.TeacherID)
	}

	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		return assignment.Assignment{}, notFound(errors.Wrap(err, "selecting assignment"), assignment.ErrNotFound)
	}
	asgs, err := repo.load(ctx, repo.db, []assignmentRow{row})
	if err != nil {
		return assignment.Assignment{}, err
	}
	return asgs[0], nil
}

func (repo *assignmentRepository) QueryClassAssignments(ctx context.Context, classID string) ([]assignment.Assignment, error) {
	var rows []assignmentRow
	err := repo.db.SelectContext(ctx, &rows, assignmentSelect+`
		WHERE a.class_id = $1 AND a.deleted_at IS NULL AND c.deleted_at IS NULL
		ORDER BY a.created_at DESC`,
		classID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting class assignments")
	}
	return repo.load(ctx, repo.db, rows)
}

// UpdateAssignment deletes the old competencies, and their progress rows through ON DELETE CASCADE,
// then inserts the new ones in the same transaction.
func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	var updated assignment.Assignment
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE assignments SET title = $2, description = $3, deadline = $4, updated_at = $5
			WHERE id = $1`,
			asg.ID, asg.Title, asg.Description, nullTime(asg.Deadline), asg.UpdatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "updating assignment")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return assignment.ErrNotFound
		}

		if _, err = tx.ExecContext(ctx, `DELETE FROM competencies WHERE assignment_id = $1`, asg.ID); err != nil {
			return errors.Wrap(err, "deleting competencies")
		}
		if err = insertCompetencies(ctx, tx, asg.ID, asg.Competencies); err != nil {
			return err
		}
		updated, err = repo.getByID(ctx, tx, asg.ID)
		return err
	})
	return updated, err
}

func (repo *assignmentRepository) SetAssignmentDeletedAt(ctx context.Context, id string, deletedAt *time.Time) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE assignments SET deleted_at = $2 WHERE id = $1`, id, nullTime(deletedAt))
	if err != nil {
		return errors.Wrap(err, "setting assignment deleted_at")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

func (repo *assignmentRepository) QueryDeletedAssignments(ctx context.Context, teacherID string) ([]assignment.Assignment, error) {
	var rows []assignmentRow
	err := repo.db.SelectContext(ctx, &rows, assignmentSelect+`
		WHERE c.teacher_id = $1 AND a.deleted_at IS NOT NULL
		ORDER BY a.deleted_at DESC`,
		teacherID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting deleted assignments")
	}
	return repo.load(ctx, repo.db, rows)
}
