package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core/cohort"
)

const cohortColumns = `id, name, description, level, created_at, updated_at`

type cohortRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Level       int       `db:"level"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r cohortRow) cohort() cohort.Cohort {
	lvl := cohort.Level(r.Level)
	return cohort.Cohort{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Level:       lvl,
		LevelName:   lvl.String(),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type cohortRepository struct {
	db *sqlx.DB
}

var _ cohort.Repository = (*cohortRepository)(nil) // interface compliance check

func NewCohortRepository(db *sqlx.DB) cohort.Repository {
	return &cohortRepository{db: db}
}

func (repo *cohortRepository) CreateCohort(ctx context.Context, coh cohort.Cohort) (cohort.Cohort, error) {
	var row cohortRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO cohorts (id, name, description, level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+cohortColumns,
		newID(), coh.Name, coh.Description, int(coh.Level), coh.CreatedAt, coh.UpdatedAt,
	)
	if err != nil {
		return cohort.Cohort{}, errors.Wrap(err, "inserting cohort")
	}
	return row.cohort(), nil
}

func (repo *cohortRepository) QueryCohorts(ctx context.Context) ([]cohort.Cohort, error) {
	var rows []cohortRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+cohortColumns+` FROM cohorts ORDER BY level, name`); err != nil {
		return nil, errors.Wrap(err, "selecting cohorts")
	}
	cohorts := make([]cohort.Cohort, 0, len(rows))
	for _, r := range rows {
		cohorts = append(cohorts, r.cohort())
	}
	return cohorts, nil
}

func (repo *cohortRepository) GetCohort(ctx context.Context, id string) (cohort.Cohort, error) {
	var row cohortRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+cohortColumns+` FROM cohorts WHERE id = $1`, id); err != nil {
		return cohort.Cohort{}, notFound(errors.Wrap(err, "selecting cohort"), cohort.ErrNotFound)
	}
	return row.cohort(), nil
}

func (repo *cohortRepository) UpdateCohort(ctx context.Context, coh cohort.Cohort) (cohort.Cohort, error) {
	var row cohortRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE cohorts SET name = $2, description = $3, level = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+cohortColumns,
		coh.ID, coh.Name, coh.Description, int(coh.Level), coh.UpdatedAt,
	)
	if err != nil {
		return cohort.Cohort{}, notFound(errors.Wrap(err, "updating cohort"), cohort.ErrNotFound)
	}
	return row.cohort(), nil
}

// DeleteCohort relies on classes.cohort_id being ON DELETE SET NULL.
func (repo *cohortRepository) DeleteCohort(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM cohorts WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting cohort")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cohort.ErrNotFound
	}
	return nil
}
