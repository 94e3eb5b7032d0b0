package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/cohort"
)

type cohortRepository struct {
	db *DB
}

var _ cohort.Repository = (*cohortRepository)(nil) // interface compliance check

func NewCohortRepository(db *DB) cohort.Repository {
	return &cohortRepository{db: db}
}

func (repo *cohortRepository) CreateCohort(_ context.Context, coh cohort.Cohort) (cohort.Cohort, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	coh.ID = newID()
	return *repo.db.cohorts.insert(coh.ID, coh), nil
}

// QueryCohorts orders cohorts by level then name.
func (repo *cohortRepository) QueryCohorts(_ context.Context) ([]cohort.Cohort, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := repo.db.cohorts.all()
	cohorts := make([]cohort.Cohort, 0, len(rows))
	for _, coh := range rows {
		cohorts = append(cohorts, *coh)
	}
	sort.SliceStable(cohorts, func(i, j int) bool {
		if cohorts[i].Level != cohorts[j].Level {
			return cohorts[i].Level < cohorts[j].Level
		}
		return cohorts[i].Name < cohorts[j].Name
	})
	return cohorts, nil
}

func (repo *cohortRepository) GetCohort(_ context.Context, id string) (cohort.Cohort, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if coh, ok := repo.db.cohorts.get(id); ok {
		return *coh, nil
	}
	return cohort.Cohort{}, cohort.ErrNotFound
}

func (repo *cohortRepository) UpdateCohort(_ context.Context, coh cohort.Cohort) (cohort.Cohort, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.cohorts.get(coh.ID); !ok {
		return cohort.Cohort{}, cohort.ErrNotFound
	}
	return *repo.db.cohorts.insert(coh.ID, coh), nil
}

func (repo *cohortRepository) DeleteCohort(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.cohorts.get(id); !ok {
		return cohort.ErrNotFound
	}
	for _, cls := range repo.db.classes.all(func(c *class.Class) bool { return c.CohortID == id }) {
		cls.CohortID = ""
	}
	repo.db.cohorts.delete(id)
	return nil
}
