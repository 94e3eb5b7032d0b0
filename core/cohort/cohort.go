package cohort

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core"
)

var ErrNotFound = core.NewNotFoundError("cohort not found")

// Level is the education stage of a cohort, from 1 to 5.
type Level int

const (
	LevelElementary Level = iota + 1
	LevelMiddleSchool
	LevelHighSchool
	LevelUndergraduate
	LevelGraduate
)

var Levels = []LevelInfo{
	{Name: "Elementary", Value: LevelElementary},
	{Name: "Middle School", Value: LevelMiddleSchool},
	{Name: "High School", Value: LevelHighSchool},
	{Name: "Undergraduate", Value: LevelUndergraduate},
	{Name: "Graduate", Value: LevelGraduate},
}

type LevelInfo struct {
	Name  string `json:"name"`
	Value Level  `json:"value"`
}

func (l Level) String() string {
	for _, info := range Levels {
		if info.Value == l {
			return info.Name
		}
	}
	return ""
}

type Cohort struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Level       Level     `json:"level"`
	LevelName   string    `json:"levelName"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewCohort is used both to create and to fully replace a Cohort.
type NewCohort struct {
	Name        string `json:"name" validate:"required,notblank,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Level       Level  `json:"level" validate:"required,min=1,max=5"`
}

func (nc *NewCohort) Clean() {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
}

type (
	Repository interface {
		CreateCohort(ctx context.Context, coh Cohort) (Cohort, error)
		QueryCohorts(ctx context.Context) ([]Cohort, error)
		GetCohort(ctx context.Context, id string) (Cohort, error)
		UpdateCohort(ctx context.Context, coh Cohort) (Cohort, error)
		// DeleteCohort detaches the classes of the cohort before removing it.
		DeleteCohort(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCohort) (Cohort, error) {
	now := core.NowFunc()
	coh, err := svc.repo.CreateCohort(ctx, Cohort{
		Name:        nc.Name,
		Description: nc.Description,
		Level:       nc.Level,
		LevelName:   nc.Level.String(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return coh, errors.Wrap(err, "creating cohort")
}

func (svc *Service) Query(ctx context.Context) ([]Cohort, error) {
	return svc.repo.QueryCohorts(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Cohort, error) {
	return svc.repo.GetCohort(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, uc NewCohort) (Cohort, error) {
	coh, err := svc.repo.GetCohort(ctx, id)
	if err != nil {
		return Cohort{}, err
	}
	coh.Name = uc.Name
	coh.Description = uc.Description
	coh.Level = uc.Level
	coh.LevelName = uc.Level.String()
	coh.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateCohort(ctx, coh)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetCohort(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteCohort(ctx, id)
}
