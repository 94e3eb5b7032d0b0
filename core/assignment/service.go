package assignment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/user"
)

var ErrNotFound = core.NewNotFoundError("assignment not found")

type (
	Repository interface {
		// CreateAssignment inserts the assignment and its competencies atomically.
		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, filter GetFilter) (Assignment, error)
		// QueryClassAssignments returns the active assignments of a class, newest first.
		QueryClassAssignments(ctx context.Context, classID string) ([]Assignment, error)
		// UpdateAssignment atomically updates the assignment and replaces its competencies.
		// Progress rows of the replaced competencies are removed in the same transaction.
		UpdateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		SetAssignmentDeletedAt(ctx context.Context, id string, deletedAt *time.Time) error
		DeleteAssignment(ctx context.Context, id string) error
		QueryDeletedAssignments(ctx context.Context, teacherID string) ([]Assignment, error)
	}

	ClassFinder interface {
		GetOwned(ctx context.Context, id, teacherID string) (class.Class, error)
		GetVisible(ctx context.Context, requester user.User, id string) (class.Class, error)
	}

	Service struct {
		repo     Repository
		classSvc ClassFinder
	}
)

func NewService(repo Repository, classSvc ClassFinder) *Service {
	return &Service{repo: repo, classSvc: classSvc}
}

func (svc *Service) Create(ctx context.Context, teacherID string, na NewAssignment) (Assignment, error) {
	cls, err := svc.classSvc.GetOwned(ctx, na.ClassID, teacherID)
	if err != nil {
		return Assignment{}, err
	}

	now := core.NowFunc()
	asg := Assignment{
		Title:        na.Title,
		Description:  na.Description,
		ClassID:      cls.ID,
		ClassName:    cls.Name,
		Deadline:     utcPtr(na.Deadline),
		CreatedAt:    now,
		UpdatedAt:    now,
		Competencies: newCompetencies(na.Competencies, now),
	}
	asg, err = svc.repo.CreateAssignment(ctx, asg)
	return asg, errors.Wrap(err, "creating assignment")
}

// ListForClass returns the active assignments of a class visible to the requester.
func (svc *Service) ListForClass(ctx context.Context, requester user.User, classID string) ([]Assignment, error) {
	if _, err := svc.classSvc.GetVisible(ctx, requester, classID); err != nil {
		return nil, err
	}
	asgs, err := svc.repo.QueryClassAssignments(ctx, classID)
	return asgs, errors.Wrap(err, "querying assignments")
}

// Get returns an active assignment if its class is visible to the requester.
func (svc *Service) Get(ctx context.Context, requester user.User, id string) (Assignment, error) {
	asg, err := svc.repo.GetAssignment(ctx, GetFilter{ID: id})
	if err != nil {
		return Assignment{}, err
	}
	if _, err = svc.classSvc.GetVisible(ctx, requester, asg.ClassID); err != nil {
		if core.IsNotFound(err) {
			return Assignment{}, ErrNotFound
		}
		return Assignment{}, err
	}
	return asg, nil
}

// GetOwned is an ownership-scoped lookup on the class teacher.
func (svc *Service) GetOwned(ctx context.Context, id, teacherID string) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, GetFilter{ID: id, TeacherID: teacherID})
}

func (svc *Service) Update(ctx context.Context, id, teacherID string, ua UpdateAssignment) (Assignment, error) {
	asg, err := svc.GetOwned(ctx, id, teacherID)
	if err != nil {
		return Assignment{}, err
	}

	now := core.NowFunc()
	asg.Title = ua.Title
	asg.Description = ua.Description
	asg.Deadline = utcPtr(ua.Deadline)
	asg.UpdatedAt = now
	asg.Competencies = newCompetencies(ua.Competencies, now)
	asg, err = svc.repo.UpdateAssignment(ctx, asg)
	return asg, errors.Wrap(err, "updating assignment")
}

func (svc *Service) SoftDelete(ctx context.Context, id, teacherID string) error {
	if _, err := svc.GetOwned(ctx, id, teacherID); err != nil {
		return err
	}
	now := core.NowFunc()
	return svc.repo.SetAssignmentDeletedAt(ctx, id, &now)
}

func newCompetencies(names []string, now time.Time) []Competency {
	comps := make([]Competency, 0, len(names))
	for _, name := range names {
		comps = append(comps, Competency{Name: name, CreatedAt: now})
	}
	return comps
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
