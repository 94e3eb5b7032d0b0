package trash

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/class"
)

// Kind is the type of a soft-deleted item.
type Kind string

const (
	KindClass      Kind = "class"
	KindAssignment Kind = "assignment"
)

var ErrUnknownKind = core.NewNotFoundError("unknown trash item type")

func (k Kind) IsValid() bool {
	return k == KindClass || k == KindAssignment
}

type Trash struct {
	Classes     []class.Class           `json:"classes"`
	Assignments []assignment.Assignment `json:"assignments"`
}

type Service struct {
	classRepo      class.Repository
	assignmentRepo assignment.Repository
}

func NewService(classRepo class.Repository, assignmentRepo assignment.Repository) *Service {
	return &Service{classRepo: classRepo, assignmentRepo: assignmentRepo}
}

// List returns the soft-deleted classes and assignments owned by the teacher.
func (svc *Service) List(ctx context.Context, teacherID string) (Trash, error) {
	classes, err := svc.classRepo.QueryDeletedClasses(ctx, teacherID)
	if err != nil {
		return Trash{}, errors.Wrap(err, "querying deleted classes")
	}
	asgs, err := svc.assignmentRepo.QueryDeletedAssignments(ctx, teacherID)
	if err != nil {
		return Trash{}, errors.Wrap(err, "querying deleted assignments")
	}
	return Trash{Classes: classes, Assignments: asgs}, nil
}

// Restore clears the deletion mark of an item that is owned by the teacher and currently deleted.
func (svc *Service) Restore(ctx context.Context, kind Kind, id, teacherID string) error {
	if err := svc.getDeleted(ctx, kind, id, teacherID); err != nil {
		return err
	}
	switch kind {
	case KindClass:
		return svc.classRepo.SetClassDeletedAt(ctx, id, nil)
	default:
		return svc.assignmentRepo.SetAssignmentDeletedAt(ctx, id, nil)
	}
}

// Purge permanently deletes an item that is owned by the teacher and currently deleted, with its dependents.
func (svc *Service) Purge(ctx context.Context, kind Kind, id, teacherID string) error {
	if err := svc.getDeleted(ctx, kind, id, teacherID); err != nil {
		return err
	}
	switch kind {
	case KindClass:
		return svc.classRepo.DeleteClass(ctx, id)
	default:
		return svc.assignmentRepo.DeleteAssignment(ctx, id)
	}
}

func (svc *Service) getDeleted(ctx context.Context, kind Kind, id, teacherID string) error {
	var err error
	switch kind {
	case KindClass:
		_, err = svc.classRepo.GetClass(ctx, class.GetFilter{ID: id, TeacherID: teacherID, Deleted: true})
	case KindAssignment:
		_, err = svc.assignmentRepo.GetAssignment(ctx, assignment.GetFilter{ID: id, TeacherID: teacherID, Deleted: true})
	default:
		return ErrUnknownKind
	}
	return err
}
