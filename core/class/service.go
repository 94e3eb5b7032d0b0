package class

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/cohort"
	"github.com/trezcool/cblms/core/user"
)

var (
	ErrNotFound    = core.NewNotFoundError("class not found")
	ErrNotEnrolled = core.NewNotFoundError("student not enrolled in class")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class, studentIDs []string) (Class, error)
		GetClass(ctx context.Context, filter GetFilter) (Class, error)
		// QueryClassDetails returns active classes with their nested members and active assignments.
		// When filter.StudentID is set, each assignment carries that student's own submission.
		QueryClassDetails(ctx context.Context, filter QueryFilter) ([]Detail, error)
		IsEnrolled(ctx context.Context, classID, studentID string) (bool, error)
		// UpdateClass replaces the enrollment too when studentIDs is not nil.
		UpdateClass(ctx context.Context, cls Class, studentIDs []string) (Class, error)
		SetClassDeletedAt(ctx context.Context, id string, deletedAt *time.Time) error
		// DeleteClass removes the class along with its enrollments, assignments and their dependents.
		DeleteClass(ctx context.Context, id string) error
		EnrollStudents(ctx context.Context, classID string, studentIDs []string) error
		// UnenrollStudent returns ErrNotEnrolled when the student is not in the class.
		UnenrollStudent(ctx context.Context, classID, studentID string) error
		QueryDeletedClasses(ctx context.Context, teacherID string) ([]Class, error)
	}

	UserFinder interface {
		QueryByID(ctx context.Context, ids []string) ([]user.User, error)
	}

	CohortFinder interface {
		GetByID(ctx context.Context, id string) (cohort.Cohort, error)
	}

	Service struct {
		repo      Repository
		userSvc   UserFinder
		cohortSvc CohortFinder
	}
)

func NewService(repo Repository, userSvc UserFinder, cohortSvc CohortFinder) *Service {
	return &Service{repo: repo, userSvc: userSvc, cohortSvc: cohortSvc}
}

// List returns the active classes visible to the requester:
// their own for a teacher, the enrolled ones for a student and all of them for an admin.
func (svc *Service) List(ctx context.Context, requester user.User) ([]Detail, error) {
	var filter QueryFilter
	switch requester.Role {
	case user.RoleTeacher:
		filter.TeacherID = requester.ID
	case user.RoleStudent:
		filter.StudentID = requester.ID
	}
	details, err := svc.repo.QueryClassDetails(ctx, filter)
	return details, errors.Wrap(err, "querying classes")
}

// Get returns an active class if the requester can see it.
func (svc *Service) Get(ctx context.Context, requester user.User, id string) (Detail, error) {
	if _, err := svc.GetVisible(ctx, requester, id); err != nil {
		return Detail{}, err
	}

	filter := QueryFilter{ID: id}
	switch {
	case requester.IsAdmin(): // unscoped
	case requester.IsStudent():
		filter.StudentID = requester.ID
	case requester.IsTeacher():
		filter.TeacherID = requester.ID
	}
	details, err := svc.repo.QueryClassDetails(ctx, filter)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying classes")
	}
	if len(details) == 0 {
		return Detail{}, ErrNotFound
	}
	return details[0], nil
}

// GetVisible is an ownership-scoped lookup: a class the requester cannot see is not found.
func (svc *Service) GetVisible(ctx context.Context, requester user.User, id string) (Class, error) {
	switch requester.Role {
	case user.RoleTeacher:
		return svc.GetOwned(ctx, id, requester.ID)
	case user.RoleStudent:
		cls, err := svc.repo.GetClass(ctx, GetFilter{ID: id})
		if err != nil {
			return Class{}, err
		}
		enrolled, err := svc.repo.IsEnrolled(ctx, id, requester.ID)
		if err != nil {
			return Class{}, errors.Wrap(err, "checking enrollment")
		}
		if !enrolled {
			return Class{}, ErrNotFound
		}
		return cls, nil
	default:
		return svc.repo.GetClass(ctx, GetFilter{ID: id})
	}
}

func (svc *Service) GetOwned(ctx context.Context, id, teacherID string) (Class, error) {
	return svc.repo.GetClass(ctx, GetFilter{ID: id, TeacherID: teacherID})
}

func (svc *Service) Create(ctx context.Context, teacherID string, nc NewClass) (Class, error) {
	if err := svc.checkCohort(ctx, nc.CohortID); err != nil {
		return Class{}, err
	}
	if err := svc.checkStudents(ctx, nc.StudentIDs); err != nil {
		return Class{}, err
	}

	now := core.NowFunc()
	cls, err := svc.repo.CreateClass(ctx, Class{
		Name:        nc.Name,
		Description: nc.Description,
		TeacherID:   teacherID,
		CohortID:    nc.CohortID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nc.StudentIDs)
	return cls, errors.Wrap(err, "creating class")
}

func (svc *Service) Update(ctx context.Context, id, teacherID string, uc UpdateClass) (Class, error) {
	cls, err := svc.GetOwned(ctx, id, teacherID)
	if err != nil {
		return Class{}, err
	}
	if err = svc.checkCohort(ctx, uc.CohortID); err != nil {
		return Class{}, err
	}
	if err = svc.checkStudents(ctx, uc.StudentIDs); err != nil {
		return Class{}, err
	}

	cls.Name = uc.Name
	cls.Description = uc.Description
	cls.CohortID = uc.CohortID
	cls.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateClass(ctx, cls, uc.StudentIDs)
}

func (svc *Service) SoftDelete(ctx context.Context, id, teacherID string) error {
	if _, err := svc.GetOwned(ctx, id, teacherID); err != nil {
		return err
	}
	now := core.NowFunc()
	return svc.repo.SetClassDeletedAt(ctx, id, &now)
}

func (svc *Service) Enroll(ctx context.Context, id, teacherID string, e Enrollment) error {
	if _, err := svc.GetOwned(ctx, id, teacherID); err != nil {
		return err
	}
	if err := svc.checkStudents(ctx, e.StudentIDs); err != nil {
		return err
	}
	return svc.repo.EnrollStudents(ctx, id, e.StudentIDs)
}

func (svc *Service) Unenroll(ctx context.Context, id, teacherID, studentID string) error {
	if _, err := svc.GetOwned(ctx, id, teacherID); err != nil {
		return err
	}
	return svc.repo.UnenrollStudent(ctx, id, studentID)
}

func (svc *Service) checkCohort(ctx context.Context, cohortID string) error {
	if cohortID == "" {
		return nil
	}
	if _, err := svc.cohortSvc.GetByID(ctx, cohortID); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(err, core.FieldError{Field: "cohortId", Error: err.Error()})
		}
		return errors.Wrap(err, "finding cohort")
	}
	return nil
}

// checkStudents ensures that every id belongs to an active STUDENT.
func (svc *Service) checkStudents(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	users, err := svc.userSvc.QueryByID(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "finding students")
	}
	found := make(map[string]bool, len(users))
	for _, usr := range users {
		found[usr.ID] = usr.IsStudent()
	}
	for _, id := range ids {
		if !found[id] {
			msg := fmt.Sprintf("%s is not a student", id)
			return core.NewValidationError(errors.New(msg), core.FieldError{Field: "studentIds", Error: msg})
		}
	}
	return nil
}
