package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/class"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

// load returns a copy of the row with its class name and competencies. Callers hold a lock.
func (repo *assignmentRepository) load(row *assignment.Assignment) assignment.Assignment {
	asg := *row
	asg.Deadline = copyTime(row.Deadline)
	asg.DeletedAt = copyTime(row.DeletedAt)
	if cls, ok := repo.db.classes.get(row.ClassID); ok {
		asg.ClassName = cls.Name
	}
	asg.Competencies = repo.db.assignmentCompetencies(row.ID)
	return asg
}

// insertCompetencies gives new ids to the competencies. Callers hold the write lock.
func (repo *assignmentRepository) insertCompetencies(asgID string, comps []assignment.Competency) {
	for _, comp := range comps {
		comp.ID = newID()
		comp.AssignmentID = asgID
		repo.db.competencies.insert(comp.ID, comp)
	}
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes.get(asg.ClassID); !ok {
		return assignment.Assignment{}, class.ErrNotFound
	}

	asg.ID = newID()
	comps := asg.Competencies
	asg.Competencies = nil
	row := repo.db.assignments.insert(asg.ID, asg)
	repo.insertCompetencies(asg.ID, comps)
	return repo.load(row), nil
}

func (repo *assignmentRepository) GetAssignment(_ context.Context, filter assignment.GetFilter) (assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	row, ok := repo.db.assignments.get(filter.ID)
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	cls, ok := repo.db.classes.get(row.ClassID)
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	if filter.Deleted {
		if row.DeletedAt == nil {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
	} else if row.DeletedAt != nil || cls.DeletedAt != nil {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	if filter.TeacherID != "" && cls.TeacherID != filter.TeacherID {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return repo.load(row), nil
}

func (repo *assignmentRepository) QueryClassAssignments(_ context.Context, classID string) ([]assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := repo.db.activeAssignments(classID)
	asgs := make([]assignment.Assignment, 0, len(rows))
	for _, row := range rows {
		asgs = append(asgs, repo.load(row))
	}
	return asgs, nil
}

func (repo *assignmentRepository) UpdateAssignment(_ context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.assignments.get(asg.ID)
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	row.Title = asg.Title
	row.Description = asg.Description
	row.Deadline = copyTime(asg.Deadline)
	row.UpdatedAt = asg.UpdatedAt

	for _, comp := range repo.db.competencies.all(func(c *assignment.Competency) bool { return c.AssignmentID == asg.ID }) {
		repo.db.deleteCompetencyCascade(comp.ID)
	}
	repo.insertCompetencies(asg.ID, asg.Competencies)
	return repo.load(row), nil
}

func (repo *assignmentRepository) SetAssignmentDeletedAt(_ context.Context, id string, deletedAt *time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.assignments.get(id)
	if !ok {
		return assignment.ErrNotFound
	}
	row.DeletedAt = copyTime(deletedAt)
	return nil
}

func (repo *assignmentRepository) DeleteAssignment(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.assignments.get(id); !ok {
		return assignment.ErrNotFound
	}
	repo.db.deleteAssignmentCascade(id)
	return nil
}

func (repo *assignmentRepository) QueryDeletedAssignments(_ context.Context, teacherID string) ([]assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := repo.db.assignments.all(func(a *assignment.Assignment) bool {
		if a.DeletedAt == nil {
			return false
		}
		cls, ok := repo.db.classes.get(a.ClassID)
		return ok && cls.TeacherID == teacherID
	})
	newestFirst(rows, func(a *assignment.Assignment) time.Time { return *a.DeletedAt })

	asgs := make([]assignment.Assignment, 0, len(rows))
	for _, row := range rows {
		asgs = append(asgs, repo.load(row))
	}
	return asgs, nil
}
