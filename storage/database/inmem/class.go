package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/submission"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class, studentIDs []string) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls.ID = newID()
	created := *repo.db.classes.insert(cls.ID, cls)
	repo.enroll(cls.ID, studentIDs, cls.CreatedAt)
	return created, nil
}

func (repo *classRepository) GetClass(_ context.Context, filter class.GetFilter) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cls, ok := repo.get(filter)
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	return *cls, nil
}

func (repo *classRepository) get(filter class.GetFilter) (*class.Class, bool) {
	cls, ok := repo.db.classes.get(filter.ID)
	if !ok || (cls.DeletedAt != nil) != filter.Deleted {
		return nil, false
	}
	if filter.TeacherID != "" && cls.TeacherID != filter.TeacherID {
		return nil, false
	}
	return cls, true
}

func (repo *classRepository) QueryClassDetails(_ context.Context, filter class.QueryFilter) ([]class.Detail, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := repo.db.classes.all(func(c *class.Class) bool {
		switch {
		case c.DeletedAt != nil:
			return false
		case filter.ID != "" && c.ID != filter.ID:
			return false
		case filter.TeacherID != "" && c.TeacherID != filter.TeacherID:
			return false
		case filter.StudentID != "" && !repo.db.isEnrolled(c.ID, filter.StudentID):
			return false
		}
		return true
	})
	newestFirst(rows, func(c *class.Class) time.Time { return c.CreatedAt })

	details := make([]class.Detail, 0, len(rows))
	for _, cls := range rows {
		details = append(details, repo.detail(cls, filter.StudentID))
	}
	return details, nil
}

func (repo *classRepository) detail(cls *class.Class, studentID string) class.Detail {
	d := class.Detail{Class: *cls, Students: make([]class.Member, 0), Assignments: make([]class.AssignmentSummary, 0)}
	if teacher, ok := repo.db.users.get(cls.TeacherID); ok {
		d.Teacher = class.MemberFromUser(*teacher)
	}

	for id := range repo.db.enrollments[cls.ID] {
		if usr, ok := repo.db.activeUser(id); ok {
			d.Students = append(d.Students, class.MemberFromUser(*usr))
		}
	}
	sort.Slice(d.Students, func(i, j int) bool {
		ni, nj := strings.ToLower(d.Students[i].Name), strings.ToLower(d.Students[j].Name)
		if ni != nj {
			return ni < nj
		}
		return d.Students[i].ID < d.Students[j].ID
	})

	for _, asg := range repo.db.activeAssignments(cls.ID) {
		summary := class.AssignmentSummary{
			ID:              asg.ID,
			Title:           asg.Title,
			Deadline:        copyTime(asg.Deadline),
			CreatedAt:       asg.CreatedAt,
			CompetencyCount: len(repo.db.assignmentCompetencies(asg.ID)),
			SubmissionCount: len(repo.db.submissions.all(func(s *submission.Submission) bool { return s.AssignmentID == asg.ID })),
		}
		if studentID != "" {
			if sub, ok := repo.db.findSubmission(studentID, asg.ID); ok {
				summary.Submission = &class.SubmissionSummary{
					ID:          sub.ID,
					Status:      sub.Status,
					SubmittedAt: sub.SubmittedAt,
					ReviewedAt:  copyTime(sub.ReviewedAt),
					Feedback:    sub.Feedback,
				}
			}
		}
		d.Assignments = append(d.Assignments, summary)
	}
	return d
}

func (repo *classRepository) IsEnrolled(_ context.Context, classID, studentID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.isEnrolled(classID, studentID), nil
}

func (repo *classRepository) UpdateClass(_ context.Context, cls class.Class, studentIDs []string) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.classes.get(cls.ID)
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	orig.Name = cls.Name
	orig.Description = cls.Description
	orig.CohortID = cls.CohortID
	orig.UpdatedAt = cls.UpdatedAt

	if studentIDs != nil {
		kept := make(map[string]time.Time, len(studentIDs))
		for _, id := range studentIDs {
			if at, ok := repo.db.enrollments[cls.ID][id]; ok {
				kept[id] = at
			} else {
				kept[id] = cls.UpdatedAt
			}
		}
		repo.db.enrollments[cls.ID] = kept
	}
	return *orig, nil
}

func (repo *classRepository) SetClassDeletedAt(_ context.Context, id string, deletedAt *time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls, ok := repo.db.classes.get(id)
	if !ok {
		return class.ErrNotFound
	}
	cls.DeletedAt = copyTime(deletedAt)
	return nil
}

func (repo *classRepository) DeleteClass(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes.get(id); !ok {
		return class.ErrNotFound
	}
	for _, asg := range repo.db.assignments.all(func(a *assignment.Assignment) bool { return a.ClassID == id }) {
		repo.db.deleteAssignmentCascade(asg.ID)
	}
	delete(repo.db.enrollments, id)
	repo.db.classes.delete(id)
	return nil
}

func (repo *classRepository) EnrollStudents(_ context.Context, classID string, studentIDs []string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes.get(classID); !ok {
		return class.ErrNotFound
	}
	repo.enroll(classID, studentIDs, core.NowFunc())
	return nil
}

// enroll skips students already in the class. Callers hold the write lock.
func (repo *classRepository) enroll(classID string, studentIDs []string, at time.Time) {
	students, ok := repo.db.enrollments[classID]
	if !ok {
		students = make(map[string]time.Time, len(studentIDs))
		repo.db.enrollments[classID] = students
	}
	for _, id := range studentIDs {
		if _, ok := students[id]; !ok {
			students[id] = at
		}
	}
}

func (repo *classRepository) UnenrollStudent(_ context.Context, classID, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.db.isEnrolled(classID, studentID) {
		return class.ErrNotEnrolled
	}
	delete(repo.db.enrollments[classID], studentID)
	return nil
}

func (repo *classRepository) QueryDeletedClasses(_ context.Context, teacherID string) ([]class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := repo.db.classes.all(func(c *class.Class) bool { return c.DeletedAt != nil && c.TeacherID == teacherID })
	newestFirst(rows, func(c *class.Class) time.Time { return *c.DeletedAt })

	classes := make([]class.Class, 0, len(rows))
	for _, cls := range rows {
		classes = append(classes, *cls)
	}
	return classes, nil
}
