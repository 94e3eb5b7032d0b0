package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) QueryStudentRows(_ context.Context, studentID string) ([]report.CompetencyRow, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := make([]report.CompetencyRow, 0)
	for _, asg := range repo.db.reachableAssignments(studentID) {
		cls, _ := repo.db.classes.get(asg.ClassID)
		rows = append(rows, repo.rows(cls, asg, studentID)...)
	}
	return rows, nil
}

func (repo *reportRepository) QueryClassRows(_ context.Context, classID string) ([]report.CompetencyRow, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cls, ok := repo.db.classes.get(classID)
	if !ok || cls.DeletedAt != nil {
		return nil, class.ErrNotFound
	}

	studentIDs := make([]string, 0, len(repo.db.enrollments[classID]))
	for id := range repo.db.enrollments[classID] {
		if _, ok := repo.db.activeUser(id); ok {
			studentIDs = append(studentIDs, id)
		}
	}
	sort.Strings(studentIDs)

	rows := make([]report.CompetencyRow, 0)
	for _, studentID := range studentIDs {
		for _, asg := range repo.db.activeAssignments(classID) {
			rows = append(rows, repo.rows(cls, asg, studentID)...)
		}
	}
	return rows, nil
}

// rows returns one row per competency of the assignment. Callers hold a lock.
func (repo *reportRepository) rows(cls *class.Class, asg *assignment.Assignment, studentID string) []report.CompetencyRow {
	base := report.CompetencyRow{
		StudentID:       studentID,
		ClassID:         cls.ID,
		ClassName:       cls.Name,
		AssignmentID:    asg.ID,
		AssignmentTitle: asg.Title,
	}
	if coh, ok := repo.db.cohorts.get(cls.CohortID); ok {
		base.CohortID = coh.ID
		base.CohortName = coh.Name
		base.CohortLevel = int(coh.Level)
	}
	if sub, ok := repo.db.findSubmission(studentID, asg.ID); ok {
		base.SubmissionStatus = sub.Status
	}

	comps := repo.db.assignmentCompetencies(asg.ID)
	rows := make([]report.CompetencyRow, 0, len(comps))
	for _, comp := range comps {
		row := base
		row.CompetencyID = comp.ID
		row.CompetencyName = comp.Name
		row.Status = core.StatusInProgress
		if prog, ok := repo.db.findProgress(comp.ID, studentID); ok {
			row.Status = prog.Status
			row.AchievedAt = copyTime(prog.AchievedAt)
		}
		rows = append(rows, row)
	}
	return rows
}
