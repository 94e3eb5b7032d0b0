package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/cblms/core/competency"
)

type competencyRepository struct {
	db *DB
}

var _ competency.Repository = (*competencyRepository)(nil) // interface compliance check

func NewCompetencyRepository(db *DB) competency.Repository {
	return &competencyRepository{db: db}
}

func (repo *competencyRepository) StudentSnapshot(_ context.Context, studentID string) (competency.Snapshot, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	snap := competency.Snapshot{Reachable: make([]string, 0)}
	for _, asg := range repo.db.reachableAssignments(studentID) {
		ids := make([]string, 0)
		for _, comp := range repo.db.assignmentCompetencies(asg.ID) {
			ids = append(ids, comp.ID)
		}
		snap.Reachable = append(snap.Reachable, ids...)

		if sub, ok := repo.db.findSubmission(studentID, asg.ID); ok {
			snap.Submissions = append(snap.Submissions, competency.SubmittedCompetencies{Status: sub.Status, CompetencyIDs: ids})
		}
	}
	return snap, nil
}

func (repo *competencyRepository) QueryStudentProgress(_ context.Context, studentID string) ([]competency.Progress, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	progs := make([]competency.Progress, 0)
	for _, asg := range repo.db.reachableAssignments(studentID) {
		cls, _ := repo.db.classes.get(asg.ClassID)
		for _, comp := range repo.db.assignmentCompetencies(asg.ID) {
			row, ok := repo.db.findProgress(comp.ID, studentID)
			if !ok {
				continue
			}
			prog := *row
			prog.AchievedAt = copyTime(row.AchievedAt)
			prog.CompetencyName = comp.Name
			prog.AssignmentID = asg.ID
			prog.AssignmentTitle = asg.Title
			prog.ClassID = cls.ID
			prog.ClassName = cls.Name
			progs = append(progs, prog)
		}
	}

	sort.SliceStable(progs, func(i, j int) bool { return progs[i].UpdatedAt.After(progs[j].UpdatedAt) })
	return progs, nil
}
