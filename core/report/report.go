package report

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/competency"
	"github.com/trezcool/cblms/core/user"
)

var ErrStudentNotFound = core.NewNotFoundError("student not found")

// CompetencyRow is a competency as seen by one student.
type CompetencyRow struct {
	StudentID       string
	ClassID         string
	ClassName       string
	CohortID        string // empty when the class has no cohort
	CohortName      string
	CohortLevel     int
	AssignmentID    string
	AssignmentTitle string
	CompetencyID    string
	CompetencyName  string
	// Status comes from the progress row; IN_PROGRESS when there is none.
	Status     core.MasteryStatus
	AchievedAt *time.Time
	// SubmissionStatus is empty when the student has not submitted the assignment.
	SubmissionStatus core.MasteryStatus
}

type Percentages struct {
	Mastered   float64 `json:"MASTERED"`
	Achieved   float64 `json:"ACHIEVED"`
	InProgress float64 `json:"IN_PROGRESS"`
}

func percentages(sc competency.StatusCounts) Percentages {
	total := sc.Total()
	return Percentages{
		Mastered:   percent(sc.Mastered, total),
		Achieved:   percent(sc.Achieved, total),
		InProgress: percent(sc.InProgress, total),
	}
}

// percent is rounded to one decimal.
func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)*1000/float64(total)) / 10
}

type (
	ClassProgress struct {
		ClassID      string                  `json:"classId"`
		ClassName    string                  `json:"className"`
		Assignments  int                     `json:"assignments"`
		Submitted    int                     `json:"submitted"`
		Submissions  competency.StatusCounts `json:"submissions"`
		Competencies competency.StatusCounts `json:"competencies"`
		Percentages  Percentages             `json:"percentages"`
	}

	StudentReport struct {
		Student     class.Member            `json:"student"`
		Classes     []ClassProgress         `json:"classes"`
		Overall     competency.StatusCounts `json:"overall"`
		Percentages Percentages             `json:"percentages"`
	}

	StudentProgress struct {
		Student      class.Member            `json:"student"`
		Submitted    int                     `json:"submitted"`
		Competencies competency.StatusCounts `json:"competencies"`
		Percentages  Percentages             `json:"percentages"`
	}

	CompetencySummary struct {
		CompetencyID    string                  `json:"competencyId"`
		Name            string                  `json:"name"`
		AssignmentID    string                  `json:"assignmentId"`
		AssignmentTitle string                  `json:"assignmentTitle"`
		Students        competency.StatusCounts `json:"students"`
	}

	ClassReport struct {
		ClassID      string                  `json:"classId"`
		ClassName    string                  `json:"className"`
		Assignments  int                     `json:"assignments"`
		Students     []StudentProgress       `json:"students"`
		Competencies []CompetencySummary     `json:"competencies"`
		Overall      competency.StatusCounts `json:"overall"`
		Percentages  Percentages             `json:"percentages"`
	}
)

type (
	Repository interface {
		// QueryStudentRows returns one row per competency of the active assignments
		// of the active classes the student is enrolled in.
		QueryStudentRows(ctx context.Context, studentID string) ([]CompetencyRow, error)
		// QueryClassRows returns one row per enrolled student and competency of the class' active assignments.
		QueryClassRows(ctx context.Context, classID string) ([]CompetencyRow, error)
	}

	ClassFinder interface {
		List(ctx context.Context, requester user.User) ([]class.Detail, error)
		Get(ctx context.Context, requester user.User, id string) (class.Detail, error)
	}

	UserFinder interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo     Repository
		classSvc ClassFinder
		userSvc  UserFinder
		mailSvc  core.EmailService // optional, transcripts cannot be emailed without it
	}
)

func NewService(repo Repository, classSvc ClassFinder, userSvc UserFinder, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, classSvc: classSvc, userSvc: userSvc, mailSvc: mailSvc}
}

// StudentReport sums up the progress of a student in every class they are enrolled in.
func (svc *Service) StudentReport(ctx context.Context, student user.User) (StudentReport, error) {
	details, err := svc.classSvc.List(ctx, student)
	if err != nil {
		return StudentReport{}, err
	}
	rows, err := svc.repo.QueryStudentRows(ctx, student.ID)
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "querying student competencies")
	}

	byClass := make(map[string]*competency.StatusCounts)
	for _, row := range rows {
		sc, ok := byClass[row.ClassID]
		if !ok {
			sc = new(competency.StatusCounts)
			byClass[row.ClassID] = sc
		}
		sc.Add(row.Status, 1)
	}

	rep := StudentReport{Student: class.MemberFromUser(student), Classes: make([]ClassProgress, 0, len(details))}
	for _, d := range details {
		cp := ClassProgress{ClassID: d.ID, ClassName: d.Name, Assignments: len(d.Assignments)}
		for _, asg := range d.Assignments {
			if asg.Submission != nil {
				cp.Submitted++
				cp.Submissions.Add(asg.Submission.Status, 1)
			}
		}
		if sc, ok := byClass[d.ID]; ok {
			cp.Competencies = *sc
		}
		cp.Percentages = percentages(cp.Competencies)

		rep.Overall.Mastered += cp.Competencies.Mastered
		rep.Overall.Achieved += cp.Competencies.Achieved
		rep.Overall.InProgress += cp.Competencies.InProgress
		rep.Classes = append(rep.Classes, cp)
	}
	rep.Percentages = percentages(rep.Overall)
	return rep, nil
}

// ClassReport sums up the progress of every student of a class, and of every competency across students.
func (svc *Service) ClassReport(ctx context.Context, teacher user.User, classID string) (ClassReport, error) {
	d, err := svc.classSvc.Get(ctx, teacher, classID)
	if err != nil {
		return ClassReport{}, err
	}
	rows, err := svc.repo.QueryClassRows(ctx, classID)
	if err != nil {
		return ClassReport{}, errors.Wrap(err, "querying class competencies")
	}

	type studentAgg struct {
		counts    competency.StatusCounts
		submitted map[string]struct{}
	}
	students := make(map[string]*studentAgg, len(d.Students))
	comps := make(map[string]*CompetencySummary)
	compOrder := make([]string, 0)
	rep := ClassReport{ClassID: d.ID, ClassName: d.Name, Assignments: len(d.Assignments)}

	for _, row := range rows {
		agg, ok := students[row.StudentID]
		if !ok {
			agg = &studentAgg{submitted: make(map[string]struct{})}
			students[row.StudentID] = agg
		}
		agg.counts.Add(row.Status, 1)
		if row.SubmissionStatus != "" {
			agg.submitted[row.AssignmentID] = struct{}{}
		}

		cs, ok := comps[row.CompetencyID]
		if !ok {
			cs = &CompetencySummary{
				CompetencyID:    row.CompetencyID,
				Name:            row.CompetencyName,
				AssignmentID:    row.AssignmentID,
				AssignmentTitle: row.AssignmentTitle,
			}
			comps[row.CompetencyID] = cs
			compOrder = append(compOrder, row.CompetencyID)
		}
		cs.Students.Add(row.Status, 1)
		rep.Overall.Add(row.Status, 1)
	}

	rep.Students = make([]StudentProgress, 0, len(d.Students))
	for _, m := range d.Students {
		sp := StudentProgress{Student: m}
		if agg, ok := students[m.ID]; ok {
			sp.Submitted = len(agg.submitted)
			sp.Competencies = agg.counts
		}
		sp.Percentages = percentages(sp.Competencies)
		rep.Students = append(rep.Students, sp)
	}

	rep.Competencies = make([]CompetencySummary, 0, len(compOrder))
	for _, id := range compOrder {
		rep.Competencies = append(rep.Competencies, *comps[id])
	}
	sort.SliceStable(rep.Competencies, func(i, j int) bool {
		ci, cj := rep.Competencies[i], rep.Competencies[j]
		if ci.AssignmentTitle != cj.AssignmentTitle {
			return ci.AssignmentTitle < cj.AssignmentTitle
		}
		return ci.Name < cj.Name
	})
	rep.Percentages = percentages(rep.Overall)
	return rep, nil
}
