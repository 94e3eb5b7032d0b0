package report

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/cohort"
	"github.com/trezcool/cblms/core/competency"
	"github.com/trezcool/cblms/core/user"
)

const unassignedCohort = "Unassigned"

type (
	// TranscriptEntry carries the current progress of a competency, so a later review can lower it.
	TranscriptEntry struct {
		CompetencyID    string             `json:"competencyId"`
		Competency      string             `json:"competency"`
		AssignmentTitle string             `json:"assignmentTitle"`
		Status          core.MasteryStatus `json:"status"`
		AchievedAt      *time.Time         `json:"achievedAt,omitempty"`
	}

	TranscriptClass struct {
		ClassID   string            `json:"classId"`
		ClassName string            `json:"className"`
		Entries   []TranscriptEntry `json:"entries"`
	}

	TranscriptCohort struct {
		CohortID  string            `json:"cohortId,omitempty"`
		Name      string            `json:"name"`
		Level     int               `json:"level,omitempty"`
		LevelName string            `json:"levelName,omitempty"`
		Classes   []TranscriptClass `json:"classes"`
	}

	// Transcript is the mastery record of a student, grouped by cohort then class.
	Transcript struct {
		Student     class.Member            `json:"student"`
		GeneratedAt time.Time               `json:"generatedAt"`
		Cohorts     []TranscriptCohort      `json:"cohorts"`
		Summary     competency.StatusCounts `json:"summary"`
		Percentages Percentages             `json:"percentages"`
	}
)

// TranscriptFor builds the transcript of a student by id. Non-student users are not found.
func (svc *Service) TranscriptFor(ctx context.Context, studentID string) (Transcript, error) {
	usr, err := svc.student(ctx, studentID)
	if err != nil {
		return Transcript{}, err
	}
	return svc.Transcript(ctx, usr)
}

func (svc *Service) student(ctx context.Context, id string) (user.User, error) {
	usr, err := svc.userSvc.GetByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, ErrStudentNotFound
		}
		return user.User{}, err
	}
	if !usr.IsStudent() {
		return user.User{}, ErrStudentNotFound
	}
	return usr, nil
}

func (svc *Service) Transcript(ctx context.Context, student user.User) (Transcript, error) {
	rows, err := svc.repo.QueryStudentRows(ctx, student.ID)
	if err != nil {
		return Transcript{}, errors.Wrap(err, "querying student competencies")
	}
	return buildTranscript(student, rows, core.NowFunc()), nil
}

func buildTranscript(student user.User, rows []CompetencyRow, now time.Time) Transcript {
	rows = append([]CompetencyRow(nil), rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := rows[i], rows[j]
		// unassigned cohorts last
		if (ri.CohortID == "") != (rj.CohortID == "") {
			return rj.CohortID == ""
		}
		if ri.CohortLevel != rj.CohortLevel {
			return ri.CohortLevel < rj.CohortLevel
		}
		if ri.CohortName != rj.CohortName {
			return ri.CohortName < rj.CohortName
		}
		if ri.CohortID != rj.CohortID {
			return ri.CohortID < rj.CohortID
		}
		if ri.ClassName != rj.ClassName {
			return ri.ClassName < rj.ClassName
		}
		if ri.ClassID != rj.ClassID {
			return ri.ClassID < rj.ClassID
		}
		if ri.AssignmentTitle != rj.AssignmentTitle {
			return ri.AssignmentTitle < rj.AssignmentTitle
		}
		return ri.CompetencyName < rj.CompetencyName
	})

	tr := Transcript{
		Student:     class.MemberFromUser(student),
		GeneratedAt: now,
		Cohorts:     make([]TranscriptCohort, 0),
	}
	var coh *TranscriptCohort
	var cls *TranscriptClass
	for _, row := range rows {
		if coh == nil || coh.CohortID != row.CohortID {
			tc := TranscriptCohort{CohortID: row.CohortID, Name: row.CohortName, Level: row.CohortLevel}
			if row.CohortID == "" {
				tc.Name = unassignedCohort
			} else {
				tc.LevelName = cohort.Level(row.CohortLevel).String()
			}
			tr.Cohorts = append(tr.Cohorts, tc)
			coh = &tr.Cohorts[len(tr.Cohorts)-1]
			cls = nil
		}
		if cls == nil || cls.ClassID != row.ClassID {
			coh.Classes = append(coh.Classes, TranscriptClass{ClassID: row.ClassID, ClassName: row.ClassName})
			cls = &coh.Classes[len(coh.Classes)-1]
		}
		cls.Entries = append(cls.Entries, TranscriptEntry{
			CompetencyID:    row.CompetencyID,
			Competency:      row.CompetencyName,
			AssignmentTitle: row.AssignmentTitle,
			Status:          row.Status,
			AchievedAt:      row.AchievedAt,
		})
		tr.Summary.Add(row.Status, 1)
	}
	tr.Percentages = percentages(tr.Summary)
	return tr
}
