package assignment

import (
	"time"

	"github.com/trezcool/cblms/core"
)

type Competency struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	AssignmentID string    `json:"assignmentId"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Assignment struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	ClassID      string       `json:"classId"`
	ClassName    string       `json:"className,omitempty"`
	Deadline     *time.Time   `json:"deadline,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	DeletedAt    *time.Time   `json:"deletedAt,omitempty"`
	Competencies []Competency `json:"competencies"`
}

func (a *Assignment) IsDeleted() bool { return a.DeletedAt != nil }

func (a *Assignment) CompetencyIDs() []string {
	ids := make([]string, 0, len(a.Competencies))
	for _, c := range a.Competencies {
		ids = append(ids, c.ID)
	}
	return ids
}

type NewAssignment struct {
	ClassID      string     `json:"classId" validate:"required,uuid"`
	Title        string     `json:"title" validate:"required,notblank,max=200"`
	Description  string     `json:"description" validate:"max=20000"`
	Deadline     *time.Time `json:"deadline"`
	Competencies []string   `json:"competencies" validate:"required,min=1,dive,notblank,max=120"`
}

func (na *NewAssignment) Clean() {
	na.ClassID = core.CleanString(na.ClassID)
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.Competencies = cleanCompetencyNames(na.Competencies)
}

// UpdateAssignment fully replaces an Assignment, competencies included.
type UpdateAssignment struct {
	Title        string     `json:"title" validate:"required,notblank,max=200"`
	Description  string     `json:"description" validate:"max=20000"`
	Deadline     *time.Time `json:"deadline"`
	Competencies []string   `json:"competencies" validate:"required,min=1,dive,notblank,max=120"`
}

func (ua *UpdateAssignment) Clean() {
	ua.Title = core.CleanString(ua.Title)
	ua.Description = core.CleanString(ua.Description)
	ua.Competencies = cleanCompetencyNames(ua.Competencies)
}

// cleanCompetencyNames trims names and drops duplicates. Blank names are kept for the validator to report.
func cleanCompetencyNames(names []string) []string {
	if names == nil {
		return nil
	}
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		cleaned = append(cleaned, core.CleanString(n))
	}
	return core.UniqueStrings(cleaned)
}

// GetFilter looks an assignment up by ID.
// By default only active assignments of active classes match; Deleted selects soft-deleted
// assignments regardless of their class state. TeacherID scopes the lookup to the class owner.
type GetFilter struct {
	ID        string
	TeacherID string
	Deleted   bool
}
