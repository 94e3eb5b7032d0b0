package class

import (
	"time"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/user"
)

type Class struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"` // rich text
	TeacherID   string     `json:"teacherId"`
	CohortID    string     `json:"cohortId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

func (c *Class) IsDeleted() bool { return c.DeletedAt != nil }

// Member is the public profile of a user as nested in class listings.
type Member struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

func MemberFromUser(usr user.User) Member {
	return Member{ID: usr.ID, Name: usr.Name, Email: usr.Email, PhotoURL: usr.PhotoURL}
}

type SubmissionSummary struct {
	ID          string             `json:"id"`
	Status      core.MasteryStatus `json:"status"`
	SubmittedAt time.Time          `json:"submittedAt"`
	ReviewedAt  *time.Time         `json:"reviewedAt,omitempty"`
	Feedback    string             `json:"feedback,omitempty"`
}

type AssignmentSummary struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompetencyCount int        `json:"competencyCount"`
	SubmissionCount int        `json:"submissionCount"`
	// Submission is the requesting student's own submission, if any.
	Submission *SubmissionSummary `json:"submission,omitempty"`
}

// Detail is a Class with its teacher, students and assignments nested.
type Detail struct {
	Class
	Teacher     Member              `json:"teacher"`
	Students    []Member            `json:"students"`
	Assignments []AssignmentSummary `json:"assignments"`
}

type NewClass struct {
	Name        string   `json:"name" validate:"required,notblank,max=120"`
	Description string   `json:"description" validate:"max=20000"`
	CohortID    string   `json:"cohortId" validate:"omitempty,uuid"`
	StudentIDs  []string `json:"studentIds" validate:"omitempty,dive,uuid"`
}

func (nc *NewClass) Clean() {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.CohortID = core.CleanString(nc.CohortID)
	if nc.StudentIDs != nil {
		nc.StudentIDs = core.UniqueStrings(core.CleanStrings(nc.StudentIDs))
	}
}

// UpdateClass fully replaces the mutable fields of a Class.
// The enrollment is only replaced when StudentIDs is provided.
type UpdateClass struct {
	Name        string   `json:"name" validate:"required,notblank,max=120"`
	Description string   `json:"description" validate:"max=20000"`
	CohortID    string   `json:"cohortId" validate:"omitempty,uuid"`
	StudentIDs  []string `json:"studentIds" validate:"omitempty,dive,uuid"`
}

func (uc *UpdateClass) Clean() {
	uc.Name = core.CleanString(uc.Name)
	uc.Description = core.CleanString(uc.Description)
	uc.CohortID = core.CleanString(uc.CohortID)
	if uc.StudentIDs != nil {
		uc.StudentIDs = core.UniqueStrings(core.CleanStrings(uc.StudentIDs))
	}
}

type Enrollment struct {
	StudentIDs []string `json:"studentIds" validate:"required,min=1,dive,uuid"`
}

func (e *Enrollment) Clean() {
	e.StudentIDs = core.UniqueStrings(core.CleanStrings(e.StudentIDs))
}

// GetFilter looks a class up by ID. TeacherID scopes the lookup to its owner.
// Deleted selects soft-deleted classes instead of active ones.
type GetFilter struct {
	ID        string
	TeacherID string
	Deleted   bool
}

// QueryFilter selects active classes. An empty filter selects all of them.
type QueryFilter struct {
	ID        string
	TeacherID string
	StudentID string
}
