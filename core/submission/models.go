package submission

import (
	"time"

	"github.com/trezcool/cblms/core"
)

type Submission struct {
	ID           string             `json:"id"`
	StudentID    string             `json:"studentId"`
	AssignmentID string             `json:"assignmentId"`
	Content      string             `json:"content"`
	Status       core.MasteryStatus `json:"status"`
	SubmittedAt  time.Time          `json:"submittedAt"`
	ReviewedAt   *time.Time         `json:"reviewedAt,omitempty"`
	Feedback     string             `json:"feedback"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`

	// set by listings
	StudentName     string `json:"studentName,omitempty"`
	StudentEmail    string `json:"studentEmail,omitempty"`
	AssignmentTitle string `json:"assignmentTitle,omitempty"`
}

type NewSubmission struct {
	AssignmentID string `json:"assignmentId" validate:"required,uuid"`
	Content      string `json:"content" validate:"required,notblank,max=100000"`
}

func (ns *NewSubmission) Clean() {
	ns.AssignmentID = core.CleanString(ns.AssignmentID)
}

type Review struct {
	Status   core.MasteryStatus `json:"status" validate:"required,oneof=IN_PROGRESS ACHIEVED MASTERED"`
	Feedback string             `json:"feedback" validate:"max=5000"`
}

func (r *Review) Clean() {
	r.Status = core.MasteryStatus(core.CleanString(string(r.Status)))
	r.Feedback = core.CleanString(r.Feedback)
}

type GetFilter struct {
	ID           string
	StudentID    string
	AssignmentID string
}
