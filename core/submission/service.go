package submission

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/user"
)

var ErrNotFound = core.NewNotFoundError("submission not found")

type (
	Repository interface {
		GetSubmission(ctx context.Context, filter GetFilter) (Submission, error)
		// UpsertSubmission creates the submission of a (student, assignment) pair or resubmits it:
		// content is replaced, status goes back to IN_PROGRESS and submitted_at is refreshed.
		UpsertSubmission(ctx context.Context, sub Submission) (s Submission, created bool, err error)
		// ReviewSubmission saves the review and upserts the student's progress on every
		// given competency in the same transaction.
		ReviewSubmission(ctx context.Context, sub Submission, competencyIDs []string) (Submission, error)
		// QueryAssignmentSubmissions leaves out the submissions of deleted students.
		QueryAssignmentSubmissions(ctx context.Context, assignmentID string) ([]Submission, error)
		// QueryStudentSubmissions only returns submissions to active assignments of active classes.
		QueryStudentSubmissions(ctx context.Context, studentID string) ([]Submission, error)
	}

	AssignmentFinder interface {
		Get(ctx context.Context, requester user.User, id string) (assignment.Assignment, error)
		GetOwned(ctx context.Context, id, teacherID string) (assignment.Assignment, error)
	}

	UserFinder interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo          Repository
		assignmentSvc AssignmentFinder
		userSvc       UserFinder
		mailSvc       core.EmailService
	}
)

func NewService(repo Repository, assignmentSvc AssignmentFinder, userSvc UserFinder, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, assignmentSvc: assignmentSvc, userSvc: userSvc, mailSvc: mailSvc}
}

// Submit upserts the student's submission. created reports whether a new row was inserted.
func (svc *Service) Submit(ctx context.Context, student user.User, ns NewSubmission) (Submission, bool, error) {
	asg, err := svc.assignmentSvc.Get(ctx, student, ns.AssignmentID)
	if err != nil {
		return Submission{}, false, err
	}

	now := core.NowFunc()
	sub, created, err := svc.repo.UpsertSubmission(ctx, Submission{
		StudentID:    student.ID,
		AssignmentID: asg.ID,
		Content:      ns.Content,
		Status:       core.StatusInProgress,
		SubmittedAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Submission{}, false, errors.Wrap(err, "upserting submission")
	}
	sub.AssignmentTitle = asg.Title
	return sub, created, nil
}

// Review sets the status of a submission directly, with no ordering between statuses.
// Only the teacher owning the assignment's class may review it.
func (svc *Service) Review(ctx context.Context, id, teacherID string, r Review) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, GetFilter{ID: id})
	if err != nil {
		return Submission{}, err
	}
	asg, err := svc.assignmentSvc.GetOwned(ctx, sub.AssignmentID, teacherID)
	if err != nil {
		if core.IsNotFound(err) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, err
	}

	now := core.NowFunc()
	sub.Status = r.Status
	sub.Feedback = r.Feedback
	sub.ReviewedAt = &now
	sub.UpdatedAt = now
	sub, err = svc.repo.ReviewSubmission(ctx, sub, asg.CompetencyIDs())
	if err != nil {
		return Submission{}, errors.Wrap(err, "reviewing submission")
	}
	sub.AssignmentTitle = asg.Title

	svc.notifyStudent(ctx, sub)
	return sub, nil
}

func (svc *Service) ListForAssignment(ctx context.Context, assignmentID, teacherID string) ([]Submission, error) {
	if _, err := svc.assignmentSvc.GetOwned(ctx, assignmentID, teacherID); err != nil {
		return nil, err
	}
	subs, err := svc.repo.QueryAssignmentSubmissions(ctx, assignmentID)
	return subs, errors.Wrap(err, "querying submissions")
}

func (svc *Service) ListMine(ctx context.Context, studentID string) ([]Submission, error) {
	subs, err := svc.repo.QueryStudentSubmissions(ctx, studentID)
	return subs, errors.Wrap(err, "querying submissions")
}

func (svc *Service) notifyStudent(ctx context.Context, sub Submission) {
	if svc.mailSvc == nil {
		return
	}
	student, err := svc.userSvc.GetByID(ctx, sub.StudentID)
	if err != nil {
		return // deleted students are not notified
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      "Your submission has been reviewed",
		TemplateName: "submission_reviewed",
		TemplateData: map[string]interface{}{
			"StudentName":     student.Name,
			"AssignmentID":    sub.AssignmentID,
			"AssignmentTitle": sub.AssignmentTitle,
			"Status":          string(sub.Status),
			"Feedback":        sub.Feedback,
		},
	})
}
