package submission_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/submission"
	"github.com/trezcool/cblms/core/user"
	emailsvc "github.com/trezcool/cblms/services/email"
	inmemdb "github.com/trezcool/cblms/storage/database/inmem"
	"github.com/trezcool/cblms/testutil"
)

type fixture struct {
	svcs     testutil.Services
	teacher  user.User
	other    user.User
	student  user.User
	outsider user.User
	asg      assignment.Assignment
}

func setup(t *testing.T) fixture {
	t.Helper()
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(logger)
	emailsvc.ResetSentMessages()

	repos := testutil.NewInmemRepos(inmemdb.Open())
	f := fixture{
		svcs:     testutil.NewServices(repos, emailsvc.NewConsoleServiceMock(conf, logger)),
		teacher:  testutil.CreateUser(t, repos.User, "Ada", "ada@cblms.io", user.RoleTeacher),
		other:    testutil.CreateUser(t, repos.User, "Grace", "grace@cblms.io", user.RoleTeacher),
		student:  testutil.CreateUser(t, repos.User, "Alan", "alan@cblms.io", user.RoleStudent),
		outsider: testutil.CreateUser(t, repos.User, "Edsger", "edsger@cblms.io", user.RoleStudent),
	}
	cls := testutil.CreateClass(t, repos.Class, f.teacher.ID, "CS101", "", f.student.ID)
	f.asg = testutil.CreateAssignment(t, repos.Assignment, cls.ID, "Loops", "Iteration", "Recursion")
	return f
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, _, err := f.svcs.Submission.Submit(ctx, f.outsider, submission.NewSubmission{AssignmentID: f.asg.ID, Content: "hi"})
	assert.Equal(t, assignment.ErrNotFound, err)

	sub, created, err := f.svcs.Submission.Submit(ctx, f.student, submission.NewSubmission{AssignmentID: f.asg.ID, Content: "v1"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, core.StatusInProgress, sub.Status)
	assert.Equal(t, "Loops", sub.AssignmentTitle)

	_, err = f.svcs.Submission.Review(ctx, sub.ID, f.teacher.ID, submission.Review{Status: core.StatusMastered})
	require.NoError(t, err)

	resub, created, err := f.svcs.Submission.Submit(ctx, f.student, submission.NewSubmission{AssignmentID: f.asg.ID, Content: "v2"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, sub.ID, resub.ID)
	assert.Equal(t, "v2", resub.Content)
	assert.Equal(t, core.StatusInProgress, resub.Status, "resubmission resets the status")
	assert.False(t, resub.SubmittedAt.Before(sub.SubmittedAt))

	subs, err := f.svcs.Submission.ListMine(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestService_Review(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	sub, _, err := f.svcs.Submission.Submit(ctx, f.student, submission.NewSubmission{AssignmentID: f.asg.ID, Content: "v1"})
	require.NoError(t, err)

	t.Run("not the owner", func(t *testing.T) {
		_, err := f.svcs.Submission.Review(ctx, sub.ID, f.other.ID, submission.Review{Status: core.StatusAchieved})
		assert.Equal(t, submission.ErrNotFound, err)
		_, err = f.svcs.Submission.ListForAssignment(ctx, f.asg.ID, f.other.ID)
		assert.Equal(t, assignment.ErrNotFound, err)
		assert.Empty(t, emailsvc.LastSentMessages())
	})

	t.Run("achieved", func(t *testing.T) {
		reviewed, err := f.svcs.Submission.Review(ctx, sub.ID, f.teacher.ID, submission.Review{
			Status:   core.StatusAchieved,
			Feedback: "Nice",
		})
		require.NoError(t, err)
		assert.Equal(t, core.StatusAchieved, reviewed.Status)
		assert.Equal(t, "Nice", reviewed.Feedback)
		assert.NotNil(t, reviewed.ReviewedAt)

		progress, err := f.svcs.Competency.Progress(ctx, f.student.ID)
		require.NoError(t, err)
		require.Len(t, progress, 2)
		for _, p := range progress {
			assert.Equal(t, core.StatusAchieved, p.Status)
			assert.NotNil(t, p.AchievedAt)
		}

		sent := emailsvc.LastSentMessages()
		if assert.Len(t, sent, 1) {
			assert.Equal(t, "alan@cblms.io", sent[0].To[0].Address)
			assert.Contains(t, sent[0].TextContent, "ACHIEVED")
		}
	})

	t.Run("back to in progress", func(t *testing.T) {
		_, err := f.svcs.Submission.Review(ctx, sub.ID, f.teacher.ID, submission.Review{Status: core.StatusInProgress})
		require.NoError(t, err)

		progress, err := f.svcs.Competency.Progress(ctx, f.student.ID)
		require.NoError(t, err)
		for _, p := range progress {
			assert.Equal(t, core.StatusInProgress, p.Status)
			assert.Nil(t, p.AchievedAt)
		}
	})

	t.Run("listed for the owner", func(t *testing.T) {
		subs, err := f.svcs.Submission.ListForAssignment(ctx, f.asg.ID, f.teacher.ID)
		require.NoError(t, err)
		if assert.Len(t, subs, 1) {
			assert.Equal(t, "Alan", subs[0].StudentName)
		}
	})

	t.Run("deleted students are not listed", func(t *testing.T) {
		require.NoError(t, f.svcs.User.Delete(ctx, f.student.ID, f.teacher.ID))
		subs, err := f.svcs.Submission.ListForAssignment(ctx, f.asg.ID, f.teacher.ID)
		require.NoError(t, err)
		assert.Empty(t, subs)
	})
}
