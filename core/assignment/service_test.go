package assignment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/user"
	inmemdb "github.com/trezcool/cblms/storage/database/inmem"
	"github.com/trezcool/cblms/testutil"
)

func competencyNames(asg assignment.Assignment) []string {
	names := make([]string, 0, len(asg.Competencies))
	for _, c := range asg.Competencies {
		names = append(names, c.Name)
	}
	return names
}

func TestNewAssignment_Clean(t *testing.T) {
	na := assignment.NewAssignment{
		ClassID:      " " + testutil.MissingID + " ",
		Title:        "  Loops  ",
		Competencies: []string{" Iteration", "Recursion", "Iteration ", "  "},
	}
	na.Clean()

	assert.Equal(t, testutil.MissingID, na.ClassID)
	assert.Equal(t, "Loops", na.Title)
	assert.Equal(t, []string{"Iteration", "Recursion", ""}, na.Competencies)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	repos := testutil.NewInmemRepos(inmemdb.Open())
	svcs := testutil.NewServices(repos, nil)

	teacher := testutil.CreateUser(t, repos.User, "Ada", "ada@cblms.io", user.RoleTeacher)
	other := testutil.CreateUser(t, repos.User, "Grace", "grace@cblms.io", user.RoleTeacher)
	cls := testutil.CreateClass(t, repos.Class, teacher.ID, "CS101", "")

	deadline := time.Date(2030, 1, 2, 15, 0, 0, 0, time.FixedZone("WAT", 3600))
	na := assignment.NewAssignment{
		ClassID:      cls.ID,
		Title:        "Loops",
		Deadline:     &deadline,
		Competencies: []string{"Iteration", "Recursion"},
	}

	_, err := svcs.Assignment.Create(ctx, other.ID, na)
	assert.Equal(t, class.ErrNotFound, err)

	asg, err := svcs.Assignment.Create(ctx, teacher.ID, na)
	require.NoError(t, err)
	assert.Equal(t, cls.ID, asg.ClassID)
	assert.Equal(t, []string{"Iteration", "Recursion"}, competencyNames(asg))
	for _, c := range asg.Competencies {
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, asg.ID, c.AssignmentID)
	}
	if assert.NotNil(t, asg.Deadline) {
		assert.Equal(t, time.UTC, asg.Deadline.Location())
		assert.True(t, deadline.Equal(*asg.Deadline))
	}
}

func TestService_visibility(t *testing.T) {
	ctx := context.Background()
	repos := testutil.NewInmemRepos(inmemdb.Open())
	svcs := testutil.NewServices(repos, nil)

	teacher := testutil.CreateUser(t, repos.User, "Ada", "ada@cblms.io", user.RoleTeacher)
	other := testutil.CreateUser(t, repos.User, "Grace", "grace@cblms.io", user.RoleTeacher)
	student := testutil.CreateUser(t, repos.User, "Alan", "alan@cblms.io", user.RoleStudent)
	outsider := testutil.CreateUser(t, repos.User, "Edsger", "edsger@cblms.io", user.RoleStudent)

	cls := testutil.CreateClass(t, repos.Class, teacher.ID, "CS101", "", student.ID)
	first := testutil.CreateAssignment(t, repos.Assignment, cls.ID, "Loops", "Iteration")
	second := testutil.CreateAssignment(t, repos.Assignment, cls.ID, "Functions", "Recursion")

	t.Run("newest first", func(t *testing.T) {
		asgs, err := svcs.Assignment.ListForClass(ctx, student, cls.ID)
		require.NoError(t, err)
		if assert.Len(t, asgs, 2) {
			assert.Equal(t, second.ID, asgs[0].ID)
			assert.Equal(t, first.ID, asgs[1].ID)
		}
	})

	t.Run("not visible", func(t *testing.T) {
		_, err := svcs.Assignment.ListForClass(ctx, outsider, cls.ID)
		assert.Equal(t, class.ErrNotFound, err)
		_, err = svcs.Assignment.Get(ctx, outsider, first.ID)
		assert.Equal(t, assignment.ErrNotFound, err)
		_, err = svcs.Assignment.Get(ctx, other, first.ID)
		assert.Equal(t, assignment.ErrNotFound, err)
		assert.Equal(t, assignment.ErrNotFound, svcs.Assignment.SoftDelete(ctx, first.ID, other.ID))
	})

	t.Run("soft deleted", func(t *testing.T) {
		require.NoError(t, svcs.Assignment.SoftDelete(ctx, first.ID, teacher.ID))
		_, err := svcs.Assignment.Get(ctx, student, first.ID)
		assert.Equal(t, assignment.ErrNotFound, err)

		asgs, err := svcs.Assignment.ListForClass(ctx, teacher, cls.ID)
		require.NoError(t, err)
		if assert.Len(t, asgs, 1) {
			assert.Equal(t, second.ID, asgs[0].ID)
		}
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	repos := testutil.NewInmemRepos(inmemdb.Open())
	svcs := testutil.NewServices(repos, nil)

	teacher := testutil.CreateUser(t, repos.User, "Ada", "ada@cblms.io", user.RoleTeacher)
	student := testutil.CreateUser(t, repos.User, "Alan", "alan@cblms.io", user.RoleStudent)
	cls := testutil.CreateClass(t, repos.Class, teacher.ID, "CS101", "", student.ID)
	asg := testutil.CreateAssignment(t, repos.Assignment, cls.ID, "Loops", "Iteration", "Recursion")
	testutil.Submit(t, repos.Submission, student.ID, asg, core.StatusAchieved)

	progress, err := svcs.Competency.Progress(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, progress, 2)

	updated, err := svcs.Assignment.Update(ctx, asg.ID, teacher.ID, assignment.UpdateAssignment{
		Title:        "Loops & functions",
		Competencies: []string{"Closures"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Loops & functions", updated.Title)
	assert.Equal(t, []string{"Closures"}, competencyNames(updated))

	progress, err = svcs.Competency.Progress(ctx, student.ID)
	require.NoError(t, err)
	assert.Empty(t, progress, "progress of replaced competencies must be removed")
}
