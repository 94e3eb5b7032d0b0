package trash_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/submission"
	"github.com/trezcool/cblms/core/trash"
	"github.com/trezcool/cblms/core/user"
	inmemdb "github.com/trezcool/cblms/storage/database/inmem"
	"github.com/trezcool/cblms/testutil"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	repos := testutil.NewInmemRepos(inmemdb.Open())
	svcs := testutil.NewServices(repos, nil)

	teacher := testutil.CreateUser(t, repos.User, "Ada", "ada@cblms.io", user.RoleTeacher)
	other := testutil.CreateUser(t, repos.User, "Grace", "grace@cblms.io", user.RoleTeacher)
	student := testutil.CreateUser(t, repos.User, "Alan", "alan@cblms.io", user.RoleStudent)

	cls := testutil.CreateClass(t, repos.Class, teacher.ID, "CS101", "", student.ID)
	asg := testutil.CreateAssignment(t, repos.Assignment, cls.ID, "Loops", "Iteration")
	kept := testutil.CreateAssignment(t, repos.Assignment, cls.ID, "Functions", "Recursion")
	sub := testutil.Submit(t, repos.Submission, student.ID, asg, core.StatusMastered)

	require.NoError(t, svcs.Assignment.SoftDelete(ctx, asg.ID, teacher.ID))

	t.Run("list", func(t *testing.T) {
		items, err := svcs.Trash.List(ctx, teacher.ID)
		require.NoError(t, err)
		assert.Empty(t, items.Classes)
		if assert.Len(t, items.Assignments, 1) {
			assert.Equal(t, asg.ID, items.Assignments[0].ID)
		}

		items, err = svcs.Trash.List(ctx, other.ID)
		require.NoError(t, err)
		assert.Empty(t, items.Classes)
		assert.Empty(t, items.Assignments)
	})

	t.Run("ownership and state", func(t *testing.T) {
		tests := []struct {
			name    string
			kind    trash.Kind
			id      string
			teacher string
			wantErr error
		}{
			{name: "unknown kind", kind: "cohort", id: asg.ID, teacher: teacher.ID, wantErr: trash.ErrUnknownKind},
			{name: "other teacher", kind: trash.KindAssignment, id: asg.ID, teacher: other.ID, wantErr: assignment.ErrNotFound},
			{name: "not deleted", kind: trash.KindAssignment, id: kept.ID, teacher: teacher.ID, wantErr: assignment.ErrNotFound},
			{name: "active class", kind: trash.KindClass, id: cls.ID, teacher: teacher.ID, wantErr: class.ErrNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Equal(t, tt.wantErr, svcs.Trash.Restore(ctx, tt.kind, tt.id, tt.teacher))
				assert.Equal(t, tt.wantErr, svcs.Trash.Purge(ctx, tt.kind, tt.id, tt.teacher))
			})
		}
	})

	t.Run("restore", func(t *testing.T) {
		require.NoError(t, svcs.Trash.Restore(ctx, trash.KindAssignment, asg.ID, teacher.ID))
		_, err := svcs.Assignment.Get(ctx, student, asg.ID)
		assert.NoError(t, err)
		require.NoError(t, svcs.Assignment.SoftDelete(ctx, asg.ID, teacher.ID))
	})

	t.Run("purge assignment", func(t *testing.T) {
		require.NoError(t, svcs.Trash.Purge(ctx, trash.KindAssignment, asg.ID, teacher.ID))

		_, err := repos.Assignment.GetAssignment(ctx, assignment.GetFilter{ID: asg.ID, Deleted: true})
		assert.Equal(t, assignment.ErrNotFound, err)
		_, err = repos.Submission.GetSubmission(ctx, submission.GetFilter{ID: sub.ID})
		assert.Equal(t, submission.ErrNotFound, err)
	})

	t.Run("purge class", func(t *testing.T) {
		require.NoError(t, svcs.Class.SoftDelete(ctx, cls.ID, teacher.ID))
		require.NoError(t, svcs.Trash.Purge(ctx, trash.KindClass, cls.ID, teacher.ID))

		_, err := repos.Class.GetClass(ctx, class.GetFilter{ID: cls.ID, Deleted: true})
		assert.Equal(t, class.ErrNotFound, err)
		_, err = repos.Assignment.GetAssignment(ctx, assignment.GetFilter{ID: kept.ID})
		assert.Equal(t, assignment.ErrNotFound, err)

		progress, err := svcs.Competency.Progress(ctx, student.ID)
		require.NoError(t, err)
		assert.Empty(t, progress)
	})
}
