package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/user"
	emailsvc "github.com/trezcool/cblms/services/email"
	inmemdb "github.com/trezcool/cblms/storage/database/inmem"
	"github.com/trezcool/cblms/testutil"
)

func setup(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(logger)
	emailsvc.ResetSentMessages()

	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return user.NewService(repo, emailsvc.NewConsoleServiceMock(conf, logger)), repo
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	testutil.CreateUser(t, repo, "Ada", "ada@cblms.io", user.RoleTeacher)

	_, err := svc.Create(ctx, user.NewUser{Name: "Ada", Email: "ADA@cblms.io", Password: testutil.Password, Role: user.RoleTeacher})
	assert.Equal(t, user.ErrEmailExists, err)

	usr, err := svc.Create(ctx, user.NewUser{Name: "Alan", Email: "alan@cblms.io", Password: testutil.Password, Role: user.RoleStudent})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.NoError(t, usr.CheckPassword(testutil.Password))

	sent := emailsvc.LastSentMessages()
	if assert.Len(t, sent, 1, "welcome email") {
		assert.Equal(t, "alan@cblms.io", sent[0].To[0].Address)
	}
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	usr := testutil.CreateUser(t, repo, "Ada", "ada@cblms.io", user.RoleTeacher)
	gone := testutil.CreateUser(t, repo, "Gone", "gone@cblms.io", user.RoleStudent)
	require.NoError(t, repo.SoftDeleteUser(ctx, gone.ID))

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown email", email: "lol@cblms.io", pwd: testutil.Password, wantErr: user.ErrNotFound},
		{name: "deleted user", email: gone.Email, pwd: testutil.Password, wantErr: user.ErrNotFound},
		{name: "wrong password", email: usr.Email, pwd: "nope", wantErr: user.ErrInvalidCredentials},
		{name: "ok", email: " ADA@cblms.io ", pwd: testutil.Password},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Authenticate(ctx, tt.email, tt.pwd)
			assert.Equal(t, tt.wantErr, err)
			if tt.wantErr == nil {
				assert.Equal(t, usr.ID, got.ID)
			}
		})
	}
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	usr := testutil.CreateUser(t, repo, "Ada", "ada@cblms.io", user.RoleTeacher)
	testutil.CreateUser(t, repo, "Grace", "grace@cblms.io", user.RoleTeacher)

	_, err := svc.Update(ctx, usr.ID, user.UpdateUser{Name: "Ada", Email: "grace@cblms.io", Role: user.RoleTeacher})
	assert.Equal(t, user.ErrEmailExists, err)

	updated, err := svc.Update(ctx, usr.ID, user.UpdateUser{Name: "Ada L.", Email: "ada@cblms.io", Role: user.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)
	assert.Equal(t, user.RoleAdmin, updated.Role)
	assert.Equal(t, usr.PasswordHash, updated.PasswordHash, "password kept when not provided")

	updated, err = svc.Update(ctx, usr.ID, user.UpdateUser{Name: "Ada L.", Email: "ada@cblms.io", Role: user.RoleAdmin, Password: "N3w-passw0rd!"})
	require.NoError(t, err)
	assert.NoError(t, updated.CheckPassword("N3w-passw0rd!"))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	admin := testutil.CreateUser(t, repo, "Root", "root@cblms.io", user.RoleAdmin)
	usr := testutil.CreateUser(t, repo, "Ada", "ada@cblms.io", user.RoleTeacher)

	assert.Equal(t, user.ErrSelfDelete, svc.Delete(ctx, admin.ID, admin.ID))
	require.NoError(t, svc.Delete(ctx, usr.ID, admin.ID))
	assert.Equal(t, user.ErrNotFound, svc.Delete(ctx, usr.ID, admin.ID))

	_, err := svc.GetByID(ctx, usr.ID)
	assert.Equal(t, user.ErrNotFound, err)

	// the email is free again once the user is soft deleted
	_, err = svc.Create(ctx, user.NewUser{Name: "Ada", Email: "ada@cblms.io", Password: testutil.Password, Role: user.RoleTeacher})
	assert.NoError(t, err)
}
