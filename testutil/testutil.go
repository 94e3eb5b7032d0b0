// Package testutil wires in-memory repositories and services for the test suites, and seeds rows.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/cohort"
	"github.com/trezcool/cblms/core/competency"
	"github.com/trezcool/cblms/core/report"
	"github.com/trezcool/cblms/core/submission"
	"github.com/trezcool/cblms/core/trash"
	"github.com/trezcool/cblms/core/user"
	"github.com/trezcool/cblms/services/logger"
	"github.com/trezcool/cblms/storage/database/inmem"
)

const (
	Password = "Sup3r-s3cret!"
	// MissingID is a well-formed id that matches no row.
	MissingID = "00000000-0000-4000-8000-000000000000"
)

func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Build:            "test",
		AppName:          "CBLMS",
		TestMode:         true,
		SecretKey:        "test-secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: "CBLMS <noreply@cblms.test>",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			ShutdownTimeout:    time.Second,
		},
		Database:  core.DatabaseConfig{Engine: "inmem"},
		RateLimit: core.RateLimitConfig{Disabled: true, Requests: 100, AuthRequests: 5, Window: 15 * time.Minute},
	}
}

func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(zap.NewNop(), conf)
}

type Repos struct {
	User       user.Repository
	Cohort     cohort.Repository
	Class      class.Repository
	Assignment assignment.Repository
	Submission submission.Repository
	Competency competency.Repository
	Report     report.Repository
}

func NewInmemRepos(db *inmemdb.DB) Repos {
	return Repos{
		User:       inmemdb.NewUserRepository(db),
		Cohort:     inmemdb.NewCohortRepository(db),
		Class:      inmemdb.NewClassRepository(db),
		Assignment: inmemdb.NewAssignmentRepository(db),
		Submission: inmemdb.NewSubmissionRepository(db),
		Competency: inmemdb.NewCompetencyRepository(db),
		Report:     inmemdb.NewReportRepository(db),
	}
}

type Services struct {
	User       *user.Service
	Cohort     *cohort.Service
	Class      *class.Service
	Assignment *assignment.Service
	Submission *submission.Service
	Competency *competency.Service
	Report     *report.Service
	Trash      *trash.Service
}

func NewServices(repos Repos, mailSvc core.EmailService) Services {
	usrSvc := user.NewService(repos.User, mailSvc)
	cohortSvc := cohort.NewService(repos.Cohort)
	classSvc := class.NewService(repos.Class, usrSvc, cohortSvc)
	asgSvc := assignment.NewService(repos.Assignment, classSvc)
	return Services{
		User:       usrSvc,
		Cohort:     cohortSvc,
		Class:      classSvc,
		Assignment: asgSvc,
		Submission: submission.NewService(repos.Submission, asgSvc, usrSvc, mailSvc),
		Competency: competency.NewService(repos.Competency),
		Report:     report.NewService(repos.Report, classSvc, usrSvc, mailSvc),
		Trash:      trash.NewService(repos.Class, repos.Assignment),
	}
}

// CreateUser stores a user with Password unless pwd is given.
func CreateUser(t *testing.T, repo user.Repository, name, email string, role user.Role, pwd ...string) user.User {
	t.Helper()
	now := core.NowFunc()
	usr := user.User{Name: name, Email: email, Role: role, CreatedAt: now, UpdatedAt: now}
	password := Password
	if len(pwd) > 0 {
		password = pwd[0]
	}
	require.NoError(t, usr.SetPassword(password), "SetPassword()")
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err, "CreateUser()")
	return usr
}

func CreateCohort(t *testing.T, repo cohort.Repository, name string, level cohort.Level) cohort.Cohort {
	t.Helper()
	now := core.NowFunc()
	coh, err := repo.CreateCohort(context.Background(), cohort.Cohort{
		Name:      name,
		Level:     level,
		LevelName: level.String(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err, "CreateCohort()")
	return coh
}

func CreateClass(t *testing.T, repo class.Repository, teacherID, name, cohortID string, studentIDs ...string) class.Class {
	t.Helper()
	now := core.NowFunc()
	cls, err := repo.CreateClass(context.Background(), class.Class{
		Name:      name,
		TeacherID: teacherID,
		CohortID:  cohortID,
		CreatedAt: now,
		UpdatedAt: now,
	}, studentIDs)
	require.NoError(t, err, "CreateClass()")
	return cls
}

func CreateAssignment(t *testing.T, repo assignment.Repository, classID, title string, competencies ...string) assignment.Assignment {
	t.Helper()
	now := core.NowFunc()
	comps := make([]assignment.Competency, 0, len(competencies))
	for _, name := range competencies {
		comps = append(comps, assignment.Competency{Name: name, CreatedAt: now})
	}
	asg, err := repo.CreateAssignment(context.Background(), assignment.Assignment{
		Title:        title,
		ClassID:      classID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Competencies: comps,
	})
	require.NoError(t, err, "CreateAssignment()")
	return asg
}

// Submit stores a submission of the student, reviewed with status unless it is IN_PROGRESS.
func Submit(t *testing.T, repo submission.Repository, studentID string, asg assignment.Assignment, status core.MasteryStatus) submission.Submission {
	t.Helper()
	now := core.NowFunc()
	sub, _, err := repo.UpsertSubmission(context.Background(), submission.Submission{
		StudentID:    studentID,
		AssignmentID: asg.ID,
		Content:      "my work",
		Status:       core.StatusInProgress,
		SubmittedAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err, "UpsertSubmission()")
	if status == core.StatusInProgress {
		return sub
	}

	sub.Status = status
	sub.ReviewedAt = &now
	sub.UpdatedAt = now
	sub, err = repo.ReviewSubmission(context.Background(), sub, asg.CompetencyIDs())
	require.NoError(t, err, "ReviewSubmission()")
	return sub
}
