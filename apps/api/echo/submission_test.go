package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/competency"
	"github.com/trezcool/cblms/core/submission"
	"github.com/trezcool/cblms/core/user"
	"github.com/trezcool/cblms/services/email"
	"github.com/trezcool/cblms/testutil"
)

func submitBody(t *testing.T, assignmentID, content string) []byte {
	return marshalObj(t, submission.NewSubmission{AssignmentID: assignmentID, Content: content})
}

func reviewBody(t *testing.T, status core.MasteryStatus, feedback string) []byte {
	return marshalObj(t, submission.Review{Status: status, Feedback: feedback})
}

func Test_submissionApi_submit(t *testing.T) {
	db.Reset()
	ada := testutil.CreateUser(t, repos.User, "Ada Lovelace", "ada@cblms.io", user.RoleTeacher)
	alan := testutil.CreateUser(t, repos.User, "Alan Turing", "alan@cblms.io", user.RoleStudent)
	edsger := testutil.CreateUser(t, repos.User, "Edsger Dijkstra", "edsger@cblms.io", user.RoleStudent)
	cls := testutil.CreateClass(t, repos.Class, ada.ID, "CS101", "", alan.ID)
	asg := testutil.CreateAssignment(t, repos.Assignment, cls.ID, "HW1", "Recursion")
	alanToken := getToken(t, alan)

	runTests(t, []httpTest{
		{
			name: "student required", method: http.MethodPost, path: "/api/submissions", token: getToken(t, ada),
			body: submitBody(t, asg.ID, "my answer"), wantCode: http.StatusForbidden, wantData: failure(t, "permission denied"),
		},
		{
			name: "validation", method: http.MethodPost, path: "/api/submissions", token: alanToken,
			body:     submitBody(t, "nope", " "),
			wantCode: http.StatusBadRequest,
			wantData: failure(t, "validation failed", "assignmentId must be a valid UUID", "content cannot be blank"),
		},
		{
			name: "not enrolled", method: http.MethodPost, path: "/api/submissions", token: getToken(t, edsger),
			body:     submitBody(t, asg.ID, "my answer"),
			wantCode: http.StatusNotFound, wantData: failure(t, "assignment not found"),
		},
	})

	t.Run("resubmission replaces content and resets status", func(t *testing.T) {
		rec := do(http.MethodPost, "/api/submissions", alanToken, submitBody(t, asg.ID, "first answer"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var first submission.Submission
		decode(t, rec, &first)
		assert.Equal(t, core.StatusInProgress, first.Status)
		assert.Equal(t, "HW1", first.AssignmentTitle)

		rec = do(http.MethodPut, "/api/submissions/"+first.ID+"/review", getToken(t, ada), reviewBody(t, core.StatusAchieved, "almost"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = do(http.MethodPost, "/api/submissions", alanToken, submitBody(t, asg.ID, "second answer"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var second submission.Submission
		decode(t, rec, &second)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "second answer", second.Content)
		assert.Equal(t, core.StatusInProgress, second.Status)
		assert.False(t, second.SubmittedAt.Before(first.SubmittedAt))

		subs, err := repos.Submission.QueryAssignmentSubmissions(context.Background(), asg.ID)
		require.NoError(t, err)
		assert.Len(t, subs, 1, "one row per student and assignment")
	})

	runTests(t, []httpTest{
		{
			name: "mine", path: "/api/submissions/mine", token: getToken(t, ada),
			wantCode: http.StatusForbidden, wantData: failure(t, "permission denied"),
		},
		{name: "nothing submitted", path: "/api/submissions/mine", token: getToken(t, edsger), wantData: success(t, []submission.Submission{})},
	})

	t.Run("mine", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/submissions/mine", alanToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var subs []submission.Submission
		decode(t, rec, &subs)
		require.Len(t, subs, 1)
		assert.Equal(t, "HW1", subs[0].AssignmentTitle)
	})
}

func Test_submissionApi_review(t *testing.T) {
	db.Reset()
	emailsvc.ResetSentMessages()
	ada := testutil.CreateUser(t, repos.User, "Ada Lovelace", "ada@cblms.io", user.RoleTeacher)
	grace := testutil.CreateUser(t, repos.User, "Grace Hopper", "grace@cblms.io", user.RoleTeacher)
	alan := testutil.CreateUser(t, repos.User, "Alan Turing", "alan@cblms.io", user.RoleStudent)
	cls := testutil.CreateClass(t, repos.Class, ada.ID, "CS101", "", alan.ID)
	asg := testutil.CreateAssignment(t, repos.Assignment, cls.ID, "HW1", "Recursion", "Iteration")
	sub := testutil.Submit(t, repos.Submission, alan.ID, asg, core.StatusInProgress)
	reviewPath := "/api/submissions/" + sub.ID + "/review"

	runTests(t, []httpTest{
		{
			name: "teacher required", method: http.MethodPut, path: reviewPath, token: getToken(t, alan),
			body: reviewBody(t, core.StatusMastered, ""), wantCode: http.StatusForbidden, wantData: failure(t, "permission denied"),
		},
		{
			name: "unknown status", method: http.MethodPut, path: reviewPath, token: getToken(t, ada),
			body:     reviewBody(t, "PERFECT", ""),
			wantCode: http.StatusBadRequest, wantData: failure(t, "validation failed", "status must be one of [IN_PROGRESS ACHIEVED MASTERED]"),
		},
		{
			name: "other teacher", method: http.MethodPut, path: reviewPath, token: getToken(t, grace),
			body:     reviewBody(t, core.StatusMastered, ""),
			wantCode: http.StatusNotFound, wantData: failure(t, "submission not found"),
		},
		{
			name: "unknown submission", method: http.MethodPut, path: "/api/submissions/" + testutil.MissingID + "/review",
			token: getToken(t, ada), body: reviewBody(t, core.StatusMastered, ""),
			wantCode: http.StatusNotFound, wantData: failure(t, "submission not found"),
		},
		{
			name: "submissions of another teacher's assignment", path: "/api/assignments/" + asg.ID + "/submissions",
			token: getToken(t, grace), wantCode: http.StatusNotFound, wantData: failure(t, "assignment not found"),
		},
	})

	t.Run("reviewed", func(t *testing.T) {
		rec := do(http.MethodPut, reviewPath, getToken(t, ada), reviewBody(t, core.StatusAchieved, " keep going "))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var reviewed submission.Submission
		decode(t, rec, &reviewed)
		assert.Equal(t, core.StatusAchieved, reviewed.Status)
		assert.Equal(t, "keep going", reviewed.Feedback)
		assert.NotNil(t, reviewed.ReviewedAt)

		sent := emailsvc.LastSentMessages()
		if assert.Len(t, sent, 1, "review notification") {
			assert.Equal(t, alan.Email, sent[0].To[0].Address)
		}

		var progs []competency.Progress
		decode(t, do(http.MethodGet, "/api/competencies/progress", getToken(t, alan)), &progs)
		require.Len(t, progs, 2, "progress on every competency of the assignment")
		for _, p := range progs {
			assert.Equal(t, core.StatusAchieved, p.Status)
			assert.Equal(t, sub.ID, p.SubmissionID)
			assert.NotNil(t, p.AchievedAt)
		}

		// statuses are set directly, with no ordering between them
		rec = do(http.MethodPut, reviewPath, getToken(t, ada), reviewBody(t, core.StatusInProgress, "regressed"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		progs = nil
		decode(t, do(http.MethodGet, "/api/competencies/progress", getToken(t, alan)), &progs)
		require.Len(t, progs, 2)
		for _, p := range progs {
			assert.Equal(t, core.StatusInProgress, p.Status)
			assert.Nil(t, p.AchievedAt)
		}
	})

	t.Run("listed for the teacher", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/assignments/"+asg.ID+"/submissions", getToken(t, ada))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var subs []submission.Submission
		decode(t, rec, &subs)
		require.Len(t, subs, 1)
		assert.Equal(t, alan.Name, subs[0].StudentName)
		assert.Equal(t, alan.Email, subs[0].StudentEmail)
	})
}

// Test_masteryWorkflow walks a class from creation to a mastered competency through the API only.
func Test_masteryWorkflow(t *testing.T) {
	db.Reset()
	admin := testutil.CreateUser(t, repos.User, "Root", "root@cblms.io", user.RoleAdmin)
	adminToken := getToken(t, admin)

	createUser := func(name, email string, role user.Role) user.User {
		rec := do(http.MethodPost, "/api/users", adminToken,
			marshalObj(t, user.NewUser{Name: name, Email: email, Password: testutil.Password, Role: role}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var usr user.User
		decode(t, rec, &usr)
		return usr
	}
	ada := createUser("Ada", "ada@cblms.io", user.RoleTeacher)
	alan := createUser("Alan", "alan@cblms.io", user.RoleStudent)
	adaToken, alanToken := getToken(t, ada), getToken(t, alan)

	rec := do(http.MethodPost, "/api/classes", adaToken, marshalObj(t, class.NewClass{Name: "CS101"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cls class.Class
	decode(t, rec, &cls)

	rec = do(http.MethodPost, "/api/classes/"+cls.ID+"/students", adaToken, marshalObj(t, class.Enrollment{StudentIDs: []string{alan.ID}}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(http.MethodPost, "/api/assignments", adaToken,
		marshalObj(t, assignment.NewAssignment{ClassID: cls.ID, Title: "HW1", Competencies: []string{"Recursion"}}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var asg assignment.Assignment
	decode(t, rec, &asg)

	rec = do(http.MethodPost, "/api/submissions", alanToken, submitBody(t, asg.ID, "my answer"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub submission.Submission
	decode(t, rec, &sub)
	assert.Equal(t, core.StatusInProgress, sub.Status)

	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: success(t, competency.StatusCounts{InProgress: 1}),
	}, do(http.MethodGet, "/api/competencies/status", alanToken))

	rec = do(http.MethodPut, "/api/submissions/"+sub.ID+"/review", adaToken, reviewBody(t, core.StatusMastered, "great job"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: success(t, competency.StatusCounts{Mastered: 1}),
	}, do(http.MethodGet, "/api/competencies/status", alanToken))

	runTests(t, []httpTest{
		{
			name: "status is for students", path: "/api/competencies/status", token: adaToken,
			wantCode: http.StatusForbidden, wantData: failure(t, "permission denied"),
		},
	})
}
