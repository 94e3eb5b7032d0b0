package echoapi_test

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/cohort"
	"github.com/trezcool/cblms/core/competency"
	"github.com/trezcool/cblms/core/report"
	"github.com/trezcool/cblms/core/user"
	"github.com/trezcool/cblms/services/email"
	"github.com/trezcool/cblms/testutil"
)

func Test_reportApi(t *testing.T) {
	db.Reset()
	admin := testutil.CreateUser(t, repos.User, "Root", "root@cblms.io", user.RoleAdmin)
	ada := testutil.CreateUser(t, repos.User, "Ada Lovelace", "ada@cblms.io", user.RoleTeacher)
	grace := testutil.CreateUser(t, repos.User, "Grace Hopper", "grace@cblms.io", user.RoleTeacher)
	alan := testutil.CreateUser(t, repos.User, "Alan Turing", "alan@cblms.io", user.RoleStudent)
	edsger := testutil.CreateUser(t, repos.User, "Edsger Dijkstra", "edsger@cblms.io", user.RoleStudent)
	freshmen := testutil.CreateCohort(t, repos.Cohort, "Freshmen", cohort.LevelUndergraduate)

	cs101 := testutil.CreateClass(t, repos.Class, ada.ID, "CS101", freshmen.ID, alan.ID, edsger.ID)
	hw1 := testutil.CreateAssignment(t, repos.Assignment, cs101.ID, "HW1", "Recursion", "Iteration")
	hw1Sub := testutil.Submit(t, repos.Submission, alan.ID, hw1, core.StatusMastered)
	writing := testutil.CreateClass(t, repos.Class, grace.ID, "Writing", "", alan.ID)
	testutil.CreateAssignment(t, repos.Assignment, writing.ID, "Essay", "Argumentation")
	alanToken := getToken(t, alan)

	runTests(t, []httpTest{
		{
			name: "student report is for students", path: "/api/reports/me", token: getToken(t, ada),
			wantCode: http.StatusForbidden, wantData: failure(t, "permission denied"),
		},
		{
			name: "class report of another teacher", path: "/api/reports/classes/" + cs101.ID, token: getToken(t, grace),
			wantCode: http.StatusNotFound, wantData: failure(t, "class not found"),
		},
		{
			name: "transcript of a teacher", path: "/api/reports/students/" + ada.ID + "/transcript", token: getToken(t, admin),
			wantCode: http.StatusNotFound, wantData: failure(t, "student not found"),
		},
		{
			name: "transcript of an unknown student", path: "/api/reports/students/" + testutil.MissingID + "/transcript",
			token: getToken(t, admin), wantCode: http.StatusNotFound, wantData: failure(t, "student not found"),
		},
		{
			name: "transcript of others is for admins", path: "/api/reports/students/" + alan.ID + "/transcript",
			token: getToken(t, ada), wantCode: http.StatusForbidden,
		},
	})

	t.Run("student report", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/reports/me", alanToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rep report.StudentReport
		decode(t, rec, &rep)

		assert.Equal(t, alan.ID, rep.Student.ID)
		require.Len(t, rep.Classes, 2)
		writingProgress, csProgress := rep.Classes[0], rep.Classes[1]
		assert.Equal(t, "Writing", writingProgress.ClassName)
		assert.Equal(t, 0, writingProgress.Submitted)
		assert.Equal(t, competency.StatusCounts{InProgress: 1}, writingProgress.Competencies)

		assert.Equal(t, "CS101", csProgress.ClassName)
		assert.Equal(t, 1, csProgress.Assignments)
		assert.Equal(t, 1, csProgress.Submitted)
		assert.Equal(t, competency.StatusCounts{Mastered: 1}, csProgress.Submissions)
		assert.Equal(t, competency.StatusCounts{Mastered: 2}, csProgress.Competencies)
		assert.Equal(t, report.Percentages{Mastered: 100}, csProgress.Percentages)

		assert.Equal(t, competency.StatusCounts{Mastered: 2, InProgress: 1}, rep.Overall)
		assert.Equal(t, report.Percentages{Mastered: 66.7, InProgress: 33.3}, rep.Percentages)
	})

	t.Run("class report", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/reports/classes/"+cs101.ID, getToken(t, ada))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rep report.ClassReport
		decode(t, rec, &rep)

		assert.Equal(t, "CS101", rep.ClassName)
		require.Len(t, rep.Students, 2)
		assert.Equal(t, alan.ID, rep.Students[0].Student.ID)
		assert.Equal(t, 1, rep.Students[0].Submitted)
		assert.Equal(t, competency.StatusCounts{Mastered: 2}, rep.Students[0].Competencies)
		assert.Equal(t, edsger.ID, rep.Students[1].Student.ID)
		assert.Equal(t, 0, rep.Students[1].Submitted)
		assert.Equal(t, competency.StatusCounts{InProgress: 2}, rep.Students[1].Competencies)

		require.Len(t, rep.Competencies, 2)
		assert.Equal(t, "Iteration", rep.Competencies[0].Name)
		assert.Equal(t, "Recursion", rep.Competencies[1].Name)
		for _, cs := range rep.Competencies {
			assert.Equal(t, competency.StatusCounts{Mastered: 1, InProgress: 1}, cs.Students)
		}
		assert.Equal(t, report.Percentages{Mastered: 50, InProgress: 50}, rep.Percentages)
	})

	t.Run("transcript", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/reports/me/transcript", alanToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var tr report.Transcript
		decode(t, rec, &tr)

		require.Len(t, tr.Cohorts, 2)
		assert.Equal(t, "Freshmen", tr.Cohorts[0].Name)
		assert.Equal(t, "Undergraduate", tr.Cohorts[0].LevelName)
		assert.Equal(t, "Unassigned", tr.Cohorts[1].Name, "classes without cohort come last")
		require.Len(t, tr.Cohorts[0].Classes, 1)
		entries := tr.Cohorts[0].Classes[0].Entries
		require.Len(t, entries, 2)
		assert.Equal(t, "Iteration", entries[0].Competency)
		assert.Equal(t, core.StatusMastered, entries[0].Status)
		assert.NotNil(t, entries[0].AchievedAt)
		assert.Equal(t, competency.StatusCounts{Mastered: 2, InProgress: 1}, tr.Summary)

		rec = do(http.MethodGet, "/api/reports/students/"+alan.ID+"/transcript", getToken(t, admin))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var byAdmin report.Transcript
		decode(t, rec, &byAdmin)
		assert.Equal(t, tr.Cohorts, byAdmin.Cohorts)
	})

	t.Run("transcript workbook", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/reports/me/transcript?format=XLSX", alanToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, report.XLSXContentType, rec.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), `attachment; filename="transcript-`+alan.ID))

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer func() { _ = f.Close() }()

		rows, err := f.GetRows("Transcript")
		require.NoError(t, err)
		require.Len(t, rows, 8, "3 info rows, a blank one, the header and 3 competencies")
		assert.Equal(t, []string{"Student", alan.Name}, rows[0])
		assert.Equal(t, []string{"Freshmen", "Undergraduate", "CS101", "HW1", "Iteration", "MASTERED"}, rows[5][:6])
		assert.Equal(t, []string{"Unassigned", "", "Writing", "Essay", "Argumentation", "IN_PROGRESS"}, rows[7])

		mastered, err := f.GetCellValue("Summary", "B2")
		require.NoError(t, err)
		assert.Equal(t, "2", mastered)
	})

	t.Run("emailed transcript", func(t *testing.T) {
		emailsvc.ResetSentMessages()

		rec := do(http.MethodPost, "/api/reports/students/"+ada.ID+"/transcript/email", getToken(t, admin))
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
		rec = do(http.MethodPost, "/api/reports/me/transcript/email", getToken(t, ada))
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
		assert.Empty(t, emailsvc.LastSentMessages())

		rec = do(http.MethodPost, "/api/reports/me/transcript/email", alanToken)
		ok, err := jsonBytesEqual(rec.Body.Bytes(), successMessage(t, "transcript sent to "+alan.Email))
		require.NoError(t, err)
		assert.True(t, ok, rec.Body.String())

		rec = do(http.MethodPost, "/api/reports/students/"+alan.ID+"/transcript/email", getToken(t, admin))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		sent := emailsvc.LastSentMessages()
		require.Len(t, sent, 2)
		for _, msg := range sent {
			assert.Equal(t, alan.Email, msg.To[0].Address)
			assert.Contains(t, msg.TextContent, "Mastered: 2 (66.7%)")
			assert.Contains(t, msg.HTMLContent, "Mastery transcript")
			require.Len(t, msg.Attachments, 1)
			assert.True(t, strings.HasPrefix(msg.Attachments[0].Filename, "transcript-"+alan.ID))
			assert.Equal(t, report.XLSXContentType, msg.Attachments[0].ContentType)
		}
	})

	t.Run("transcript follows the latest review", func(t *testing.T) {
		rec := do(http.MethodPut, "/api/submissions/"+hw1Sub.ID+"/review", getToken(t, ada),
			reviewBody(t, core.StatusInProgress, "needs another pass"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var tr report.Transcript
		decode(t, do(http.MethodGet, "/api/reports/me/transcript", alanToken), &tr)
		require.Len(t, tr.Cohorts, 2)
		for _, entry := range tr.Cohorts[0].Classes[0].Entries {
			assert.Equal(t, core.StatusInProgress, entry.Status, entry.Competency)
			assert.Nil(t, entry.AchievedAt, entry.Competency)
		}
		assert.Equal(t, competency.StatusCounts{InProgress: 3}, tr.Summary)
	})
}
