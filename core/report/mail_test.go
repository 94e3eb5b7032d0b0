package report

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/competency"
	"github.com/trezcool/cblms/core/user"
)

type rowsRepo struct{ rows []CompetencyRow }

func (r rowsRepo) QueryStudentRows(context.Context, string) ([]CompetencyRow, error) { return r.rows, nil }
func (r rowsRepo) QueryClassRows(context.Context, string) ([]CompetencyRow, error)   { return r.rows, nil }

type usersByID map[string]user.User

func (u usersByID) GetByID(_ context.Context, id string) (user.User, error) {
	usr, ok := u[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

type mailRecorder struct{ sent []*core.EmailMessage }

func (m *mailRecorder) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

func TestService_EmailTranscript(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	nowFunc := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	defer func() { core.NowFunc = nowFunc }()

	alan := user.User{ID: "stu", Name: "Alan", Email: "alan@test.cd", Role: user.RoleStudent}
	ada := user.User{ID: "tch", Name: "Ada", Email: "ada@test.cd", Role: user.RoleTeacher}
	users := usersByID{alan.ID: alan, ada.ID: ada}
	mailer := new(mailRecorder)
	svc := NewService(rowsRepo{transcriptRows(now)}, nil, users, mailer)

	t.Run("students only", func(t *testing.T) {
		_, err := svc.EmailTranscriptFor(context.Background(), ada.ID)
		assert.Equal(t, ErrStudentNotFound, err)
		_, err = svc.EmailTranscriptFor(context.Background(), "missing")
		assert.Equal(t, ErrStudentNotFound, err)
		assert.Empty(t, mailer.sent)
	})

	t.Run("without email service", func(t *testing.T) {
		_, err := NewService(rowsRepo{}, nil, users, nil).EmailTranscript(context.Background(), alan)
		assert.Equal(t, errMailDisabled, err)
	})

	tr, err := svc.EmailTranscriptFor(context.Background(), alan.ID)
	require.NoError(t, err)
	assert.Equal(t, competency.StatusCounts{Mastered: 1, Achieved: 1, InProgress: 2}, tr.Summary)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, alan.Email, msg.To[0].Address)
	assert.Equal(t, "transcript", msg.TemplateName)

	require.Len(t, msg.Attachments, 1)
	at := msg.Attachments[0]
	assert.Equal(t, "transcript-stu-20240501.xlsx", at.Filename)
	assert.Equal(t, XLSXContentType, at.ContentType)

	content, err := base64.StdEncoding.DecodeString(at.Content.String())
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	name, err := f.GetCellValue(transcriptSheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Alan", name)
}
