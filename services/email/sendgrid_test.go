package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/testutil"
)

func TestSendgridService_prepare(t *testing.T) {
	conf := testutil.NewConfig()
	svc := NewSendgridService(conf, testutil.NewLogger(conf)).(*sendgridService)

	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Alan", Address: "alan@cblms.io"}},
		Bcc:         []mail.Address{{Address: "root@cblms.io"}},
		Subject:     "Transcript",
		TextContent: "text",
		HTMLContent: "<p>html</p>",
	}
	require.NoError(t, msg.Attach(strings.NewReader("xlsx"), "transcript.xlsx", "application/xlsx"))

	m := svc.prepare(msg)
	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[CBLMS] Transcript", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "alan@cblms.io", p.To[0].Address)
	assert.Len(t, p.BCC, 1)

	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "text/html", m.Content[1].Type)

	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "transcript.xlsx", m.Attachments[0].Filename)
	assert.Equal(t, "attachment", m.Attachments[0].Disposition)
	assert.Equal(t, msg.Attachments[0].Content.String(), m.Attachments[0].Content)
}
