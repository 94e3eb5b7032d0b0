package emailsvc

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core"
)

var (
	// SentMessages records what the console services delivered.
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

// ResetSentMessages empties SentMessages.
func ResetSentMessages() {
	mu.Lock()
	SentMessages = make([]core.EmailMessage, 0)
	mu.Unlock()
}

// LastSentMessages returns a copy of SentMessages.
func LastSentMessages() []core.EmailMessage {
	mu.Lock()
	defer mu.Unlock()
	return append([]core.EmailMessage(nil), SentMessages...)
}

// consoleService writes messages as MIME documents to the logger.
type consoleService struct {
	from            mail.Address
	subjPrefix      string
	frontendBaseURL string
	logger          core.Logger
	quiet           bool
	background      bool
}

var _ core.EmailService = (*consoleService)(nil)

func newConsoleService(conf *core.Config, logger core.Logger) *consoleService {
	return &consoleService{
		from:            conf.FromAddress(),
		subjPrefix:      "[" + conf.AppName + "] ",
		frontendBaseURL: conf.FrontendBaseURL,
		logger:          logger,
	}
}

func NewConsoleService(conf *core.Config, logger core.Logger) core.EmailService {
	svc := newConsoleService(conf, logger)
	svc.background = true
	return svc
}

// NewConsoleServiceMock sends synchronously and without output, so tests can inspect LastSentMessages.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) core.EmailService {
	svc := newConsoleService(conf, logger)
	svc.quiet = true
	return svc
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.background {
			go svc.deliver(msg)
		} else {
			svc.deliver(msg)
		}
	}
}

func (svc *consoleService) deliver(msg *core.EmailMessage) {
	if err := msg.Render(svc.frontendBaseURL); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
		return
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return
	}

	doc, err := svc.mime(*msg)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("writing email: %v", err), err)
		return
	}
	if !svc.quiet {
		svc.logger.Info("email sent to console", map[string]interface{}{"email": doc})
	}

	mu.Lock()
	SentMessages = append(SentMessages, *msg)
	mu.Unlock()
}

// mime renders msg as multipart/alternative, wrapped in multipart/mixed when it has attachments.
func (svc *consoleService) mime(msg core.EmailMessage) (string, error) {
	doc := new(strings.Builder)
	headers := [][2]string{
		{"From", svc.from.String()},
		{"MIME-Version", "1.0"},
		{"Date", core.NowFunc().Format("Mon, 02 Jan 2006 15:04:05 -0700")},
		{"Subject", svc.subjPrefix + msg.Subject},
		{"To", joinAddresses(msg.To)},
		{"CC", joinAddresses(msg.Cc)},
		{"BCC", joinAddresses(msg.Bcc)},
	}
	for _, h := range headers {
		if h[1] != "" {
			_, _ = fmt.Fprintf(doc, "%s: %s\r\n", h[0], h[1])
		}
	}

	alt := multipart.NewWriter(doc)
	altType := "multipart/alternative; boundary=" + alt.Boundary()
	var mixed *multipart.Writer
	if msg.HasAttachments() {
		mixed = multipart.NewWriter(doc)
		_, _ = fmt.Fprintf(doc, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mixed.Boundary())
		if _, err := mixed.CreatePart(textproto.MIMEHeader{"Content-Type": {altType}}); err != nil {
			return "", errors.Wrap(err, "creating alternative part")
		}
	} else {
		_, _ = fmt.Fprintf(doc, "Content-Type: %s\r\n\r\n", altType)
	}

	if err := writePart(alt, textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}}, msg.TextContent); err != nil {
		return "", err
	}
	if msg.HTMLContent != "" {
		if err := writePart(alt, textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}}, msg.HTMLContent); err != nil {
			return "", err
		}
	}
	_ = alt.Close()

	if mixed == nil {
		return doc.String(), nil
	}
	for _, at := range msg.Attachments {
		err := writePart(mixed, textproto.MIMEHeader{
			"Content-Type":              {at.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", at.Filename)},
		}, at.Content.String())
		if err != nil {
			return "", err
		}
	}
	_ = mixed.Close()
	return doc.String(), nil
}

func writePart(w *multipart.Writer, header textproto.MIMEHeader, content string) error {
	part, err := w.CreatePart(header)
	if err != nil {
		return errors.Wrapf(err, "creating %s part", header.Get("Content-Type"))
	}
	_, err = io.WriteString(part, content+"\r\n")
	return err
}

func joinAddresses(addrs []mail.Address) string {
	strs := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		strs = append(strs, addr.String())
	}
	return strings.Join(strs, ", ")
}
