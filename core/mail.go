package core

import (
	"bytes"
	"encoding/base64"
	"fmt"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	"github.com/trezcool/cblms/assets"
)

const emailTemplatesDir = "templates/email"

var (
	emailTemplates   map[string]emailTemplate // by name, without extension
	emailTemplatesMu sync.RWMutex
)

// executor is satisfied by both text and html templates.
type executor interface {
	Execute(w io.Writer, data interface{}) error
}

// emailTemplate holds the two renditions of a message. Either may be missing.
type emailTemplate struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

type (
	Attachment struct {
		Content     *bytes.Buffer // base64 encoded
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // plain text, used instead of the text template
		Attachments []Attachment

		TemplateName string
		TemplateData interface{}

		// filled by Render
		TextContent string
		HTMLContent string
	}

	// ContextData is what templates are executed with; message data is under .Data.
	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	EmailService interface {
		// SendMessages renders and sends messages. Implementations may send them in the background.
		SendMessages(messages ...*EmailMessage)
	}
)

// Render fills TextContent and HTMLContent. ParseEmailTemplates must have been called for templated messages.
func (m *EmailMessage) Render(frontendBaseURL string) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}

	emailTemplatesMu.RLock()
	tmpl, ok := emailTemplates[m.TemplateName]
	emailTemplatesMu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown email template %q", m.TemplateName)
	}

	data := ContextData{FrontendBaseURL: frontendBaseURL, Data: m.TemplateData}
	var err error
	if tmpl.text != nil && m.BodyStr == "" {
		if m.TextContent, err = execute(tmpl.text, data); err != nil {
			return errors.Wrapf(err, "rendering %s.txt", m.TemplateName)
		}
	}
	if tmpl.html != nil {
		if m.HTMLContent, err = execute(tmpl.html, data); err != nil {
			return errors.Wrapf(err, "rendering %s.gohtml", m.TemplateName)
		}
	}
	return nil
}

func execute(tmpl executor, data ContextData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Attach adds the content of r as a base64 encoded attachment.
// The content type is sniffed when ct is not given.
func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "reading attachment")
	}

	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}
	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err = encoder.Write(content); err != nil {
		return errors.Wrap(err, "encoding attachment")
	}
	if err = encoder.Close(); err != nil {
		return errors.Wrap(err, "encoding attachment")
	}

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

// ParseEmailTemplates parses the embedded email templates, each one on top of its base layout
// (`_base.txt` or `_base.gohtml`). Broken templates are logged and skipped.
func ParseEmailTemplates(logger Logger) {
	parsed := make(map[string]emailTemplate)

	fps, err := fs.Glob(assets.FS, path.Join(emailTemplatesDir, "*"))
	if err != nil {
		logger.Error(fmt.Sprintf("listing email templates: %v", err), err)
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		tmpl := parsed[name]
		base := path.Join(emailTemplatesDir, "_base"+ext)

		switch ext {
		case ".txt":
			tmpl.text, err = texttmpl.ParseFS(assets.FS, base, fp)
			if err == nil {
				tmpl.text.Option("missingkey=error")
			}
		case ".gohtml":
			tmpl.html, err = htmltmpl.ParseFS(assets.FS, base, fp)
			if err == nil {
				tmpl.html.Option("missingkey=error")
			}
		default:
			continue
		}
		if err != nil {
			logger.Error(fmt.Sprintf("parsing email template %s: %v", fname, err), err)
			continue
		}
		parsed[name] = tmpl
	}

	emailTemplatesMu.Lock()
	emailTemplates = parsed
	emailTemplatesMu.Unlock()
}
