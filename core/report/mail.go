package report

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/user"
)

var errMailDisabled = errors.New("email service not configured")

// TranscriptFilename names the workbook of a transcript after its student and day.
func TranscriptFilename(tr Transcript) string {
	return fmt.Sprintf("transcript-%s-%s.xlsx", tr.Student.ID, tr.GeneratedAt.Format("20060102"))
}

// EmailTranscript mails the transcript of student to their own address, with the workbook attached.
func (svc *Service) EmailTranscript(ctx context.Context, student user.User) (Transcript, error) {
	if svc.mailSvc == nil {
		return Transcript{}, errMailDisabled
	}
	tr, err := svc.Transcript(ctx, student)
	if err != nil {
		return Transcript{}, err
	}

	var buf bytes.Buffer
	if err = WriteTranscriptXLSX(&buf, tr); err != nil {
		return Transcript{}, errors.Wrap(err, "writing transcript workbook")
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: tr.Student.Name, Address: tr.Student.Email}},
		Subject:      "Your mastery transcript",
		TemplateName: "transcript",
		TemplateData: map[string]interface{}{
			"StudentName": tr.Student.Name,
			"GeneratedAt": tr.GeneratedAt.Format("January 2, 2006"),
			"Summary":     tr.Summary,
			"Percentages": tr.Percentages,
		},
	}
	if err = msg.Attach(&buf, TranscriptFilename(tr), XLSXContentType); err != nil {
		return Transcript{}, err
	}
	svc.mailSvc.SendMessages(msg)
	return tr, nil
}

// EmailTranscriptFor is EmailTranscript for a student looked up by id.
func (svc *Service) EmailTranscriptFor(ctx context.Context, studentID string) (Transcript, error) {
	usr, err := svc.student(ctx, studentID)
	if err != nil {
		return Transcript{}, err
	}
	return svc.EmailTranscript(ctx, usr)
}
