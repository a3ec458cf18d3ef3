package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/presence/core"
)

const sendgridAttempts = 3

type sendgridService struct {
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger

	post    func(m *sgmail.SGMailV3) (*rest.Response, error)
	backoff time.Duration
}

var _ core.EmailService = (*sendgridService)(nil)

// NewSendgridService returns an EmailService delivering through the SendGrid v3 API.
// Rate-limited and 5xx responses are retried with a linear backoff.
func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	client := sendgrid.NewSendClient(conf.SendgridAPIKey)
	return &sendgridService{
		from:       sgmail.NewEmail(conf.DefaultFromEmail.Name, conf.DefaultFromEmail.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
		post:       client.Send,
		backoff:    time.Second,
	}
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.deliver(msg)
	}
}

func (svc *sendgridService) deliver(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), err)
		return
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return
	}
	if err := svc.send(svc.build(msg)); err != nil {
		svc.logger.Error(fmt.Sprintf("sending email %q: %v", msg.Subject, err), err)
	}
}

// build maps a rendered message to a single-personalization SendGrid mail.
// The template name, if any, is set as category.
func (svc *sendgridService) build(msg *core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	p.AddTos(sgEmails(msg.To)...)
	p.AddCCs(sgEmails(msg.Cc)...)
	p.AddBCCs(sgEmails(msg.Bcc)...)

	m := sgmail.NewV3Mail().SetFrom(svc.from).AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	if msg.TemplateName != "" {
		m.AddCategories(msg.TemplateName)
	}

	for _, at := range msg.Attachments {
		// content is already base64 encoded
		m.AddAttachment(sgmail.NewAttachment().
			SetContent(at.Content.String()).
			SetType(at.ContentType).
			SetFilename(at.Filename).
			SetDisposition("attachment"))
	}
	return m
}

func (svc *sendgridService) send(m *sgmail.SGMailV3) error {
	var lastErr error
	for attempt := 1; attempt <= sendgridAttempts; attempt++ {
		res, err := svc.post(m)
		switch {
		case err != nil:
			lastErr = err
		case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
		case res.StatusCode >= http.StatusBadRequest:
			return fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
		default:
			return nil
		}
		if attempt < sendgridAttempts {
			time.Sleep(time.Duration(attempt) * svc.backoff)
		}
	}
	return lastErr
}

func sgEmails(addrs []mail.Address) []*sgmail.Email {
	emails := make([]*sgmail.Email, 0, len(addrs))
	for _, a := range addrs {
		emails = append(emails, sgmail.NewEmail(a.Name, a.Address))
	}
	return emails
}
