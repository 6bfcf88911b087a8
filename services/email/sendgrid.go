package emailsvc

import (
	"encoding/base64"
	"net/http"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/kampus/core"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
	sendAttempts     = 3
)

var (
	sendgridAPI = sendgrid.API // mockable
	retryDelay  = 2 * time.Second
)

type sendgridService struct {
	key             string
	from            *sgmail.Email
	subjPrefix      string
	frontendBaseURL string
	logger          core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(logger core.Logger, conf *core.Config) core.EmailService {
	from := conf.DefaultFromEmail
	return &sendgridService{
		key:             conf.SendgridApiKey,
		from:            sgmail.NewEmail(from.Name, from.Address),
		subjPrefix:      "[" + conf.AppName + "] ",
		frontendBaseURL: conf.Server.FrontendBaseURL,
		logger:          logger,
	}
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.deliver(msg)
	}
}

func (svc *sendgridService) deliver(msg *core.EmailMessage) {
	fields := core.LogFields{"template": msg.Template, "recipients": len(msg.To)}
	if err := msg.Render(svc.frontendBaseURL); err != nil {
		svc.logger.Error("rendering email", err, fields)
		return
	}
	if !msg.Deliverable() {
		return
	}
	if err := svc.send(svc.build(msg)); err != nil {
		svc.logger.Error("sending email", err, fields)
	}
}

// build turns msg into one personalization, every recipient sees the others.
func (svc *sendgridService) build(msg *core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgEmail(to))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	if msg.TextContent != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	for _, at := range msg.Attachments {
		a := sgmail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(at.Content))
		a.SetType(at.ContentType)
		a.SetFilename(at.Filename)
		a.SetDisposition("attachment")
		m.AddAttachment(a)
	}
	return m
}

// send posts m, retrying when SendGrid is throttling or failing on its side.
func (svc *sendgridService) send(m *sgmail.SGMailV3) error {
	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		req := sendgrid.GetRequest(svc.key, sendgridEndpoint, sendgridHost)
		req.Method = rest.Post
		req.Body = sgmail.GetRequestBody(m)

		res, err := sendgridAPI(req)
		switch {
		case err != nil:
			lastErr = err
		case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError:
			lastErr = errors.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
		case res.StatusCode >= http.StatusBadRequest:
			return errors.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
		default:
			return nil
		}
		if attempt < sendAttempts {
			time.Sleep(time.Duration(attempt) * retryDelay)
		}
	}
	return lastErr
}

func sgEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}
