package emailsvc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
)

var (
	sentMessages []core.EmailMessage
	mu           sync.Mutex
)

type consoleService struct {
	from            mail.Address
	subjPrefix      string
	frontendBaseURL string
	out             *log.Logger // nil: record only
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService prints emails to std as MIME messages instead of sending them.
func NewConsoleService(std *log.Logger, conf *core.Config) core.EmailService {
	return newConsoleService(std, conf)
}

func newConsoleService(std *log.Logger, conf *core.Config) *consoleService {
	return &consoleService{
		from:            conf.DefaultFromEmail,
		subjPrefix:      "[" + conf.AppName + "] ",
		frontendBaseURL: conf.Server.FrontendBaseURL,
		out:             std,
	}
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.deliver(msg)
	}
}

func (svc *consoleService) deliver(msg *core.EmailMessage) {
	if err := msg.Render(svc.frontendBaseURL); err != nil {
		if svc.out != nil {
			svc.out.Printf("%+v", errors.Wrap(err, "rendering email"))
		}
		return
	}
	if !msg.Deliverable() {
		return
	}
	if svc.out != nil {
		raw, err := svc.format(msg, time.Now())
		if err != nil {
			svc.out.Printf("%+v", errors.Wrap(err, "formatting email"))
			return
		}
		svc.out.Println(raw)
	}
	mu.Lock()
	sentMessages = append(sentMessages, *msg)
	mu.Unlock()
}

// format writes msg as multipart/mixed: the text and HTML alternatives first, then the attachments.
func (svc *consoleService) format(msg *core.EmailMessage, date time.Time) (string, error) {
	var body bytes.Buffer
	mixed := multipart.NewWriter(&body)

	var alt bytes.Buffer
	altW := multipart.NewWriter(&alt)
	parts := []struct{ ct, content string }{
		{"text/plain; charset=utf-8", msg.TextContent},
		{"text/html; charset=utf-8", msg.HTMLContent},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {p.ct}})
		if err != nil {
			return "", err
		}
		if _, err = io.WriteString(w, p.content); err != nil {
			return "", err
		}
	}
	if err := altW.Close(); err != nil {
		return "", err
	}

	w, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"multipart/alternative; boundary=" + altW.Boundary()},
	})
	if err != nil {
		return "", err
	}
	if _, err = w.Write(alt.Bytes()); err != nil {
		return "", err
	}

	for _, at := range msg.Attachments {
		w, err = mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {at.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": at.Filename})},
		})
		if err != nil {
			return "", err
		}
		if _, err = io.WriteString(w, base64.StdEncoding.EncodeToString(at.Content)); err != nil {
			return "", err
		}
	}
	if err = mixed.Close(); err != nil {
		return "", err
	}

	var head strings.Builder
	fmt.Fprintf(&head, "From: %s\r\n", svc.from.String())
	fmt.Fprintf(&head, "To: %s\r\n", joinAddresses(msg.To))
	fmt.Fprintf(&head, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", svc.subjPrefix+msg.Subject))
	fmt.Fprintf(&head, "Date: %s\r\n", date.Format(time.RFC1123Z))
	head.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&head, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mixed.Boundary())
	return head.String() + body.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

type consoleServiceMock struct {
	*consoleService
}

// NewConsoleServiceMock records messages, synchronously and without output. See Sent.
func NewConsoleServiceMock(conf *core.Config) core.EmailService {
	return &consoleServiceMock{consoleService: newConsoleService(nil, conf)}
}

func (svc *consoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		svc.deliver(msg)
	}
}

// ResetSentMessages clears the messages recorded by the mock.
func ResetSentMessages() {
	mu.Lock()
	sentMessages = nil
	mu.Unlock()
}

// Sent returns a copy of the messages recorded by the mock.
func Sent() []core.EmailMessage {
	mu.Lock()
	defer mu.Unlock()
	return append([]core.EmailMessage{}, sentMessages...)
}
