package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/kampus/fs"
)

// Email templates, each with a .txt and a .gohtml variant under templates/email.
const (
	TemplateAttendanceShortage = "attendance_shortage"
	TemplateMatch              = "match"
	TemplateTranscript         = "transcript"
)

const emailTemplatesDir = "templates/email"

type (
	Attachment struct {
		Filename    string
		ContentType string
		Content     []byte
	}

	// EmailMessage is either a plain Text message or a Template rendered with Data.
	EmailMessage struct {
		To          []mail.Address
		Subject     string
		Text        string
		Template    string
		Data        interface{}
		Attachments []Attachment

		// filled by Render
		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}

	// templateData is what every template sees: the layout links to the frontend.
	templateData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	templateSet struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}
)

var (
	templates   map[string]templateSet
	tmplOnce    sync.Once
	tmplInitErr error
)

// Attach adds a file to the message, sniffing its content type when none is given.
func (m *EmailMessage) Attach(filename string, content []byte, contentType string) {
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, Attachment{Filename: filename, ContentType: contentType, Content: content})
}

// Render fills TextContent and HTMLContent.
func (m *EmailMessage) Render(frontendBaseURL string) error {
	if m.Template == "" {
		m.TextContent = m.Text
		return nil
	}
	if err := ParseEmailTemplates(nil); err != nil {
		return err
	}
	set, ok := templates[m.Template]
	if !ok {
		return errors.Errorf("unknown email template %q", m.Template)
	}

	data := templateData{FrontendBaseURL: frontendBaseURL, Data: m.Data}
	var buf bytes.Buffer
	if set.text != nil {
		if err := set.text.ExecuteTemplate(&buf, "base", data); err != nil {
			return errors.Wrapf(err, "rendering %s.txt", m.Template)
		}
		m.TextContent = strings.TrimSpace(buf.String())
		buf.Reset()
	}
	if set.html != nil {
		if err := set.html.ExecuteTemplate(&buf, "base", data); err != nil {
			return errors.Wrapf(err, "rendering %s.gohtml", m.Template)
		}
		m.HTMLContent = buf.String()
	}
	return nil
}

// Deliverable reports whether a rendered message has someone to go to and something to say.
func (m *EmailMessage) Deliverable() bool {
	return len(m.To) > 0 && (m.TextContent != "" || m.HTMLContent != "" || len(m.Attachments) > 0)
}

// ParseEmailTemplates parses the embedded email templates once.
// Every template is parsed along with its "_base" layout; files starting with "_" are layouts only.
func ParseEmailTemplates(logger Logger) error {
	tmplOnce.Do(func() {
		templates, tmplInitErr = parseEmailTemplates()
		if tmplInitErr != nil && logger != nil {
			logger.Error("parsing email templates", tmplInitErr)
		}
	})
	return tmplInitErr
}

func parseEmailTemplates() (map[string]templateSet, error) {
	fps, err := fs.Glob(appfs.FS, path.Join(emailTemplatesDir, "*"))
	if err != nil {
		return nil, err
	}

	sets := make(map[string]templateSet)
	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		base := path.Join(emailTemplatesDir, "_base"+ext)
		set := sets[name]

		switch ext {
		case ".txt":
			tmpl, err := texttmpl.ParseFS(appfs.FS, base, fp)
			if err != nil {
				return nil, errors.Wrap(err, fname)
			}
			set.text = tmpl.Option("missingkey=error")
		case ".gohtml":
			tmpl, err := htmltmpl.ParseFS(appfs.FS, base, fp)
			if err != nil {
				return nil, errors.Wrap(err, fname)
			}
			set.html = tmpl.Option("missingkey=error")
		default:
			continue
		}
		sets[name] = set
	}
	return sets, nil
}
