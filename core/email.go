package core

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/mail"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// EmailService is any service that can send emails.
// SendMessages does not block: delivery failures are reported to the service's logger.
type EmailService interface {
	SendMessages(messages ...*EmailMessage)
}

// EmailMessage is an outgoing email.
// The body is either BodyStr (plain text) or the rendering of the TemplateName templates with TemplateData.
type EmailMessage struct {
	To          []mail.Address
	Cc          []mail.Address
	Bcc         []mail.Address
	Subject     string
	BodyStr     string
	Attachments []Attachment

	TemplateName string // "welcome" renders welcome.txt and welcome.gohtml
	TemplateData interface{}

	// set by Render
	TextContent string
	HTMLContent string
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Base64 returns the attachment content encoded for a MIME part.
func (at Attachment) Base64() string {
	return base64.StdEncoding.EncodeToString(at.Data)
}

// Render fills TextContent and HTMLContent.
func (m *EmailMessage) Render() error {
	if m.TemplateName != "" {
		text, html, err := emailTemplates.render(m.TemplateName, emailContext{
			FrontendBaseURL: Conf.FrontendBaseURL,
			Data:            m.TemplateData,
		})
		if err != nil {
			return errors.Wrapf(err, "rendering %q email", m.TemplateName)
		}
		m.TextContent, m.HTMLContent = text, html
	}
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	return nil
}

// Attach reads r fully into a new attachment. The content type is sniffed unless given.
func (m *EmailMessage) Attach(r io.Reader, filename string, contentType ...string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "reading attachment %s", filename)
	}
	at := Attachment{Filename: filename, Data: data}
	if len(contentType) > 0 && contentType[0] != "" {
		at.ContentType = contentType[0]
	} else {
		at.ContentType = http.DetectContentType(data)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) AttachFile(name string, contentType ...string) error {
	f, err := os.Open(name)
	if err != nil {
		return errors.Wrap(err, "opening attachment")
	}
	defer f.Close()
	return m.Attach(f, filepath.Base(name), contentType...)
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return m.TextContent != "" || m.HTMLContent != "" }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }
