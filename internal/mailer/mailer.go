// internal/mailer/mailer.go
package mailer

import (
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

type Message struct {
	FromName    string
	FromEmail   string
	To          string
	Subject     string
	Text        string
	ReplyTo     string
	Attachments []Attachment
}

// Sender delivers one reminder email and returns the transport message id.
type Sender interface {
	Send(msg Message) (string, error)
}

// SMTPSender implements Sender over SMTP.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
}

func NewSMTPSender(host string, port int, username, password string) *SMTPSender {
	return &SMTPSender{Host: host, Port: port, Username: username, Password: password}
}

func (s *SMTPSender) Send(msg Message) (string, error) {
	id := uuid.NewString()

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail))
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-Id", fmt.Sprintf("<%s@%s>", id, s.Host))
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetBody("text/plain", msg.Text)

	for _, att := range msg.Attachments {
		content := att.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		}
		if att.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {att.ContentType},
			}))
		}
		m.Attach(att.Filename, settings...)
	}

	d := gomail.NewDialer(s.Host, s.Port, s.Username, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return "", fmt.Errorf("error sending email: %v", err)
	}
	return id, nil
}

// LoggingSender logs email details instead of sending. Used when SMTP is
// not configured.
type LoggingSender struct{}

func (s *LoggingSender) Send(msg Message) (string, error) {
	id := uuid.NewString()
	log.Printf("--- Sending Email (Logged) ---")
	log.Printf("From: %s <%s>", msg.FromName, msg.FromEmail)
	log.Printf("To: %s", msg.To)
	log.Printf("Subject: %s", msg.Subject)
	for _, att := range msg.Attachments {
		log.Printf("Attachment: %s (%d bytes)", att.Filename, len(att.Content))
	}
	log.Println(msg.Text)
	log.Printf("--- End Email ---")
	return id, nil
}

var (
	_ Sender = (*SMTPSender)(nil)
	_ Sender = (*LoggingSender)(nil)
)
