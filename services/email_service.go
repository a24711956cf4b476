package services

import (
	"context"
	"fmt"
	"net/smtp"

	"mediconnect/models"

	"github.com/sirupsen/logrus"
)

// smtpSendFunc matches smtp.SendMail; swapped out in tests.
type smtpSendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService delivers notifications over SMTP as multipart
// plain-text plus HTML messages.
type EmailService struct {
	host     string
	port     string
	username string
	password string
	from     string

	sendMail smtpSendFunc
}

func NewEmailService(host, port, username, password, from string) *EmailService {
	return &EmailService{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

func (es *EmailService) ChannelType() models.ChannelType {
	return models.ChannelEmail
}

func (es *EmailService) Send(ctx context.Context, recipient *models.Recipient, notification *models.Notification) DeliveryResult {
	if es.host == "" {
		logrus.Warn("SMTP not configured, skipping email send")
		return failure("email channel not configured")
	}
	if recipient.Email == "" {
		return failure("recipient has no email address")
	}

	htmlBody := notification.HTMLContent
	if htmlBody == "" {
		htmlBody = fmt.Sprintf("<html><body><p>%s</p></body></html>", notification.Message)
	}

	message := es.buildMessage(recipient.Email, notification.Subject, htmlBody, notification.Message)

	var auth smtp.Auth
	if es.username != "" {
		auth = smtp.PlainAuth("", es.username, es.password, es.host)
	}
	addr := fmt.Sprintf("%s:%s", es.host, es.port)

	done := make(chan error, 1)
	go func() {
		done <- es.sendMail(addr, auth, es.from, []string{recipient.Email}, []byte(message))
	}()

	select {
	case err := <-done:
		if err != nil {
			logrus.Errorf("Failed to send email to %s: %v", recipient.Email, err)
			return failure(err.Error())
		}
	case <-ctx.Done():
		return failure(ctx.Err().Error())
	}

	logrus.Infof("Email sent successfully to %s", recipient.Email)
	return success("")
}

// buildMessage creates the full multipart email message.
func (es *EmailService) buildMessage(to, subject, htmlBody, textBody string) string {
	boundary := "boundary-mediconnect-email"

	message := fmt.Sprintf(`From: %s
To: %s
Subject: %s
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="%s"

--%s
Content-Type: text/plain; charset=UTF-8

%s

--%s
Content-Type: text/html; charset=UTF-8

%s

--%s--`, es.from, to, subject, boundary, boundary, textBody, boundary, htmlBody, boundary)

	return message
}
