package services

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"mediconnect/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailSend(t *testing.T) {
	t.Parallel()

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	es := NewEmailService("smtp.hospital.example", "587", "mailer", "secret", "noreply@mediconnect.app")
	es.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	result := es.Send(context.Background(), &models.Recipient{UserID: "u1", Email: "doctor@hospital.example"}, &models.Notification{
		Subject: "Referral accepted",
		Message: "Your referral for patient A-113 was accepted.",
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "smtp.hospital.example:587", gotAddr)
	assert.Equal(t, "noreply@mediconnect.app", gotFrom)
	assert.Equal(t, []string{"doctor@hospital.example"}, gotTo)

	message := string(gotMsg)
	assert.Contains(t, message, "Subject: Referral accepted")
	assert.Contains(t, message, "To: doctor@hospital.example")
	assert.Contains(t, message, `Content-Type: multipart/alternative; boundary="boundary-mediconnect-email"`)
	assert.Contains(t, message, "Content-Type: text/plain; charset=UTF-8")
	assert.Contains(t, message, "Content-Type: text/html; charset=UTF-8")
	// Plain message is wrapped into a default HTML part.
	assert.Contains(t, message, "<p>Your referral for patient A-113 was accepted.</p>")
	assert.True(t, strings.HasSuffix(message, "--boundary-mediconnect-email--"))
}

func TestEmailSendUsesProvidedHTML(t *testing.T) {
	t.Parallel()

	var gotMsg []byte
	es := NewEmailService("smtp.hospital.example", "587", "", "", "noreply@mediconnect.app")
	es.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotMsg = msg
		return nil
	}

	result := es.Send(context.Background(), &models.Recipient{Email: "nurse@hospital.example"}, &models.Notification{
		Subject:     "Status",
		Message:     "plain text",
		HTMLContent: "<h1>rich content</h1>",
	})

	require.True(t, result.Success)
	assert.Contains(t, string(gotMsg), "<h1>rich content</h1>")
}

func TestEmailSendFailures(t *testing.T) {
	t.Parallel()

	unconfigured := NewEmailService("", "", "", "", "")
	result := unconfigured.Send(context.Background(), &models.Recipient{Email: "a@b.c"}, &models.Notification{})
	assert.Equal(t, "email channel not configured", result.Error)

	es := NewEmailService("smtp.hospital.example", "587", "", "", "noreply@mediconnect.app")
	result = es.Send(context.Background(), &models.Recipient{UserID: "u1"}, &models.Notification{})
	assert.Equal(t, "recipient has no email address", result.Error)

	es.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	}
	result = es.Send(context.Background(), &models.Recipient{Email: "a@b.c"}, &models.Notification{})
	assert.False(t, result.Success)
	assert.Equal(t, "connection refused", result.Error)
}
