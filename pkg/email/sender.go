// Package email sends transactional mail to affiliates.
package email

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, to, subject, plainText, htmlContent string) error
	SendOtpCode(ctx context.Context, to, code string, expireMinutes int) error
	SendWithdrawalStatus(ctx context.Context, to, withdrawalNo, status, message string) error
}

// SendGridSender delivers mail through the SendGrid API.
type SendGridSender struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
}

// Config holds SendGrid settings.
type Config struct {
	APIKey      string
	FromName    string
	FromAddress string
}

// NewSendGridSender creates a SendGrid backed sender.
func NewSendGridSender(config *Config) *SendGridSender {
	return &SendGridSender{
		client:   sendgrid.NewSendClient(config.APIKey),
		fromName: config.FromName,
		fromAddr: config.FromAddress,
	}
}

// Send delivers a single email.
func (s *SendGridSender) Send(ctx context.Context, to, subject, plainText, htmlContent string) error {
	from := mail.NewEmail(s.fromName, s.fromAddr)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, plainText, htmlContent)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("failed to send email: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// SendOtpCode delivers a withdrawal verification code.
func (s *SendGridSender) SendOtpCode(ctx context.Context, to, code string, expireMinutes int) error {
	subject := "Mã xác thực rút tiền"
	plain := fmt.Sprintf(
		"Mã xác thực của bạn là %s. Mã có hiệu lực trong %d phút. Không chia sẻ mã này với bất kỳ ai.",
		code, expireMinutes,
	)
	html := fmt.Sprintf(
		"<p>Mã xác thực của bạn là <strong>%s</strong>.</p><p>Mã có hiệu lực trong %d phút. Không chia sẻ mã này với bất kỳ ai.</p>",
		code, expireMinutes,
	)
	return s.Send(ctx, to, subject, plain, html)
}

// SendWithdrawalStatus notifies the affiliate of a payout status change.
func (s *SendGridSender) SendWithdrawalStatus(ctx context.Context, to, withdrawalNo, status, message string) error {
	subject := fmt.Sprintf("Yêu cầu rút tiền %s: %s", withdrawalNo, status)
	plain := fmt.Sprintf("Yêu cầu rút tiền %s đã chuyển sang trạng thái %s.", withdrawalNo, status)
	if message != "" {
		plain += " " + message
	}
	html := fmt.Sprintf("<p>Yêu cầu rút tiền <strong>%s</strong> đã chuyển sang trạng thái <strong>%s</strong>.</p>", withdrawalNo, status)
	if message != "" {
		html += fmt.Sprintf("<p>%s</p>", message)
	}
	return s.Send(ctx, to, subject, plain, html)
}

// MockSender records mail instead of sending it. For development and
// tests.
type MockSender struct {
	SentMessages []MockMessage
	FailNext     bool
}

// MockMessage is one recorded email.
type MockMessage struct {
	To       string
	Subject  string
	Plain    string
	HTML     string
	SentAt   time.Time
}

// NewMockSender creates a recording sender.
func NewMockSender() *MockSender {
	return &MockSender{
		SentMessages: make([]MockMessage, 0),
	}
}

// Send records the message, or fails once when FailNext is set.
func (s *MockSender) Send(ctx context.Context, to, subject, plainText, htmlContent string) error {
	if s.FailNext {
		s.FailNext = false
		return fmt.Errorf("mock send failure")
	}
	s.SentMessages = append(s.SentMessages, MockMessage{
		To:      to,
		Subject: subject,
		Plain:   plainText,
		HTML:    htmlContent,
		SentAt:  time.Now(),
	})
	return nil
}

// SendOtpCode records a verification code email.
func (s *MockSender) SendOtpCode(ctx context.Context, to, code string, expireMinutes int) error {
	return s.Send(ctx, to, "Mã xác thực rút tiền", code, code)
}

// SendWithdrawalStatus records a status notification email.
func (s *MockSender) SendWithdrawalStatus(ctx context.Context, to, withdrawalNo, status, message string) error {
	return s.Send(ctx, to, fmt.Sprintf("Yêu cầu rút tiền %s: %s", withdrawalNo, status), message, message)
}

// GetLastMessage returns the most recently recorded email.
func (s *MockSender) GetLastMessage() *MockMessage {
	if len(s.SentMessages) == 0 {
		return nil
	}
	return &s.SentMessages[len(s.SentMessages)-1]
}

// Clear drops recorded messages.
func (s *MockSender) Clear() {
	s.SentMessages = make([]MockMessage, 0)
}
