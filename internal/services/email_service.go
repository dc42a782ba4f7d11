package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"shopauth/internal/config"
	"shopauth/internal/models"
)

type EmailService interface {
	SendCode(ctx context.Context, to, code string, purpose models.OTPPurpose) error
}

type codeMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// sendFunc delivers one rendered message through a concrete provider.
type sendFunc func(ctx context.Context, msg codeMessage) error

type emailService struct {
	send  sendFunc
	brand string
	ttl   time.Duration
}

// NewEmailService picks the provider named in cfg.Provider.
// codeTTL only feeds the "expires in" line of the message.
func NewEmailService(cfg config.EmailConfig, codeTTL time.Duration, log *zap.Logger) (EmailService, error) {
	log = log.Named("email")
	from := cfg.FromEmail
	if cfg.FromName != "" && cfg.FromEmail != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}

	var send sendFunc
	switch cfg.Provider {
	case "smtp":
		send = smtpSender(gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword), from)
	case "resend":
		send = resendSender(resend.NewClient(cfg.APIKey), from)
	case "sendgrid":
		send = sendgridSender(sendgrid.NewSendClient(cfg.APIKey), mail.NewEmail(cfg.FromName, cfg.FromEmail))
	case "log":
		send = logSender(log)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
	log.Info("email provider ready", zap.String("provider", cfg.Provider))

	return &emailService{send: send, brand: cfg.FromName, ttl: codeTTL}, nil
}

func (s *emailService) SendCode(ctx context.Context, to, code string, purpose models.OTPPurpose) error {
	msg, err := renderCode(s.brand, to, code, purpose, s.ttl)
	if err != nil {
		return err
	}
	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("send %s code: %w", purpose, err)
	}
	return nil
}

var codeTemplate = template.Must(template.New("code").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); padding: 20px; text-align: center;">
    <h1 style="color: white; margin: 0;">{{.Brand}}</h1>
  </div>
  <div style="padding: 30px; background: #f8f9fa;">
    <h2 style="color: #333; margin-bottom: 20px;">{{.Subject}}</h2>
    <p style="color: #666; margin-bottom: 20px;">Your code for {{.Action}} is:</p>
    <div style="background: #fff; padding: 20px; border-radius: 8px; text-align: center; margin: 20px 0;">
      <h1 style="color: #667eea; font-size: 32px; letter-spacing: 8px; margin: 0;">{{.Code}}</h1>
    </div>
    <p style="color: #666; font-size: 14px;">This code will expire in {{.Minutes}} minutes. If you didn't request this, please ignore this email.</p>
  </div>
</div>`))

func renderCode(brand, to, code string, purpose models.OTPPurpose, ttl time.Duration) (codeMessage, error) {
	subject, action := "Email Verification OTP", "email verification"
	if purpose == models.PurposePasswordReset {
		subject, action = "Password Reset OTP", "password reset"
	}
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	var buf bytes.Buffer
	err := codeTemplate.Execute(&buf, struct {
		Brand, Subject, Action, Code string
		Minutes                      int
	}{brand, subject, action, code, minutes})
	if err != nil {
		return codeMessage{}, fmt.Errorf("render email: %w", err)
	}

	return codeMessage{
		To:      to,
		Subject: subject,
		HTML:    buf.String(),
		Text:    fmt.Sprintf("Your code for %s is %s. It expires in %d minutes.", action, code, minutes),
	}, nil
}

func smtpSender(dialer *gomail.Dialer, from string) sendFunc {
	return func(_ context.Context, msg codeMessage) error {
		m := gomail.NewMessage()
		m.SetHeader("From", from)
		m.SetHeader("To", msg.To)
		m.SetHeader("Subject", msg.Subject)
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
		return dialer.DialAndSend(m)
	}
}

func resendSender(client *resend.Client, from string) sendFunc {
	return func(_ context.Context, msg codeMessage) error {
		_, err := client.Emails.Send(&resend.SendEmailRequest{
			From:    from,
			To:      []string{msg.To},
			Subject: msg.Subject,
			Html:    msg.HTML,
			Text:    msg.Text,
		})
		return err
	}
}

func sendgridSender(client *sendgrid.Client, from *mail.Email) sendFunc {
	return func(ctx context.Context, msg codeMessage) error {
		message := mail.NewSingleEmail(from, msg.Subject, mail.NewEmail("", msg.To), msg.Text, msg.HTML)
		resp, err := client.SendWithContext(ctx, message)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("sendgrid status %d", resp.StatusCode)
		}
		return nil
	}
}

// logSender пишет код в лог вместо отправки. Только для локальной разработки.
func logSender(log *zap.Logger) sendFunc {
	return func(_ context.Context, msg codeMessage) error {
		log.Warn("email delivery disabled, code logged",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.String("text", msg.Text),
		)
		return nil
	}
}
