package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Mailer はユーザー宛メールの送信。
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

// SMTPMailer はSTARTTLSで送るMailer実装。
type SMTPMailer struct {
	host        string
	port        int
	username    string
	password    string
	from        string
	fromName    string
	useTLS      bool
	frontendURL string
	logger      *zap.Logger
}

func NewSMTPMailer(host string, port int, username, password, from, fromName string, useTLS bool, frontendURL string, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:        host,
		port:        port,
		username:    username,
		password:    password,
		from:        from,
		fromName:    fromName,
		useTLS:      useTLS,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

func (m *SMTPMailer) SendVerificationEmail(ctx context.Context, email, token string) error {
	url := fmt.Sprintf("%s/auth/verify-email?token=%s", m.frontendURL, token)
	body := fmt.Sprintf(`Verify Your Email

Thanks for signing up! Please verify your email address by visiting the link below:

%s

This link will expire in 15 minutes.

If you didn't create an account, you can safely ignore this email.
`, url)
	return m.send(ctx, email, "Verify Your Email Address", body)
}

func (m *SMTPMailer) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	url := fmt.Sprintf("%s/auth/reset-password?token=%s", m.frontendURL, token)
	body := fmt.Sprintf(`Reset Your Password

We received a request to reset your password. Visit the link below to choose a new one:

%s

This link will expire in 15 minutes.

If you didn't request a password reset, you can safely ignore this email. Your password will remain unchanged.
`, url)
	return m.send(ctx, email, "Reset Your Password", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	msg := m.buildMessage(to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	if err := m.deliver(addr, to, msg); err != nil {
		m.logger.Error("failed to send email",
			zap.String("to", to),
			zap.Error(err),
		)
		return err
	}

	m.logger.Info("email sent", zap.String("to", to))
	return nil
}

func (m *SMTPMailer) buildMessage(to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", m.fromName, m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func (m *SMTPMailer) deliver(addr, to string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if m.useTLS {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return err
		}
	}

	if m.username != "" {
		auth := smtp.PlainAuth("", m.username, m.password, m.host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(m.from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return client.Quit()
}

// LogMailer は開発用。送信せずURLをログに出すだけ。
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerificationEmail(_ context.Context, email, token string) error {
	m.logger.Info("verification email (not sent)", zap.String("to", email))
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(_ context.Context, email, token string) error {
	m.logger.Info("password reset email (not sent)", zap.String("to", email))
	return nil
}
