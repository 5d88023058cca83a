package services

import (
	"fmt"
	"net/smtp"
	"os"
)

// Mailer は通知メール送信の抽象です。テストでは記録用フェイクに差し替えます。
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer は net/smtp によるMailer実装です。
type SMTPMailer struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewSMTPMailer は環境変数からSMTP設定を読み込んでSMTPMailerを作成します。
func NewSMTPMailer() *SMTPMailer {
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "noreply@yourapp.com"
	}
	return &SMTPMailer{
		host: os.Getenv("SMTP_HOST"),
		port: port,
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASS"),
		from: from,
	}
}

// Send はHTMLメールを1通送信します。
func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	message := []byte(fmt.Sprintf(
		"From: LMS App <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		m.from, to, subject, htmlBody,
	))

	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
