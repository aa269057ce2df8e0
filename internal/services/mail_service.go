package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strings"
	texttemplate "text/template"
	"time"

	"zubari/internal/config"
	"zubari/internal/models/db_models"
)

type IMailService interface {
	SendPremiumActivated(to string, plan db_models.Plan, expiresAt time.Time) error
}

type smtpMailService struct {
	cfg     config.SMTPConfig
	htmlTpl *template.Template
	textTpl *texttemplate.Template
}

// NewMailService returns a no-op sender when SMTP is not configured.
func NewMailService(cfg config.SMTPConfig) IMailService {
	if cfg.Host == "" {
		return noopMailService{}
	}
	return &smtpMailService{
		cfg:     cfg,
		htmlTpl: template.Must(template.New("html").Parse(activationHTMLTemplate)),
		textTpl: texttemplate.Must(texttemplate.New("text").Parse(activationTextTemplate)),
	}
}

type noopMailService struct{}

func (noopMailService) SendPremiumActivated(string, db_models.Plan, time.Time) error { return nil }

type EmailData struct {
	Title     string
	Intro     string
	ButtonURL string
	ButtonTxt string
	AppName   string
	Year      int
}

func (s *smtpMailService) SendPremiumActivated(to string, plan db_models.Plan, expiresAt time.Time) error {
	subject := "Your premium access is active"
	html, text, err := s.renderEmail(EmailData{
		Title: subject,
		Intro: fmt.Sprintf("Thanks for upgrading to the %s plan. You now have unlimited study tools until %s.",
			plan, expiresAt.UTC().Format("2 January 2006")),
		ButtonURL: strings.TrimRight(s.cfg.BaseURL, "/") + "/dashboard",
		ButtonTxt: "Start studying",
		AppName:   s.cfg.AppName,
		Year:      time.Now().Year(),
	})
	if err != nil {
		return err
	}
	return s.send(to, subject, html, text)
}

const activationHTMLTemplate = `<!doctype html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <title>{{.Title}}</title>
</head>
<body style="margin:0;padding:32px 16px;background:#f1f5f9;font-family:-apple-system,Segoe UI,Roboto,Arial,sans-serif;color:#0f172a">
  <div style="max-width:560px;margin:0 auto;background:#ffffff;border-radius:12px;padding:32px">
    <div style="font-weight:700;color:#2563eb;text-transform:uppercase;letter-spacing:.5px">{{.AppName}}</div>
    <h1 style="font-size:24px;margin:24px 0 12px">{{.Title}}</h1>
    <p style="line-height:1.6;color:#475569">{{.Intro}}</p>
    {{if .ButtonURL}}
    <p style="margin:28px 0">
      <a href="{{.ButtonURL}}" style="display:inline-block;padding:14px 28px;background:#2563eb;color:#ffffff;text-decoration:none;border-radius:10px;font-weight:600">{{.ButtonTxt}}</a>
    </p>
    {{end}}
    <p style="font-size:12px;color:#94a3b8;margin-top:32px">© {{.Year}} {{.AppName}}</p>
  </div>
</body>
</html>`

const activationTextTemplate = `{{.Title}}

{{.Intro}}
{{if .ButtonURL}}
{{.ButtonTxt}}: {{.ButtonURL}}
{{end}}
{{.AppName}} (c) {{.Year}}
`

func (s *smtpMailService) renderEmail(data EmailData) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := s.htmlTpl.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := s.textTpl.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

func (s *smtpMailService) send(to, subject, htmlBody, textBody string) error {
	boundary := fmt.Sprintf("alt_%d", time.Now().UnixNano())

	var msg bytes.Buffer
	write := func(format string, a ...any) { _, _ = fmt.Fprintf(&msg, format, a...) }

	write("From: %s\r\n", s.fromHeader())
	write("To: %s\r\n", to)
	write("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject))
	write("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	write("MIME-Version: 1.0\r\n")
	write("Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	write("--%s\r\n", boundary)
	write("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	write("%s\r\n\r\n", textBody)

	write("--%s\r\n", boundary)
	write("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	write("%s\r\n\r\n", htmlBody)
	write("--%s--\r\n", boundary)

	c, err := s.dial()
	if err != nil {
		return err
	}
	defer c.Quit()

	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		return err
	}
	return w.Close()
}

// dial uses implicit TLS on 465 and STARTTLS, when offered, elsewhere.
func (s *smtpMailService) dial() (*smtp.Client, error) {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	tlsCfg := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	if s.cfg.Port == 465 {
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsCfg)
		if err != nil {
			return nil, err
		}
		return smtp.NewClient(conn, s.cfg.Host)
	}

	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(tlsCfg); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

func (s *smtpMailService) fromHeader() string {
	name := strings.TrimSpace(s.cfg.AppName)
	if name == "" {
		return s.cfg.From
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("UTF-8", name), s.cfg.From)
}
