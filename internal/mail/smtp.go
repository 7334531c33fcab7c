package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var resetTemplate = template.Must(template.New("reset").Parse(`<html>
<body>
<p>Hello,</p>
<p>We received a request to reset the password of your poetry catalog account.</p>
<p><a href="{{.Link}}">Reset your password</a></p>
<p>If you did not ask for this, you can ignore this message.</p>
</body>
</html>
`))

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ResetURL string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers reset messages through an SMTP relay.
type SMTPSender struct {
	cfg  SMTPConfig
	send sendFunc
	now  func() time.Time
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("mail: smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("mail: from address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg, send: smtp.SendMail, now: time.Now}, nil
}

func (s *SMTPSender) SendResetPasswordEmail(ctx context.Context, address, token string) (Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return Confirmation{}, err
	}
	var body bytes.Buffer
	if err := resetTemplate.Execute(&body, struct{ Link string }{ResetLink(s.cfg.ResetURL, address, token)}); err != nil {
		return Confirmation{}, fmt.Errorf("render reset email: %w", err)
	}

	conf := Confirmation{
		MessageID: uuid.NewString(),
		Recipient: address,
		SentAt:    s.now().UTC(),
	}
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", address)
	fmt.Fprintf(&msg, "Subject: Reset your password\r\n")
	fmt.Fprintf(&msg, "Message-ID: <%s@%s>\r\n", conf.MessageID, s.cfg.Host)
	fmt.Fprintf(&msg, "Date: %s\r\n", conf.SentAt.Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.Write(body.Bytes())

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	if err := s.send(addr, auth, s.cfg.From, []string{address}, msg.Bytes()); err != nil {
		return Confirmation{}, fmt.Errorf("send reset email: %w", err)
	}
	return conf, nil
}
