package mail

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Confirmation describes a dispatched message.
type Confirmation struct {
	MessageID string    `json:"messageId"`
	Recipient string    `json:"recipient"`
	SentAt    time.Time `json:"sentAt"`
}

// Sender delivers password reset messages.
type Sender interface {
	SendResetPasswordEmail(ctx context.Context, address, token string) (Confirmation, error)
}

// ResetLink builds the link embedded in reset messages.
func ResetLink(base, address, token string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "http://localhost:3000/reset-password"
	}
	q := url.Values{}
	q.Set("email", address)
	q.Set("token", token)
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

// LogSender writes reset links to the log instead of sending mail.
type LogSender struct {
	Logger   *logrus.Logger
	ResetURL string
}

func (s LogSender) SendResetPasswordEmail(_ context.Context, address, token string) (Confirmation, error) {
	conf := Confirmation{
		MessageID: uuid.NewString(),
		Recipient: address,
		SentAt:    time.Now().UTC(),
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"message_id": conf.MessageID,
			"recipient":  address,
			"link":       ResetLink(s.ResetURL, address, token),
		}).Info("password reset email")
	}
	return conf, nil
}
