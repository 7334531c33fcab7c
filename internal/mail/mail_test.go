package mail

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"net/url"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestResetLinkEscapesQuery(t *testing.T) {
	link := ResetLink("https://poems.example/reset", "a+b@example.com", "tok.en")
	u, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, "a+b@example.com", u.Query().Get("email"))
	require.Equal(t, "tok.en", u.Query().Get("token"))

	withQuery := ResetLink("https://poems.example/reset?lang=zh", "x@example.com", "t")
	require.Contains(t, withQuery, "?lang=zh&")
}

func TestSMTPSenderComposesMessage(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example", From: "noreply@example", Username: "u", Password: "p", ResetURL: "https://poems.example/reset"})
	require.NoError(t, err)

	var (
		gotAddr string
		gotTo   []string
		gotMsg  []byte
	)
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		require.NotNil(t, a)
		return nil
	}

	conf, err := s.SendResetPasswordEmail(context.Background(), "poet@example.com", "reset-token")
	require.NoError(t, err)
	require.Equal(t, "poet@example.com", conf.Recipient)
	require.NotEmpty(t, conf.MessageID)
	require.Equal(t, "smtp.example:587", gotAddr)
	require.Equal(t, []string{"poet@example.com"}, gotTo)
	require.True(t, strings.Contains(string(gotMsg), "token=reset-token"))
	require.True(t, strings.Contains(string(gotMsg), "Message-ID: <"+conf.MessageID))
}

func TestSMTPSenderPropagatesFailure(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example", From: "noreply@example"})
	require.NoError(t, err)
	boom := errors.New("relay down")
	s.send = func(string, smtp.Auth, string, []string, []byte) error { return boom }

	_, err = s.SendResetPasswordEmail(context.Background(), "poet@example.com", "t")
	require.ErrorIs(t, err, boom)
}

func TestNewSMTPSenderValidates(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{From: "x@example"})
	require.Error(t, err)
	_, err = NewSMTPSender(SMTPConfig{Host: "smtp.example"})
	require.Error(t, err)
}

func TestLogSenderLogsLink(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	conf, err := LogSender{Logger: logger}.SendResetPasswordEmail(context.Background(), "poet@example.com", "tok")
	require.NoError(t, err)
	require.Equal(t, "poet@example.com", conf.Recipient)
	require.Contains(t, buf.String(), "token=tok")
}
