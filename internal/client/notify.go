package client

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Notifier surfaces problems to the user. Warning is informational; Error is
// used for failed requests.
type Notifier interface {
	Warning(msg string)
	Error(msg string)
}

type nopNotifier struct{}

func (nopNotifier) Warning(string) {}
func (nopNotifier) Error(string)   {}

// LogNotifier writes notifications to a logrus logger.
type LogNotifier struct {
	Logger *logrus.Logger
}

func (n LogNotifier) Warning(msg string) { n.Logger.WithField("type", "notify").Warn(msg) }
func (n LogNotifier) Error(msg string)   { n.Logger.WithField("type", "notify").Error(msg) }

// WriterNotifier prints notifications as plain lines, for terminals.
type WriterNotifier struct {
	W io.Writer
}

func (n WriterNotifier) Warning(msg string) { fmt.Fprintf(n.W, "warning: %s\n", msg) }
func (n WriterNotifier) Error(msg string)   { fmt.Fprintf(n.W, "error: %s\n", msg) }
