package ui

import (
	"fmt"
	"os/exec"
	"runtime"

	"skycrawl/pkg/crawler"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// execSender runs a platform notification command
type execSender struct {
	command func(title, message string) *exec.Cmd
}

func (e execSender) Send(title, message string) error {
	return e.command(title, message).Run()
}

// platformSender returns the sender for the current OS, or nil
func platformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return execSender{func(title, message string) *exec.Cmd {
			return exec.Command("notify-send", title, message)
		}}
	case "darwin":
		return execSender{func(title, message string) *exec.Cmd {
			script := fmt.Sprintf("display notification %q with title %q", message, title)
			return exec.Command("osascript", "-e", script)
		}}
	default:
		return nil
	}
}

// Notifier sends a desktop notification when a run completes. It wraps
// another observer and forwards every callback to it.
type Notifier struct {
	crawler.Observer
	sender NotificationSender
}

// NewNotifier wraps next with desktop notifications for the current platform
func NewNotifier(next crawler.Observer) *Notifier {
	return NewNotifierWithSender(next, platformSender())
}

// NewNotifierWithSender wraps next with an explicit sender
func NewNotifierWithSender(next crawler.Observer, sender NotificationSender) *Notifier {
	if next == nil {
		next = crawler.NopObserver{}
	}
	return &Notifier{Observer: next, sender: sender}
}

// Done forwards the summary and then notifies
func (n *Notifier) Done(summary crawler.Summary) {
	n.Observer.Done(summary)
	if n.sender == nil {
		return
	}
	// Notifications are best effort
	_ = n.sender.Send("skycrawl finished",
		fmt.Sprintf("%d users and %d posts collected from %s", summary.Users, summary.Posts, summary.Seed))
}
