package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"knbackup/pkg/backup"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast><visual><binding template="ToastText02">
	<text id="1">%s</text>
	<text id="2">%s</text>
</binding></visual></toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("knbackup").Show($toast)
	`, xmlEscape(title), xmlEscape(message))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// Notifier prints run outcomes and, when enabled, mirrors them to the desktop
type Notifier struct {
	sender  NotificationSender
	enabled bool
}

// NewNotifier creates a Notifier for the current platform. Desktop
// notifications are sent only when enabled is set.
func NewNotifier(enabled bool) *Notifier {
	var sender NotificationSender

	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}

	return &Notifier{sender: sender, enabled: enabled}
}

// NewNotifierWithSender creates a Notifier that always uses sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, enabled: sender != nil}
}

func (n *Notifier) send(title, message string) {
	if n.enabled && n.sender != nil {
		// desktop delivery is best effort
		_ = n.sender.Send(title, message)
	}
}

// SendSuccess prints a success line and notifies
func (n *Notifier) SendSuccess(title, message string) {
	fmt.Fprintf(Output, "\n%s: %s\n", Green(title), Green(message))
	n.send(title, message)
}

// SendError prints an error line and notifies
func (n *Notifier) SendError(title, message string) {
	fmt.Fprintf(Output, "\n%s: %s\n", Red(title), Red(message))
	n.send(title, message)
}

// RunFinished reports the end of a backup run
func (n *Notifier) RunFinished(s *backup.Summary, err error) {
	switch {
	case err != nil:
		n.SendError("Backup failed", err.Error())
	case s.AllChildrenFailed():
		n.SendError("Backup failed", fmt.Sprintf("no child could be backed up (%d errors)", len(s.Errors)))
	case s.ImagesFailed > 0 || s.ChildrenFailed > 0:
		n.SendError("Backup finished with errors",
			fmt.Sprintf("%d reports, %d images failed, %d children failed", s.Reports, s.ImagesFailed, s.ChildrenFailed))
	default:
		n.SendSuccess("Backup complete",
			fmt.Sprintf("%d reports, %d new images", s.Reports, s.ImagesFetched))
	}
}
