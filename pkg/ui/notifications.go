package ui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"tmscraper/pkg/config"
)

// notifyTimeout bounds a single desktop notification command
const notifyTimeout = 5 * time.Second

// NotificationSender delivers one desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// CommandSender shows notifications by running a platform tool
// (notify-send, osascript or powershell).
type CommandSender struct {
	goos string
}

// NewCommandSender returns a sender for goos, or nil when the platform has
// no supported notification tool.
func NewCommandSender(goos string) *CommandSender {
	switch goos {
	case "linux", "darwin", "windows":
		return &CommandSender{goos: goos}
	}
	return nil
}

// Send runs the platform tool
func (c *CommandSender) Send(title, message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	name, args := notifyCommand(c.goos, title, message)
	if name == "" {
		return fmt.Errorf("notifications are not supported on %s", c.goos)
	}
	return exec.CommandContext(ctx, name, args...).Run()
}

// notifyCommand returns the program and arguments showing one notification
func notifyCommand(goos, title, message string) (string, []string) {
	switch goos {
	case "linux":
		return "notify-send", []string{"--app-name=tmscraper", title, message}
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleQuote(message), appleQuote(title))
		return "osascript", []string{"-e", script}
	case "windows":
		return "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", toastScript(title, message)}
	}
	return "", nil
}

func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func toastScript(title, message string) string {
	esc := func(s string) string {
		r := strings.NewReplacer("`", "``", "$", "`$", "\"", "`\"")
		return r.Replace(s)
	}
	return strings.Join([]string{
		"[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null",
		"$t = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)",
		fmt.Sprintf(`$t.GetElementsByTagName("text")[0].AppendChild($t.CreateTextNode("%s")) | Out-Null`, esc(title)),
		fmt.Sprintf(`$t.GetElementsByTagName("text")[1].AppendChild($t.CreateTextNode("%s")) | Out-Null`, esc(message)),
		`[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("tmscraper").Show([Windows.UI.Notifications.ToastNotification]::new($t))`,
	}, "; ")
}

// Notifier reports finished runs on the terminal and, when enabled, as a
// desktop notification.
type Notifier struct {
	sender     NotificationSender
	onComplete bool
	onError    bool
}

// NewNotifier uses the command sender for the running platform. With
// notifications disabled the Notifier only prints.
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	n := &Notifier{onComplete: cfg.OnComplete, onError: cfg.OnError}
	if cfg.Enabled {
		if s := NewCommandSender(runtime.GOOS); s != nil {
			n.sender = s
		}
	}
	return n
}

// NewNotifierWithSender is NewNotifier with an explicit sender
func NewNotifierWithSender(sender NotificationSender, cfg config.NotificationConfig) *Notifier {
	return &Notifier{sender: sender, onComplete: cfg.OnComplete, onError: cfg.OnError}
}

// SendSuccess reports a finished run
func (n *Notifier) SendSuccess(title, message string) {
	PrintSuccess(fmt.Sprintf("%s: %s", title, message))
	if n.sender != nil && n.onComplete {
		_ = n.sender.Send(title, message)
	}
}

// SendError reports a failed run
func (n *Notifier) SendError(title, message string) {
	PrintError(title, message)
	if n.sender != nil && n.onError {
		_ = n.sender.Send(title, message)
	}
}
