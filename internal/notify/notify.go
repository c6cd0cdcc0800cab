package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/billmal071/mangaunlock/internal/config"
)

// Notification types
const (
	TypeSuccess = "success"
	TypeError   = "error"
	TypeInfo    = "info"
)

const appName = "mangaunlock"

// sendTimeout bounds how long a notifier process may block the caller
const sendTimeout = 5 * time.Second

// dispatch delivers a notification; replaced in tests
var dispatch = sendNotification

// Send shows a desktop notification if enabled in config. It blocks until the
// notifier exits or sendTimeout passes.
func Send(title, message, notifyType string) {
	if !config.Get().Notifications.Enabled {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	dispatch(ctx, title, message, notifyType)
}

// BatchComplete reports a batch that unlocked every pending chapter
func BatchComplete(comic string, unlocked int) {
	Send("Chapters Unlocked", fmt.Sprintf("%s: %d chapter(s) unlocked", comic, unlocked), TypeSuccess)
}

// BatchFailed reports a batch that stopped early
func BatchFailed(comic string, unlocked int, reason string) {
	msg := fmt.Sprintf("%s: stopped after %d chapter(s)", comic, unlocked)
	if reason != "" {
		msg += ": " + reason
	}
	Send("Purchase Failed", msg, TypeError)
}

func sendNotification(ctx context.Context, title, message, notifyType string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = linuxNotification(ctx, title, message, notifyType)
	case "darwin":
		cmd = macNotification(ctx, title, message)
	case "windows":
		cmd = windowsNotification(ctx, title, message)
	default:
		return
	}
	_ = cmd.Run()
}

func linuxNotification(ctx context.Context, title, message, notifyType string) *exec.Cmd {
	icon := "dialog-information"
	switch notifyType {
	case TypeSuccess:
		icon = "dialog-ok"
	case TypeError:
		icon = "dialog-error"
	}

	return exec.CommandContext(ctx, "notify-send", "-i", icon, "-a", appName, title, message)
}

func macNotification(ctx context.Context, title, message string) *exec.Cmd {
	script := `display notification "` + escapeAppleScript(message) + `" with title "` + escapeAppleScript(title) + `"`
	return exec.CommandContext(ctx, "osascript", "-e", script)
}

func windowsNotification(ctx context.Context, title, message string) *exec.Cmd {
	script := `
	[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
	[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
	$template = '<toast><visual><binding template="ToastText02"><text id="1">` + escapeXML(title) + `</text><text id="2">` + escapeXML(message) + `</text></binding></visual></toast>'
	$xml = New-Object Windows.Data.Xml.Dom.XmlDocument
	$xml.LoadXml($template)
	$toast = [Windows.UI.Notifications.ToastNotification]::new($xml)
	[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("` + appName + `").Show($toast)
	`
	return exec.CommandContext(ctx, "powershell", "-Command", script)
}

var appleScriptEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeAppleScript(s string) string {
	return appleScriptEscaper.Replace(s)
}

var xmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
