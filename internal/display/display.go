// Package display provides terminal formatting for sealmail output.
package display

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sealmail/sealmail/internal/types"
)

var (
	// Styles
	Muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	Bold     = lipgloss.NewStyle().Bold(true)
	Success  = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	ErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))

	UnreadStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2563eb")).Bold(true)
	StarStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
	LockStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	PartialStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
)

// UnreadDot returns a colored dot for a message's read state.
func UnreadDot(unread bool) string {
	if unread {
		return UnreadStyle.Render("●")
	}
	return Dim.Render("·")
}

// StarMark returns the star column for a message.
func StarMark(starred bool) string {
	if starred {
		return StarStyle.Render("★")
	}
	return " "
}

// EncryptionBadge marks end-to-end encrypted messages.
func EncryptionBadge(encrypted bool) string {
	if encrypted {
		return LockStyle.Render("🔒")
	}
	return " "
}

// CacheBadge marks messages whose body is not cached yet.
func CacheBadge(status types.MessageStatus) string {
	if status == types.StatusHeaderOnly {
		return PartialStyle.Render("◌")
	}
	return " "
}

// LocationLabel returns a styled folder name.
func LocationLabel(loc types.Location) string {
	return Muted.Render(fmt.Sprintf("%-8s", loc.String()))
}

// TimeAgo formats a unix timestamp as a relative time.
func TimeAgo(unix int64) string {
	if unix == 0 {
		return ""
	}
	t := time.Unix(unix, 0)
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// Truncate shortens a string to maxLen, adding ellipsis if needed.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// SuccessMsg prints a green checkmark + message.
func SuccessMsg(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(Success.Render("✓") + " " + msg)
}

// ErrorMsg prints a red X + message to stderr.
func ErrorMsg(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, ErrStyle.Render("✗")+" "+msg)
}

// Header prints a section header.
func Header(title string) {
	fmt.Println(Bold.Render(title))
}

// SubHeader prints a dim subsection label.
func SubHeader(title string) {
	fmt.Println(Muted.Render(title))
}

// MessageRow prints one mailbox listing line.
func MessageRow(m *types.Message) {
	sender := Truncate(m.Sender, 28)
	if m.Unread {
		sender = Bold.Render(fmt.Sprintf("%-28s", sender))
	} else {
		sender = fmt.Sprintf("%-28s", sender)
	}
	fmt.Printf("%s %s %s %s  %-28s %s  %s\n",
		UnreadDot(m.Unread),
		StarMark(m.Starred),
		EncryptionBadge(m.IsEncrypted),
		CacheBadge(m.Status),
		sender,
		Truncate(m.Subject, 50),
		Dim.Render(TimeAgo(m.Time)))
}

// MessageBody prints a full message with headers and decrypted body.
func MessageBody(m *types.Message, body string) {
	Header(m.Subject)
	fmt.Printf("%s %s\n", Muted.Render("From:"), m.Sender)
	if m.ToList != "" {
		fmt.Printf("%s   %s\n", Muted.Render("To:"), m.ToList)
	}
	if m.CCList != "" {
		fmt.Printf("%s   %s\n", Muted.Render("Cc:"), m.CCList)
	}
	fmt.Printf("%s %s\n", Muted.Render("Date:"), time.Unix(m.Time, 0).Format(time.RFC1123))
	fmt.Println()
	fmt.Println(strings.TrimSpace(body))
}

// QueueRow prints one action-queue listing line.
func QueueRow(seq int64, kind, target, note string) {
	line := fmt.Sprintf("%4d  %-12s %s", seq, kind, Truncate(target, 40))
	if note != "" {
		line += "  " + Dim.Render(note)
	}
	fmt.Println(line)
}
