// Package render builds the channel status summary posted after each
// deployment notification.
package render

import (
	"strings"
	"time"

	"deplog/internal/channel"
	"deplog/pkg/templates"
)

const (
	blockPrefix   = "\n \n"
	lineSeparator = " \n\n"
)

// Mainline decides which branches count as ready.
type Mainline struct {
	Names    []string
	Prefixes []string
}

// Matches reports whether branch is a mainline name or starts with one of
// the release-candidate prefixes.
func (m Mainline) Matches(branch string) bool {
	if branch == "" {
		return false
	}
	for _, name := range m.Names {
		if branch == name {
			return true
		}
	}
	for _, prefix := range m.Prefixes {
		if prefix != "" && strings.HasPrefix(branch, prefix) {
			return true
		}
	}
	return false
}

// Renderer formats channel records. It has no side effects; rendering the
// same record twice yields the same text.
type Renderer struct {
	Environments []string // rendered in this order
	Mainline     Mainline
	ActiveIcon   string
	DefaultIcon  string
	LineTemplate string
	Header       string // optional, may use {{CHANNEL}}
	TimeLayout   string
	Location     *time.Location
}

// Render builds the summary for record. A nil record renders every
// environment as empty.
func (r *Renderer) Render(record *channel.Record) string {
	var b strings.Builder
	b.WriteString(blockPrefix)

	if r.Header != "" {
		channelID := ""
		if record != nil {
			channelID = record.Channel
		}
		b.WriteString(templates.Expand(r.Header, templates.TemplateData{"CHANNEL": channelID}))
		b.WriteString(lineSeparator)
	}

	for i, env := range r.Environments {
		var slot channel.Slot
		if record != nil {
			slot = record.Slots[env]
		}
		if i > 0 {
			b.WriteString(lineSeparator)
		}
		b.WriteString(r.Line(env, slot))
	}

	return b.String()
}

// Line renders one environment.
func (r *Renderer) Line(env string, slot channel.Slot) string {
	return templates.Expand(r.LineTemplate, templates.TemplateData{
		"ICON":     r.Icon(slot.Branch),
		"ENV":      EscapeMrkdwn(env),
		"BRANCH":   EscapeMrkdwn(slot.Branch),
		"DEPLOYER": EscapeMrkdwn(slot.Deployer),
		"DEPLOYED": r.formatTime(slot.DeployedAt),
		"COMMIT":   EscapeMrkdwn(slot.Commit),
	})
}

// Icon returns the icon for a branch.
func (r *Renderer) Icon(branch string) string {
	if r.Mainline.Matches(branch) {
		return r.ActiveIcon
	}
	return r.DefaultIcon
}

func (r *Renderer) formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if r.Location != nil {
		t = t.In(r.Location)
	}
	return t.Format(r.TimeLayout)
}

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeMrkdwn escapes the three characters Slack reserves in message text.
func EscapeMrkdwn(s string) string {
	return mrkdwnEscaper.Replace(s)
}
