// Package event defines the inbound event schema and recognizes deployment
// notifications among the messages of a channel.
package event

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedEvent marks an event that is not a deployment notification.
// Callers skip such events; it is never reported as a failure.
var ErrUnsupportedEvent = errors.New("unsupported event")

// TypeMessage is the only event type that can carry a notification.
const TypeMessage = "message"

// Subtypes that describe edits of earlier messages rather than new ones.
var ignoredSubtypes = map[string]bool{
	"message_changed": true,
	"message_deleted": true,
	"message_replied": true,
}

// Field is one labeled value of an attachment.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Attachment is a titled list of fields.
type Attachment struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Event is a generic inbound chat event.
type Event struct {
	Channel     string       `json:"channel"`
	Type        string       `json:"type"`
	SubType     string       `json:"subtype,omitempty"`
	User        string       `json:"user,omitempty"`
	BotID       string       `json:"bot_id,omitempty"`
	Timestamp   string       `json:"ts,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Notification is the data extracted from a recognized deployment message.
type Notification struct {
	Channel     string
	Title       string
	Environment string
	Branch      string
	Deployer    string
	Timestamp   string
}

// Labels names the attachment fields holding each value.
type Labels struct {
	Environment string
	Branch      string
	Deployer    string
}

// Positions used when an attachment does not label its fields.
const (
	environmentPosition = 0
	branchPosition      = 1
	deployerPosition    = 2
)

// Filter recognizes deployment notifications posted to one channel.
type Filter struct {
	Channel     string
	TitlePrefix string
	Labels      Labels
}

// Match extracts the notification carried by ev. Any event that is not a
// deployment notification for the filter's channel yields an error wrapping
// ErrUnsupportedEvent.
func (f *Filter) Match(ev Event) (Notification, error) {
	if ev.Channel != f.Channel {
		return Notification{}, fmt.Errorf("%w: channel %q is not %q", ErrUnsupportedEvent, ev.Channel, f.Channel)
	}
	if ev.Type != TypeMessage {
		return Notification{}, fmt.Errorf("%w: type %q", ErrUnsupportedEvent, ev.Type)
	}
	if ignoredSubtypes[ev.SubType] {
		return Notification{}, fmt.Errorf("%w: subtype %q", ErrUnsupportedEvent, ev.SubType)
	}
	if len(ev.Attachments) == 0 {
		return Notification{}, fmt.Errorf("%w: no attachments", ErrUnsupportedEvent)
	}

	att := ev.Attachments[0]
	if att.Title == "" {
		return Notification{}, fmt.Errorf("%w: attachment has no title", ErrUnsupportedEvent)
	}
	if !strings.HasPrefix(att.Title, f.TitlePrefix) {
		return Notification{}, fmt.Errorf("%w: title %q does not start with %q", ErrUnsupportedEvent, att.Title, f.TitlePrefix)
	}

	environment, ok := fieldValue(att.Fields, f.Labels.Environment, environmentPosition)
	if !ok || environment == "" {
		return Notification{}, fmt.Errorf("%w: missing environment field", ErrUnsupportedEvent)
	}
	branch, ok := fieldValue(att.Fields, f.Labels.Branch, branchPosition)
	if !ok || branch == "" {
		return Notification{}, fmt.Errorf("%w: missing branch field", ErrUnsupportedEvent)
	}
	deployer, _ := fieldValue(att.Fields, f.Labels.Deployer, deployerPosition)

	return Notification{
		Channel:     ev.Channel,
		Title:       att.Title,
		Environment: environment,
		Branch:      branch,
		Deployer:    deployer,
		Timestamp:   ev.Timestamp,
	}, nil
}

// fieldValue finds a field by label, falling back to its position when no
// field carries the label.
func fieldValue(fields []Field, label string, position int) (string, bool) {
	if label != "" {
		for _, field := range fields {
			if strings.EqualFold(strings.TrimSpace(field.Label), label) {
				return strings.TrimSpace(field.Value), true
			}
		}
	}
	if position < len(fields) {
		return strings.TrimSpace(fields[position].Value), true
	}
	return "", false
}
