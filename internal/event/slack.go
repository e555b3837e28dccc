package event

import (
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// FromMessageEvent converts a Slack message event into an Event.
func FromMessageEvent(ev *slackevents.MessageEvent) Event {
	return Event{
		Channel:     ev.Channel,
		Type:        ev.Type,
		SubType:     ev.SubType,
		User:        ev.User,
		BotID:       ev.BotID,
		Timestamp:   ev.TimeStamp,
		Text:        ev.Text,
		Attachments: FromAttachments(ev.Attachments),
	}
}

// FromAttachments converts Slack message attachments.
func FromAttachments(in []slack.Attachment) []Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]Attachment, 0, len(in))
	for _, a := range in {
		att := Attachment{Title: a.Title}
		for _, f := range a.Fields {
			att.Fields = append(att.Fields, Field{Label: f.Title, Value: f.Value})
		}
		out = append(out, att)
	}
	return out
}
