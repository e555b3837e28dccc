package event

import (
	"errors"
	"testing"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

const testChannel = "C0E437QDD"

func testFilter() *Filter {
	return &Filter{
		Channel:     testChannel,
		TitlePrefix: "New version deployed",
		Labels:      Labels{Environment: "Environment", Branch: "Branch", Deployer: "Deployer"},
	}
}

func deployEvent(fields ...Field) Event {
	return Event{
		Channel:   testChannel,
		Type:      TypeMessage,
		Timestamp: "1700000000.000100",
		Attachments: []Attachment{{
			Title:  "New version deployed to web",
			Fields: fields,
		}},
	}
}

func TestFilter_MatchLabeledFields(t *testing.T) {
	ev := deployEvent(
		Field{Label: "Deployer", Value: "Ada"},
		Field{Label: "Environment", Value: "staging"},
		Field{Label: "Branch", Value: " develop "},
	)

	n, err := testFilter().Match(ev)
	if err != nil {
		t.Fatalf("Expected event to match, got %v", err)
	}
	if n.Environment != "staging" || n.Branch != "develop" || n.Deployer != "Ada" {
		t.Errorf("Unexpected notification: %+v", n)
	}
	if n.Channel != testChannel || n.Timestamp != "1700000000.000100" {
		t.Errorf("Expected channel and timestamp to be carried, got %+v", n)
	}
}

func TestFilter_MatchPositionalFields(t *testing.T) {
	ev := deployEvent(
		Field{Label: "Env", Value: "feature"},
		Field{Label: "Ref", Value: "feature/login"},
		Field{Label: "By", Value: "Grace"},
	)

	n, err := testFilter().Match(ev)
	if err != nil {
		t.Fatalf("Expected event to match, got %v", err)
	}
	if n.Environment != "feature" || n.Branch != "feature/login" || n.Deployer != "Grace" {
		t.Errorf("Unexpected notification: %+v", n)
	}
}

func TestFilter_MissingDeployerIsOptional(t *testing.T) {
	ev := deployEvent(
		Field{Label: "Environment", Value: "staging"},
		Field{Label: "Branch", Value: "develop"},
	)

	n, err := testFilter().Match(ev)
	if err != nil {
		t.Fatalf("Expected event to match, got %v", err)
	}
	if n.Deployer != "" {
		t.Errorf("Expected empty deployer, got %q", n.Deployer)
	}
}

func TestFilter_Unsupported(t *testing.T) {
	valid := deployEvent(
		Field{Label: "Environment", Value: "staging"},
		Field{Label: "Branch", Value: "develop"},
	)

	testCases := []struct {
		name   string
		mutate func(ev *Event)
	}{
		{"other channel", func(ev *Event) { ev.Channel = "C999" }},
		{"not a message", func(ev *Event) { ev.Type = "reaction_added" }},
		{"edited message", func(ev *Event) { ev.SubType = "message_changed" }},
		{"no attachments", func(ev *Event) { ev.Attachments = nil }},
		{"no title", func(ev *Event) { ev.Attachments[0].Title = "" }},
		{"other title", func(ev *Event) { ev.Attachments[0].Title = "Build failed" }},
		{"no fields", func(ev *Event) { ev.Attachments[0].Fields = nil }},
		{"only environment", func(ev *Event) { ev.Attachments[0].Fields = ev.Attachments[0].Fields[:1] }},
		{"empty branch", func(ev *Event) { ev.Attachments[0].Fields[1].Value = "  " }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ev := valid
			ev.Attachments = []Attachment{{
				Title:  valid.Attachments[0].Title,
				Fields: append([]Field(nil), valid.Attachments[0].Fields...),
			}}
			tc.mutate(&ev)

			_, err := testFilter().Match(ev)
			if !errors.Is(err, ErrUnsupportedEvent) {
				t.Errorf("Expected ErrUnsupportedEvent, got %v", err)
			}
		})
	}
}

func TestFromMessageEvent(t *testing.T) {
	ev := FromMessageEvent(&slackevents.MessageEvent{
		Type:      "message",
		Channel:   testChannel,
		SubType:   "bot_message",
		BotID:     "B123",
		TimeStamp: "1700000000.000100",
		Attachments: []slack.Attachment{{
			Title: "New version deployed",
			Fields: []slack.AttachmentField{
				{Title: "Environment", Value: "staging"},
				{Title: "Branch", Value: "develop"},
			},
		}},
	})

	if ev.Channel != testChannel || ev.SubType != "bot_message" || ev.BotID != "B123" {
		t.Errorf("Unexpected event header: %+v", ev)
	}
	if len(ev.Attachments) != 1 || len(ev.Attachments[0].Fields) != 2 {
		t.Fatalf("Expected one attachment with two fields, got %+v", ev.Attachments)
	}
	if ev.Attachments[0].Fields[1].Label != "Branch" || ev.Attachments[0].Fields[1].Value != "develop" {
		t.Errorf("Unexpected field: %+v", ev.Attachments[0].Fields[1])
	}

	if _, err := testFilter().Match(ev); err != nil {
		t.Errorf("Expected converted event to match, got %v", err)
	}
}
