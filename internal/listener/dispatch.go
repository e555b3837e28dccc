package listener

import (
	"context"
	"fmt"
	"log/slog"

	"deplog/internal/event"
	"deplog/internal/tracker"

	"github.com/slack-go/slack/slackevents"
)

// EventHandler applies inbound channel messages.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev event.Event) (tracker.Outcome, error)
}

// CommandHandler answers @mentions.
type CommandHandler interface {
	Handle(ctx context.Context, channelID, text string) error
}

// Dispatcher routes Events API payloads, from either Socket Mode or HTTP,
// to the tracker and the command handler.
type Dispatcher struct {
	events   EventHandler
	commands CommandHandler
	botID    string // our own bot ID, whose messages are never processed
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. commands may be nil to disable
// @mention commands.
func NewDispatcher(events EventHandler, commands CommandHandler, botID string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		events:   events,
		commands: commands,
		botID:    botID,
		logger:   logger,
	}
}

// Dispatch handles one Events API payload. Only processing failures are
// returned; payloads that carry nothing of interest are dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, apiEvent slackevents.EventsAPIEvent) error {
	if apiEvent.Type != slackevents.CallbackEvent {
		d.logger.Debug("Ignoring non-callback event", "type", apiEvent.Type)
		return nil
	}

	switch ev := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		if d.botID != "" && ev.BotID == d.botID {
			return nil
		}
		outcome, err := d.events.HandleEvent(ctx, event.FromMessageEvent(ev))
		if err != nil {
			return fmt.Errorf("handling message %s in %s: %w", ev.TimeStamp, ev.Channel, err)
		}
		d.logger.Debug("Message handled", "channel", ev.Channel, "ts", ev.TimeStamp, "outcome", outcome.String())

	case *slackevents.AppMentionEvent:
		if d.commands == nil {
			return nil
		}
		if err := d.commands.Handle(ctx, ev.Channel, ev.Text); err != nil {
			return fmt.Errorf("handling mention %s in %s: %w", ev.TimeStamp, ev.Channel, err)
		}

	default:
		d.logger.Debug("Unknown event type", "type", fmt.Sprintf("%T", ev))
	}
	return nil
}
