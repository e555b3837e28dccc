// Package listener receives Slack events over Socket Mode.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// socket is the part of *socketmode.Client the listener drives.
type socket interface {
	RunContext(ctx context.Context) error
	Ack(req socketmode.Request, payload ...interface{})
}

// Listener drains the Socket Mode event stream. Events are processed one at
// a time, in the order Slack delivers them.
type Listener struct {
	socket     socket
	events     <-chan socketmode.Event
	dispatcher *Dispatcher
	logger     *slog.Logger
	connected  atomic.Bool
}

// New creates a listener on api, which must carry an app-level token.
func New(api *slack.Client, dispatcher *Dispatcher, debug bool, logger *slog.Logger) *Listener {
	client := socketmode.New(api, socketmode.OptionDebug(debug))
	return newListener(client, client.Events, dispatcher, logger)
}

func newListener(s socket, events <-chan socketmode.Event, dispatcher *Dispatcher, logger *slog.Logger) *Listener {
	return &Listener{
		socket:     s,
		events:     events,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// IsConnected reports whether the socket is currently connected.
func (l *Listener) IsConnected() bool {
	return l.connected.Load()
}

// Run blocks until ctx is cancelled or processing an event fails. A
// processing failure is returned; cancellation is not.
func (l *Listener) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	go l.handleEvents(ctx, cancel)

	err := l.socket.RunContext(ctx)
	l.connected.Store(false)

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("socket mode: %w", err)
	}
	return nil
}

func (l *Listener) handleEvents(ctx context.Context, cancel context.CancelCauseFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-l.events:
			if !ok {
				return
			}
			if err := l.handleEvent(ctx, evt); err != nil {
				l.logger.Error("Event processing failed", "error", err)
				cancel(err)
				return
			}
		}
	}
}

func (l *Listener) handleEvent(ctx context.Context, evt socketmode.Event) error {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		l.logger.Info("Slack Socket Mode connecting")

	case socketmode.EventTypeConnected:
		l.connected.Store(true)
		l.logger.Info("Slack Socket Mode connected")

	case socketmode.EventTypeConnectionError:
		l.connected.Store(false)
		l.logger.Error("Slack Socket Mode connection error")

	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return nil
		}
		// Acked before processing so Slack does not redeliver slow events
		if evt.Request != nil {
			l.socket.Ack(*evt.Request)
		}
		return l.dispatcher.Dispatch(ctx, apiEvent)
	}
	return nil
}
