// Package notify posts messages back to Slack.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
	"golang.org/x/time/rate"
)

// Poster is the part of *slack.Client the notifier uses.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts plain-text messages, paced so bursts of deployment
// notifications stay under Slack's per-channel posting limit.
type SlackNotifier struct {
	client  Poster
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewSlackNotifier creates a notifier. postRate is in messages per second;
// zero or less disables pacing.
func NewSlackNotifier(client Poster, postRate float64, logger *slog.Logger) *SlackNotifier {
	limit := rate.Inf
	if postRate > 0 {
		limit = rate.Limit(postRate)
	}
	return &SlackNotifier{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Post sends text to channelID. Errors are returned to the caller; there is
// no retry.
func (n *SlackNotifier) Post(ctx context.Context, channelID, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting to post to %s: %w", channelID, err)
	}

	_, ts, err := n.client.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", channelID, err)
	}

	n.logger.Debug("Posted message", "channel", channelID, "ts", ts)
	return nil
}
