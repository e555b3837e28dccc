// Package tracker applies deployment notifications to channel records and
// posts the resulting summary.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"deplog/internal/channel"
	"deplog/internal/event"
	"deplog/internal/render"
	"deplog/internal/store"
)

// Store persists channel records and the deployment history.
type Store interface {
	Load(ctx context.Context, channelID string, environments []string) (*channel.Record, error)
	Save(ctx context.Context, record *channel.Record) error
	RecordDeployment(ctx context.Context, record *store.DeploymentRecord) (int64, error)
	RecentDeployments(ctx context.Context, channelID, environment string, limit int) ([]store.DeploymentRecord, error)
}

// Notifier posts text to a channel.
type Notifier interface {
	Post(ctx context.Context, channelID, text string) error
}

// CommitResolver looks up the head commit of a branch. An unknown branch
// yields an empty commit and no error.
type CommitResolver interface {
	HeadCommit(ctx context.Context, branch string) (string, error)
}

// Outcome describes what HandleEvent did with an event.
type Outcome int

const (
	// Skipped: not a deployment notification.
	Skipped Outcome = iota
	// Suppressed: the environment is suppressed, nothing was posted.
	Suppressed
	// Ignored: the environment is not tracked, the summary was posted unchanged.
	Ignored
	// Posted: a slot was updated and the summary posted.
	Posted
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Suppressed:
		return store.OutcomeSuppressed
	case Ignored:
		return store.OutcomeIgnored
	case Posted:
		return store.OutcomePosted
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Options configures a Tracker.
type Options struct {
	Filter       *event.Filter
	Environments []string // tracked slots, in render order
	Suppress     []string
	Destination  string // channel summaries are posted to
	DebugChannel string // when set, raw events are dumped here
	Renderer     *render.Renderer
	Store        Store
	Notifier     Notifier
	Commits      CommitResolver // optional
	Clock        func() time.Time
	Logger       *slog.Logger
}

// Tracker is the state updater. It is safe for concurrent use; updates to
// one channel are serialized.
type Tracker struct {
	filter       *event.Filter
	environments []string
	suppress     []string
	destination  string
	debugChannel string
	renderer     *render.Renderer
	store        Store
	notifier     Notifier
	commits      CommitResolver
	clock        func() time.Time
	logger       *slog.Logger
	locks        *ChannelLocks
}

// New creates a tracker. Filter, Renderer, Store and Notifier are required.
func New(opts Options) (*Tracker, error) {
	switch {
	case opts.Filter == nil:
		return nil, errors.New("tracker: filter is required")
	case opts.Renderer == nil:
		return nil, errors.New("tracker: renderer is required")
	case opts.Store == nil:
		return nil, errors.New("tracker: store is required")
	case opts.Notifier == nil:
		return nil, errors.New("tracker: notifier is required")
	}

	t := &Tracker{
		filter:       opts.Filter,
		environments: opts.Environments,
		suppress:     opts.Suppress,
		destination:  opts.Destination,
		debugChannel: opts.DebugChannel,
		renderer:     opts.Renderer,
		store:        opts.Store,
		notifier:     opts.Notifier,
		commits:      opts.Commits,
		clock:        opts.Clock,
		logger:       opts.Logger,
		locks:        NewChannelLocks(),
	}
	if t.destination == "" {
		t.destination = opts.Filter.Channel
	}
	if t.clock == nil {
		t.clock = time.Now
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t, nil
}

// Channel returns the channel whose notifications are tracked.
func (t *Tracker) Channel() string {
	return t.filter.Channel
}

// Tracks reports whether env is one of the configured slots.
func (t *Tracker) Tracks(env string) bool {
	return slices.Contains(t.environments, env)
}

// HandleEvent applies one inbound event. Events that are not deployment
// notifications return Skipped and no error.
func (t *Tracker) HandleEvent(ctx context.Context, ev event.Event) (Outcome, error) {
	n, err := t.filter.Match(ev)
	if errors.Is(err, event.ErrUnsupportedEvent) {
		t.logger.Debug("Skipping event", "channel", ev.Channel, "ts", ev.Timestamp, "reason", err)
		return Skipped, nil
	}
	if err != nil {
		return Skipped, err
	}

	t.locks.Lock(n.Channel)
	defer t.locks.Unlock(n.Channel)

	logger := t.logger.With("channel", n.Channel, "environment", n.Environment, "branch", n.Branch)

	// Suppressed environments leave no trace besides the history row
	if slices.Contains(t.suppress, n.Environment) {
		logger.Info("Suppressed deployment notification")
		if err := t.recordHistory(ctx, n, Suppressed); err != nil {
			return Suppressed, err
		}
		return Suppressed, nil
	}

	if t.debugChannel != "" {
		if err := t.dumpEvent(ctx, ev); err != nil {
			return Skipped, err
		}
	}

	// Step 1: Load the record, creating it on first sight
	record, err := t.store.Load(ctx, n.Channel, t.environments)
	if err != nil {
		return Skipped, fmt.Errorf("loading record for %s: %w", n.Channel, err)
	}

	// Step 2: Overwrite the slot when the environment is configured
	outcome := Ignored
	if t.Tracks(n.Environment) {
		slot := channel.Slot{
			Branch:     n.Branch,
			Deployer:   n.Deployer,
			DeployedAt: t.clock(),
			Commit:     t.headCommit(ctx, logger, n.Branch),
		}
		record.Update(n.Environment, slot)
		outcome = Posted
	} else {
		logger.Info("Environment is not tracked, posting summary unchanged")
	}

	// Step 3: Post the summary
	if err := t.notifier.Post(ctx, t.destination, t.renderer.Render(record)); err != nil {
		return outcome, err
	}

	// Step 4: Commit the record
	if err := t.store.Save(ctx, record); err != nil {
		return outcome, fmt.Errorf("saving record for %s: %w", n.Channel, err)
	}

	if err := t.recordHistory(ctx, n, outcome); err != nil {
		return outcome, err
	}

	logger.Info("Processed deployment notification", "outcome", outcome.String(), "deployer", n.Deployer)
	return outcome, nil
}

// ProcessEvents handles events in order and stops at the first error.
func (t *Tracker) ProcessEvents(ctx context.Context, events []event.Event) error {
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.HandleEvent(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Summary renders the current summary of channelID without changing it.
func (t *Tracker) Summary(ctx context.Context, channelID string) (string, *channel.Record, error) {
	record, err := t.store.Load(ctx, channelID, t.environments)
	if err != nil {
		return "", nil, fmt.Errorf("loading record for %s: %w", channelID, err)
	}
	return t.renderer.Render(record), record, nil
}

// PostSummary re-posts the current summary of channelID.
func (t *Tracker) PostSummary(ctx context.Context, channelID string) error {
	t.locks.Lock(channelID)
	defer t.locks.Unlock(channelID)

	text, _, err := t.Summary(ctx, channelID)
	if err != nil {
		return err
	}
	return t.notifier.Post(ctx, t.destinationFor(channelID), text)
}

// ClearSlot empties the slot for env in channelID. It returns false when env
// is not tracked.
func (t *Tracker) ClearSlot(ctx context.Context, channelID, env string) (bool, error) {
	t.locks.Lock(channelID)
	defer t.locks.Unlock(channelID)

	record, err := t.store.Load(ctx, channelID, t.environments)
	if err != nil {
		return false, fmt.Errorf("loading record for %s: %w", channelID, err)
	}
	if !record.Clear(env) {
		return false, nil
	}
	if err := t.store.Save(ctx, record); err != nil {
		return false, fmt.Errorf("saving record for %s: %w", channelID, err)
	}

	t.logger.Info("Cleared slot", "channel", channelID, "environment", env)
	return true, nil
}

// History returns the newest notifications seen in channelID.
func (t *Tracker) History(ctx context.Context, channelID, env string, limit int) ([]store.DeploymentRecord, error) {
	return t.store.RecentDeployments(ctx, channelID, env, limit)
}

// Post sends text on behalf of a command. Replies follow the same routing
// as summaries.
func (t *Tracker) Post(ctx context.Context, channelID, text string) error {
	return t.notifier.Post(ctx, t.destinationFor(channelID), text)
}

func (t *Tracker) destinationFor(channelID string) string {
	if channelID == t.filter.Channel {
		return t.destination
	}
	return channelID
}

func (t *Tracker) headCommit(ctx context.Context, logger *slog.Logger, branch string) string {
	if t.commits == nil {
		return ""
	}
	commit, err := t.commits.HeadCommit(ctx, branch)
	if err != nil {
		logger.Warn("Failed to resolve head commit", "error", err)
		return ""
	}
	return commit
}

func (t *Tracker) recordHistory(ctx context.Context, n event.Notification, outcome Outcome) error {
	_, err := t.store.RecordDeployment(ctx, &store.DeploymentRecord{
		Channel:     n.Channel,
		Environment: n.Environment,
		Branch:      n.Branch,
		Deployer:    n.Deployer,
		Title:       n.Title,
		Outcome:     outcome.String(),
		ReceivedAt:  t.clock(),
	})
	if err != nil {
		return fmt.Errorf("recording deployment for %s: %w", n.Channel, err)
	}
	return nil
}

func (t *Tracker) dumpEvent(ctx context.Context, ev event.Event) error {
	data, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	return t.notifier.Post(ctx, t.debugChannel, "```"+string(data)+"```")
}
