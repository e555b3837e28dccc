// Package command answers @mentions of the bot in the tracked channel.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"deplog/internal/render"
	"deplog/internal/security"
	"deplog/internal/store"
	"deplog/pkg/cmdutil"
)

const (
	// DefaultHistoryLimit is the number of entries `history` lists when no
	// count is given.
	DefaultHistoryLimit = 5

	// MaxHistoryLimit caps the count accepted by `history`.
	MaxHistoryLimit = 50
)

const helpText = "Usage:\n" +
	"• `status` post the current deployment summary\n" +
	"• `clear <environment>` empty one environment\n" +
	"• `history [environment] [count]` list recent deployment notifications\n" +
	"• `help` show this message"

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+(\|[^>]*)?>`)

// Tracker is the part of the tracker commands operate on.
type Tracker interface {
	Channel() string
	Tracks(env string) bool
	PostSummary(ctx context.Context, channelID string) error
	ClearSlot(ctx context.Context, channelID, env string) (bool, error)
	History(ctx context.Context, channelID, env string, limit int) ([]store.DeploymentRecord, error)
	Post(ctx context.Context, channelID, text string) error
}

// Handler dispatches mention text to commands.
type Handler struct {
	tracker    Tracker
	timeLayout string
	location   *time.Location
	logger     *slog.Logger
}

// NewHandler creates a command handler. Timestamps in replies use layout in
// loc.
func NewHandler(tracker Tracker, layout string, loc *time.Location, logger *slog.Logger) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		tracker:    tracker,
		timeLayout: layout,
		location:   loc,
		logger:     logger,
	}
}

// Handle runs the command in a mention posted to channelID. Mentions outside
// the tracked channel are ignored.
func (h *Handler) Handle(ctx context.Context, channelID, text string) error {
	if channelID != h.tracker.Channel() {
		h.logger.Debug("Ignoring mention outside tracked channel", "channel", channelID)
		return nil
	}

	args, err := cmdutil.ParseArgs(StripMentions(text))
	if err != nil {
		h.logger.Debug("Unparseable command", "channel", channelID, "error", err)
		return h.tracker.Post(ctx, channelID, helpText)
	}

	h.logger.Info("Running command", "channel", channelID, "command", cmdutil.FormatArgs(args))

	switch strings.ToLower(args[0]) {
	case "status":
		return h.tracker.PostSummary(ctx, channelID)
	case "clear":
		return h.clear(ctx, channelID, args[1:])
	case "history":
		return h.history(ctx, channelID, args[1:])
	default:
		return h.tracker.Post(ctx, channelID, helpText)
	}
}

func (h *Handler) clear(ctx context.Context, channelID string, args []string) error {
	if len(args) != 1 {
		return h.tracker.Post(ctx, channelID, "Usage: `clear <environment>`")
	}
	env := args[0]
	if err := security.ValidateEnvironmentName(env); err != nil || !h.tracker.Tracks(env) {
		return h.tracker.Post(ctx, channelID, fmt.Sprintf("Unknown environment `%s`", render.EscapeMrkdwn(env)))
	}

	if _, err := h.tracker.ClearSlot(ctx, channelID, env); err != nil {
		return err
	}
	return h.tracker.PostSummary(ctx, channelID)
}

func (h *Handler) history(ctx context.Context, channelID string, args []string) error {
	env, limit, ok := parseHistoryArgs(args)
	if !ok {
		return h.tracker.Post(ctx, channelID, "Usage: `history [environment] [count]`")
	}

	records, err := h.tracker.History(ctx, channelID, env, limit)
	if err != nil {
		return err
	}
	return h.tracker.Post(ctx, channelID, h.formatHistory(env, records))
}

// parseHistoryArgs accepts `[environment] [count]`.
func parseHistoryArgs(args []string) (env string, limit int, ok bool) {
	limit = DefaultHistoryLimit

	if len(args) > 2 {
		return "", 0, false
	}
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[len(args)-1]); err == nil {
			if n <= 0 {
				return "", 0, false
			}
			limit = min(n, MaxHistoryLimit)
			args = args[:len(args)-1]
		}
	}
	if len(args) == 2 {
		return "", 0, false
	}
	if len(args) == 1 {
		env = args[0]
		if err := security.ValidateEnvironmentName(env); err != nil {
			return "", 0, false
		}
	}
	return env, limit, true
}

func (h *Handler) formatHistory(env string, records []store.DeploymentRecord) string {
	if len(records) == 0 {
		if env != "" {
			return fmt.Sprintf("No deployments recorded for `%s`", render.EscapeMrkdwn(env))
		}
		return "No deployments recorded"
	}

	lines := make([]string, 0, len(records))
	for _, r := range records {
		line := fmt.Sprintf("• %s  *%s*  `%s`",
			r.ReceivedAt.In(h.location).Format(h.timeLayout),
			render.EscapeMrkdwn(r.Environment),
			render.EscapeMrkdwn(r.Branch),
		)
		if r.Deployer != "" {
			line += " by " + render.EscapeMrkdwn(r.Deployer)
		}
		if r.Outcome != store.OutcomePosted {
			line += " (" + r.Outcome + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// StripMentions removes user mentions such as `<@U123ABC>` from text.
func StripMentions(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}
