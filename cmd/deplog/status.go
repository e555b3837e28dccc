package main

import (
	"context"
	"fmt"

	"deplog/internal/config"
	"deplog/internal/security"
	"deplog/internal/store"

	"github.com/spf13/cobra"
)

var (
	statusConfigFile string
	statusAll        bool
)

var statusCmd = &cobra.Command{
	Use:   "status [CHANNEL]",
	Short: "Print the deployment summary of a channel",
	Long: `Print the deployment summary of a channel as it would be posted to Slack.

This command will:
- Read the configuration from deplog.yaml
- Load the channel record from the database
- Render the summary with the configured template

The channel defaults to the configured channel. With --all every channel
holding a stored record is printed.

Example:
  deplog status C0E437QDD
  deplog status --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	// Config file flag
	statusCmd.Flags().StringVarP(&statusConfigFile, "config", "c", getEnvOrDefault("DEPLOG_CONFIG_FILE", ""), "Path to deplog.yaml configuration file")
	statusCmd.Flags().BoolVarP(&statusAll, "all", "a", false, "Print every stored channel")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusAll && len(args) > 0 {
		return fmt.Errorf("--all cannot be combined with a channel argument")
	}

	cfg, _, err := loadConfig(statusConfigFile)
	if err != nil {
		return err
	}

	channels := []string{cfg.Channel}
	if len(args) == 1 {
		channels = []string{args[0]}
	}
	for _, channelID := range channels {
		if err := security.ValidateChannelID(channelID); err != nil {
			return err
		}
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	if statusAll {
		channels, err = st.Channels(ctx)
		if err != nil {
			return err
		}
		if len(channels) == 0 {
			fmt.Println("No channels recorded yet.")
			return nil
		}
	}

	for i, channelID := range channels {
		if i > 0 {
			fmt.Println()
		}
		if err := printStatus(ctx, st, cfg, channelID); err != nil {
			return err
		}
	}
	return nil
}

func printStatus(ctx context.Context, st *store.Store, cfg *config.Config, channelID string) error {
	record, err := st.Get(ctx, channelID)
	if err != nil {
		return err
	}
	if record == nil {
		fmt.Printf("No deployments recorded for channel %s yet.\n", channelID)
		return nil
	}
	record.EnsureSlots(cfg.Environments)

	fmt.Printf("Channel %s (tracked since %s)\n", channelID, record.CreatedAt.In(cfg.Location()).Format(cfg.TimeLayout))
	fmt.Println(newRenderer(cfg).Render(record))
	return nil
}
