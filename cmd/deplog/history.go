package main

import (
	"context"
	"fmt"

	"deplog/internal/security"
	"deplog/internal/store"

	"github.com/spf13/cobra"
)

var (
	historyConfigFile string
	historyEnv        string
	historyLimit      int
)

var historyCmd = &cobra.Command{
	Use:   "history [CHANNEL]",
	Short: "List recent deployment notifications of a channel",
	Long: `List the deployment notifications recorded for a channel, newest first.

Every recognized notification is recorded, including suppressed ones and
those for environments that are not tracked.

Example:
  deplog history C0E437QDD --env staging --limit 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyConfigFile, "config", "c", getEnvOrDefault("DEPLOG_CONFIG_FILE", ""), "Path to deplog.yaml configuration file")
	historyCmd.Flags().StringVarP(&historyEnv, "env", "e", "", "Only list this environment")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", store.DefaultHistoryLimit, "Number of entries to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(historyConfigFile)
	if err != nil {
		return err
	}

	channelID := cfg.Channel
	if len(args) == 1 {
		channelID = args[0]
	}
	if err := security.ValidateChannelID(channelID); err != nil {
		return err
	}
	if historyEnv != "" {
		if err := security.ValidateEnvironmentName(historyEnv); err != nil {
			return err
		}
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	records, err := st.RecentDeployments(ctx, channelID, historyEnv, historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Printf("No deployments recorded for channel %s.\n", channelID)
		return nil
	}

	loc := cfg.Location()
	for _, r := range records {
		deployer := r.Deployer
		if deployer == "" {
			deployer = "-"
		}
		fmt.Printf("%-20s  %-12s  %-10s  %-30s  %s\n",
			r.ReceivedAt.In(loc).Format(cfg.TimeLayout),
			r.Environment,
			r.Outcome,
			r.Branch,
			deployer)
	}

	return nil
}
