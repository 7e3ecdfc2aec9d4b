package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cuongbtq/rankbot/internal/config"
	"github.com/cuongbtq/rankbot/internal/domain"
	"github.com/cuongbtq/rankbot/internal/ranking"
	"github.com/spf13/cobra"
)

var lookupIntent bool

var lookupCmd = &cobra.Command{
	Use:   "lookup <keyword>",
	Short: "Run one keyword lookup and print the reply the bot would send",
	Long: `Calls the ranking API directly, without Telegram or the job queue, and
prints the formatted reply. Useful to check API credentials and output.`,
	Example: `  rankbot lookup best coffee hanoi
  rankbot lookup --intent buy running shoes`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		if err := cfg.ValidateRankingConfig(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		appLogger, err := initLogger(&cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		action := domain.ActionRank
		if lookupIntent {
			action = domain.ActionIntent
		}
		job := &domain.Job{Action: action, Keyword: strings.Join(strings.Fields(strings.Join(args, " ")), " ")}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Worker.JobTimeout)
		defer cancel()

		client := ranking.NewClient(rankingConfig(&cfg.Ranking), appLogger.Logger)
		result, err := client.Lookup(ctx, job.Action, job.Keyword)
		if err != nil && !errors.Is(err, domain.ErrNoResults) {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), domain.FormatReply(job, result))
		return nil
	},
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupIntent, "intent", false, "Show the result type of each entry")
}

// rankingConfig maps the YAML section onto the client configuration
func rankingConfig(cfg *config.RankingConfig) ranking.Config {
	return ranking.Config{
		BaseURL:           cfg.BaseURL,
		Username:          cfg.Username,
		Password:          cfg.Password,
		LocationCode:      cfg.LocationCode,
		LanguageCode:      cfg.LanguageCode,
		Depth:             cfg.Depth,
		Timeout:           cfg.Timeout,
		RetryAttempts:     cfg.RetryAttempts,
		RetryInterval:     cfg.RetryInterval,
		BackoffMultiplier: cfg.BackoffMultiplier,
		RateLimit:         cfg.RateLimit,
		RateBurst:         cfg.RateBurst,
	}
}
