package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/cuongbtq/rankbot/internal/config"
	"github.com/cuongbtq/rankbot/shared/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rankbot",
	Short: "Telegram bot that reports the top ranking domains for a keyword",
	Long: `rankbot answers /search and /intent commands with the top 10 Google results
for a keyword, looked up through the DataForSEO SERP API.

Requests are acknowledged immediately and answered asynchronously by a single
worker that drains a FIFO job queue.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defaultConfigPath := os.Getenv("RANKBOT_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/rankbot/config.yaml"
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to configuration file")

	rootCmd.AddCommand(serveCmd, lookupCmd, versionCmd)
}

// loadConfig reads .env, the YAML file and environment overrides.
// A missing file is only tolerated when optional is set.
func loadConfig(optional bool) (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	cfg, err := config.Load(configPath)
	switch {
	case err == nil:
	case optional && errors.Is(err, fs.ErrNotExist):
		cfg = &config.Config{}
		cfg.SetDefaults()
	default:
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}
