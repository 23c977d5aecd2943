package main

import (
	"fmt"
	"os"

	"github.com/newthinker/folio/internal/config"
	"github.com/newthinker/folio/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	envFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "folio - momentum-weighted portfolio suggestions",
	Long: `folio turns an investment amount and one or two investment strategies
into a whole-share stock/ETF portfolio weighted by recent price momentum.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

// loadConfig reads the dotenv file and the config file, falling back to
// defaults when no config file is given.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *zap.Logger {
	if debug {
		return logger.Must(true)
	}
	log, err := logger.ForMode(cfg.Server.Mode)
	if err != nil {
		return logger.Must(false)
	}
	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
