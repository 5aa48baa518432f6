package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-curator/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "photo-curator",
	Short: "Recommend the best photos of your PhotoPrism library",
	Long: `Photo Curator connects to a PhotoPrism instance, groups photos by place,
drops near-duplicates and photos that fail the label policy, and recommends
what is left. It can also rank photos by quality across the whole library.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default LOG_LEVEL or info)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// newLogger builds the command logger. The flag wins over the configured level.
func newLogger(configured string) (*slog.Logger, error) {
	name := logLevel
	if name == "" {
		name = configured
	}
	level, err := logging.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	logger := logging.New(level, os.Stderr)
	slog.SetDefault(logger)
	return logger, nil
}
