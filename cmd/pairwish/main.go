package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagPort     string
	flagDBPath   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "pairwish",
	Short: "Shared wishlist service for two partners",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; a broken one is not.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, websocket hub and reminder scheduler",
	RunE:  runServe,
}

var vapidKeysCmd = &cobra.Command{
	Use:   "vapid-keys",
	Short: "Generate a VAPID key pair for web push",
	Args:  cobra.NoArgs,
	RunE:  runVAPIDKeys,
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&flagPort, "port", "", "listen port (overrides PAIRWISH_PORT)")
		cmd.Flags().StringVar(&flagDBPath, "db", "", "SQLite database path (overrides PAIRWISH_DB_PATH)")
		cmd.Flags().StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (overrides PAIRWISH_LOG_LEVEL)")
	}
	rootCmd.AddCommand(serveCmd, vapidKeysCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
