package cmd

import (
	"fmt"
	"os"

	"github.com/killallgit/course-api/pkg/config"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "course-api",
	Short: "Course Generation API server",
	Long: `Course Generation API - turns video transcripts into structured courses

The server accepts generation requests and streams progress and results
back to the client as server-sent events.

Features:
  • Course generation from single videos and playlists
  • Learning segment extraction from a transcript window
  • Transcript caching with a configurable time-to-live
  • A persistent log of generation sessions`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
}

// loadConfig initializes the configuration and returns it as a struct.
// Commands call it lazily so version and help run without a config file.
func loadConfig() (*config.Config, error) {
	if err := config.Init(); err != nil {
		return nil, fmt.Errorf("error initializing config: %w", err)
	}
	return config.GetConfig()
}
