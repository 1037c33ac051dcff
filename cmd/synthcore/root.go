package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cbegin/synthcore-go/internal/logger"
)

var (
	// Global flags
	logLevel string
	logJSON  bool
	quiet    bool
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synthcore",
		Short: "Render songs with the synthcore engine",
		Long: `synthcore renders JSON songs offline: wavetable and multisample voices,
per-note and per-track effect chains, and WAV output with optional preview
on the default audio device.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logger.Options{
				Enabled: logLevel != "off",
				Writer:  cmd.ErrOrStderr(),
				Level:   logger.ParseLevel(logLevel),
				JSON:    logJSON,
			})
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "off", "Log level: off, debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	cmd.AddCommand(newRenderCmd(), newProcessorsCmd(), newVersionCmd())
	return cmd
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printInfo prints an info message if not in quiet mode
func printInfo(cmd *cobra.Command, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}
