// Package cli implements relayclient, a debugging client for the relay server.
package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Config holds the global flags.
type Config struct {
	Addr    string
	Timeout time.Duration
	Quiet   time.Duration
}

// DefaultConfig returns defaults, honouring CHESSRELAY_ADDR.
func DefaultConfig() *Config {
	addr := os.Getenv("CHESSRELAY_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	return &Config{
		Addr:    addr,
		Timeout: 5 * time.Second,
		Quiet:   500 * time.Millisecond,
	}
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cfg := DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "relayclient",
		Short: "Talk to a chess relay server from the terminal",
		Long: `relayclient connects to a chess relay server over TCP.

Use "send" to run a fixed list of commands and print every reply, or "shell"
to type commands interactively while relayed moves and chat stream in.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfg.Addr, "addr", "a", cfg.Addr, "Relay address host:port (env: CHESSRELAY_ADDR)")
	rootCmd.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Dial timeout")
	rootCmd.PersistentFlags().DurationVar(&cfg.Quiet, "quiet", cfg.Quiet, "How long to wait for more replies before moving on")

	rootCmd.AddCommand(newSendCmd(cfg))
	rootCmd.AddCommand(newShellCmd(cfg))

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
