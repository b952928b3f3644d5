package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/chessrelay/internal/protocol"
)

func newShellCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Bridge stdin to the relay and print everything it sends",
		Long: `shell sends each line typed on stdin to the relay and prints every line
the relay sends back. Type /help to list the protocol commands and /quit to
hang up.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := Dial(cfg.Addr, cfg.Timeout)
			if err != nil {
				return err
			}
			defer client.Close()

			out := &lockedWriter{w: cmd.OutOrStdout()}
			done := make(chan struct{})
			go func() {
				defer close(done)
				for line := range client.Lines() {
					fmt.Fprintln(out, line)
				}
			}()

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if strings.EqualFold(line, "/quit") {
					break
				}
				if strings.EqualFold(line, "/help") {
					printHelp(out)
					continue
				}
				if err := client.Send(line); err != nil {
					return err
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}

			// Let in-flight replies arrive before hanging up.
			time.Sleep(cfg.Quiet)
			_ = client.Close()
			<-done
			return nil
		},
	}
}

func printHelp(w io.Writer) {
	for _, c := range protocol.BuiltinCommands() {
		fmt.Fprintf(w, "  %s\n", c.Synopsis())
	}
	fmt.Fprintln(w, "  /help")
	fmt.Fprintln(w, "  /quit")
}

// lockedWriter serializes writes from the relay printer and the help output.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
