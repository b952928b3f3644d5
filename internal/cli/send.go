package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSendCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:     "send <line>...",
		Short:   "Send each line in order and print the replies",
		Example: `  relayclient send "REGISTER alice s3cret" "LOGIN alice s3cret" "FIND_MATCH"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := Dial(cfg.Addr, cfg.Timeout)
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			for _, line := range args {
				if err := client.Send(line); err != nil {
					return err
				}
				fmt.Fprintf(out, "> %s\n", line)
				for _, reply := range client.Collect(cfg.Quiet) {
					fmt.Fprintf(out, "< %s\n", reply)
				}
			}
			return nil
		},
	}
}
