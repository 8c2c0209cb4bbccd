package cli

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/kbukum/apikit/version"
)

func newVersionCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			out := cmd.OutOrStdout()
			if root.json {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal version info: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "apikit version %s\n", info.Version)
			if info.Commit != "" {
				fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
			}
			if info.BuildDate != "" {
				fmt.Fprintf(out, "  build date: %s\n", info.BuildDate)
			}
			fmt.Fprintf(out, "  go:         %s\n", info.GoVersion)
			return nil
		},
	}
}
