package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"

	"github.com/awesomeproject/service/internal/storage"
)

// NewStorageCommand groups storage inspection subcommands.
func NewStorageCommand(streams iooption.IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Inspect storage configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "profiles",
		Short: "List storage profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printProfiles(streams)
		},
	})
	return cmd
}

func printProfiles(streams iooption.IOStreams) error {
	tw := tabwriter.NewWriter(streams.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCONTAINER\tOVERWRITE\tEXPIRATION")
	for _, p := range storage.Profiles() {
		expiration := "never"
		if secs, ok := p.ExpirationSeconds(); ok {
			expiration = fmt.Sprintf("%ds", secs)
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", p.Name, p.Container, p.OverwriteOnConflict, expiration)
	}
	return tw.Flush()
}
