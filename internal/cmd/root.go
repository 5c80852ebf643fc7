// Package cmd implements the manage command line tool.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cliflag "github.com/tomasbasham/cli-runtime/flag"
	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/printer"
	"github.com/tomasbasham/cli-runtime/templates"
)

var (
	rootLong = templates.LongDesc(`
		Administrative commands for the service: enqueue background tasks,
		upload static assets and inspect storage configuration.`)

	rootExamples = templates.Examples(`
		# Count users through the worker and wait for the answer
		manage users count --wait

		# Upload the ./static directory to static storage
		manage collectstatic --dir ./static`)

	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// ManageOptions defines the options for the `manage` command.
type ManageOptions struct {
	iooption.IOStreams
}

// NewManageOptions provides an initialised ManageOptions instance.
func NewManageOptions(streams iooption.IOStreams) *ManageOptions {
	return &ManageOptions{
		IOStreams: streams,
	}
}

// NewRootCommand creates the `manage` command with default arguments.
func NewRootCommand() *cobra.Command {
	options := NewManageOptions(iooption.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	})
	return NewRootCommandWithArgs(options)
}

// NewRootCommandWithArgs creates the `manage` command and its nested
// children.
func NewRootCommandWithArgs(o *ManageOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "manage [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Service administration tool",
		Long:                  rootLong,
		Example:               rootExamples,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}

	printerOpts := printer.WarningPrinterOptions{Color: true}
	warnings := printer.NewWarningPrinter(o.ErrOut, printerOpts)
	cmd.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc(warnings))

	cmd.AddCommand(NewUsersCommand(o.IOStreams))
	cmd.AddCommand(NewCollectStaticCommand(NewCollectStaticOptions(o.IOStreams)))
	cmd.AddCommand(NewStorageCommand(o.IOStreams))
	cmd.AddCommand(NewTokenCommand(o.IOStreams))

	cmd.SetGlobalNormalizationFunc(cliflag.WordSepNormalizeFunc())

	return cmd
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
