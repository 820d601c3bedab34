package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldstore/ntuple/pkg/ntuple"
)

func init() {
	rootCmd.AddCommand(newSchemaCmd())
}

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema <sidecar>",
		Short: "Print the field tree a descriptor sidecar describes",
		Long: `schema reads a Descriptor sidecar (written alongside an ntuple file by
pkg/ntuple.SaveDescriptor) and prints one line per field, indented by depth,
naming its on-disk field ID, name, and type.

Example:
  ntuplectl schema events.ntuple.schema`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(args)
		},
	}
	return cmd
}

func runSchema(args []string) error {
	sidecarPath := args[0]
	printVerbose("Reading descriptor: %s\n", sidecarPath)

	if err := ntuple.DumpSchema(os.Stdout, sidecarPath); err != nil {
		return fmt.Errorf("failed to dump schema: %w", err)
	}
	return nil
}
