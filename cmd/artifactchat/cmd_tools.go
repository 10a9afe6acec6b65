package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(toolsCmd)
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the assistant can call",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := newRegistry(loadConfig())

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTITLE\tACTIVE\tDESCRIPTION")
		for _, t := range registry.Catalog() {
			fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", t.Name, t.Title, t.Active, t.Description)
		}
		return w.Flush()
	},
}
