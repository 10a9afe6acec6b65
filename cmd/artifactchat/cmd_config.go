package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/artifactchat/internal/config"
)

func init() {
	rootCmd.AddCommand(newConfigCmd())
}

// newConfigCmd builds the config command tree. Every subcommand writes to the
// command's output so it can be captured.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the config file",
	}

	list := &cobra.Command{
		Use:   "list [prefix]",
		Short: "Print every setting, optionally only keys under prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			show, _ := cmd.Flags().GetBool("show-secrets")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			values, err := config.ListValues(cfg, !show)
			if err != nil {
				return fmt.Errorf("list config: %w", err)
			}
			prefix := ""
			if len(args) == 1 {
				prefix = strings.TrimSuffix(args[0], ".") + "."
			}
			return printSettings(cmd.OutOrStdout(), values, prefix)
		},
	}
	list.Flags().Bool("show-secrets", false, "print credentials unmasked")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			show, _ := cmd.Flags().GetBool("show-secrets")
			val, err := config.GetValue(cfgPath, args[0])
			if err != nil {
				return err
			}
			if !show {
				val = config.MaskSecrets(map[string]any{args[0]: val})[args[0]]
			}
			fmt.Fprintln(cmd.OutOrStdout(), val)
			return nil
		},
	}
	get.Flags().Bool("show-secrets", false, "print a credential unmasked")

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting in the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := config.SetValue(cfgPath, key, value); err != nil {
				return err
			}
			shown := config.MaskSecrets(map[string]any{key: value})[key]
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated to %v\n", key, shown)
			return nil
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), cfgPath)
		},
	}

	cmd.AddCommand(list, get, set, path)
	return cmd
}

// printSettings writes values whose key starts with prefix as an aligned
// key/value table sorted by key.
func printSettings(w io.Writer, values map[string]any, prefix string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, k := range slices.Sorted(maps.Keys(values)) {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		fmt.Fprintf(tw, "%s\t%v\n", k, values[k])
	}
	return tw.Flush()
}
