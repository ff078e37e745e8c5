package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keshon/warden/internal/permission"
	"github.com/keshon/warden/internal/storage"
	"github.com/keshon/warden/internal/store"
)

func newPermsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "perms <command>",
		Short: "Show the stored whitelist and blacklist of a dynamic command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := store.ReadData(opts.dir, opts.backupPrefix, storage.PolicyTable)
			if err != nil {
				return err
			}
			rec, ok, err := storage.DecodePolicy(data, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no stored rules for %q", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Whitelist:")
			printRules(cmd, permission.Whitelist, rec.Whitelist)
			fmt.Fprintln(out, "Blacklist:")
			printRules(cmd, permission.Blacklist, rec.Blacklist)
			return nil
		},
	}
}

func printRules(cmd *cobra.Command, l permission.List, rules []permission.Rule) {
	out := cmd.OutOrStdout()
	if len(rules) == 0 {
		fmt.Fprintln(out, "  (empty)")
		return
	}
	for i, r := range rules {
		line := fmt.Sprintf("  %c%d) %s -> %s", l, i, r.Kind, r.ID)
		if r.Kind == permission.KindRole {
			if r.Exact {
				line += ", exact"
			} else {
				line += ", above"
			}
		}
		fmt.Fprintln(out, line)
	}
}

func newAliasesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "aliases",
		Short: "List the persisted dynamic aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := store.ReadData(opts.dir, opts.backupPrefix, storage.AliasTable)
			if err != nil {
				return err
			}
			aliases, err := storage.DecodeAliases(data)
			if err != nil {
				return err
			}
			for _, a := range aliases {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", a.Name, a.Link)
			}
			return nil
		},
	}
}
