package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/keshon/warden/internal/store"
)

func newDocsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "List documents with the state of their primary and backup files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := store.List(opts.dir, opts.backupPrefix)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No documents in %s\n", opts.dir)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DOCUMENT\tPRIMARY\tBACKUP")
			unreadable := 0
			for _, name := range names {
				r := store.Inspect(opts.dir, opts.backupPrefix, name)
				if !r.Readable() {
					unreadable++
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, paint(r.Primary), paint(r.Backup))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if unreadable > 0 {
				return fmt.Errorf("%d document(s) cannot be loaded", unreadable)
			}
			return nil
		},
	}
}

func paint(s store.FileState) string {
	switch s {
	case store.StateOK:
		return color.GreenString(string(s))
	case store.StateMissing:
		return color.YellowString(string(s))
	}
	return color.RedString(string(s))
}
