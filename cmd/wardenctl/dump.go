package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/keshon/warden/internal/store"
)

func newDumpCmd(opts *options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "dump <document>",
		Short: "Print the data of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := store.ReadData(opts.dir, opts.backupPrefix, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(data)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(data); err != nil {
					return err
				}
				return enc.Close()
			}
			return fmt.Errorf("unknown format %q, use json or yaml", format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	return cmd
}
