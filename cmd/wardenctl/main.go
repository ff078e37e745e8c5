// cmd/wardenctl/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keshon/warden/internal/version"
)

type options struct {
	dir          string
	backupPrefix string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "wardenctl",
		Short:        "Inspect the warden document store without starting the bot",
		Long:         "wardenctl reads the store files directly. It never writes to them, so it is safe to run next to a live bot.",
		Version:      version.String(),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.dir, "dir", "./database/", "Store directory")
	root.PersistentFlags().StringVar(&opts.backupPrefix, "backup-prefix", "~", "Backup file name prefix")

	root.AddCommand(newDocsCmd(opts), newDumpCmd(opts), newPermsCmd(opts), newAliasesCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
