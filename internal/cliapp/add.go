package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jidac/jidac/internal/txn"
)

var addCmd = &cobra.Command{
	Use:     "add archive path...",
	Aliases: []string{"a"},
	Short:   "Append a new transaction to an archive",
	Long: `Add scans the listed paths, fragments and deduplicates any file
whose mtime or size changed since the archive's latest version, and
appends one new journaled transaction (§4.3). An empty archive name is
not special: it gets the ".zpaq" suffix like any other name, so the
transaction is written to ".zpaq"; there is no dry-run mode.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		opts := optionsFromFlags(cmd, args[0], args[1:])
		res, err := txn.Add(opts)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "add:", err)
			cmd.SilenceUsage = true
			exitCode = 1
			return
		}
		if opts.Quiet == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "version %d: %d updates, %d deletes, %d bytes\n",
				res.Version, res.Updates, res.Deletes, res.USize)
		}
		reportSummary(cmd, opts)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCommonFlags(addCmd)
	addCmd.Flags().Bool("fragile", false, "omit redundant checksums and trailers for smaller, faster archives")
	addCmd.Flags().String("method", "", "compression level 0-6, or an explicit recipe string")
}
