package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jidac/jidac/internal/txn"
)

var deleteCmd = &cobra.Command{
	Use:     "delete archive path...",
	Aliases: []string{"d"},
	Short:   "Mark files as deleted in a new transaction",
	Long: `Delete appends a new transaction recording a zero-date DTV for every
matched, currently-undeleted file (§3). Prior versions remain
extractable with -until; this is a journaled marker, not a truncation.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		not, _ := cmd.Flags().GetStringSlice("not")
		quiet, _ := cmd.Flags().GetInt("quiet")
		opts := txn.Options{Archive: args[0], Paths: args[1:], Not: not, Quiet: quiet}
		res, err := txn.Delete(opts)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "delete:", err)
			cmd.SilenceUsage = true
			exitCode = 1
			return
		}
		if opts.Quiet == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "version %d: %d deletes\n", res.Version, res.Deletes)
		}
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().StringSlice("not", nil, "exclude paths matching these wildcards")
	deleteCmd.Flags().Int("quiet", 0, "verbosity threshold; higher is quieter")
}
