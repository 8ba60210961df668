package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jidac/jidac/internal/txn"
)

var extractCmd = &cobra.Command{
	Use:     "extract archive [path...]",
	Aliases: []string{"x"},
	Short:   "Restore files from an archive",
	Long: `Extract decompresses the blocks holding the selected files' fragments,
verifies every fragment's SHA-1, and writes the files under -to
(default "."), per §4.8. Pre-existing output files are left alone
unless -force is given.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := optionsFromFlags(cmd, args[0], args[1:])
		res, err := txn.Extract(opts)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "extract:", err)
			cmd.SilenceUsage = true
			exitCode = 1
			return
		}
		printFileReports(cmd, res.Files)
		if !res.AllGood {
			exitCode = 1
		}
		reportSummary(cmd, opts)
	},
}

func printFileReports(cmd *cobra.Command, files []txn.FileReport) {
	for _, fr := range files {
		fmt.Fprintf(cmd.OutOrStdout(), "%d/%d fragments, version %d, %s\n",
			fr.Extracted, fr.Total, fr.Version, fr.Name)
	}
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addCommonFlags(extractCmd)
	extractCmd.Flags().String("to", ".", "directory to extract into")
	extractCmd.Flags().Bool("force", false, "overwrite pre-existing output files")
}
