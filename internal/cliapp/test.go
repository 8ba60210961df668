package cliapp

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/jidac/jidac/internal/txn"
)

var testCmd = &cobra.Command{
	Use:     "test archive [path...]",
	Aliases: []string{"t"},
	Short:   "Verify an archive without extracting",
	Long: `Test runs the same decompression and per-fragment SHA-1 verification
as extract, without writing output, and additionally cross-checks VER's
date ordering and HT/DT's internal references (§4.10).`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := optionsFromFlags(cmd, args[0], args[1:])

		res, err := txn.Test(opts)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "test:", err)
			cmd.SilenceUsage = true
			exitCode = 1
			return
		}
		if !res.AllGood {
			exitCode = 1
		}

		if format, _ := cmd.Flags().GetString("format"); format == "cbor" {
			data, err := txn.RenderTestCBOR(res)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "test:", err)
				exitCode = 1
				return
			}
			os.Stdout.Write(data)
			return
		}

		printFileReports(cmd, res.Files)
		if res.Integrity != nil {
			for _, p := range res.Integrity.Problems {
				fmt.Fprintln(cmd.ErrOrStderr(), "integrity:", p)
			}
		}
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			spew.Fdump(cmd.OutOrStdout(), res)
		}
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
	addCommonFlags(testCmd)
	testCmd.Flags().Bool("debug", false, "dump the full per-file/integrity report")
	testCmd.Flags().String("format", "", `output format: "" (table) or "cbor"`)
}
