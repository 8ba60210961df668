package cliapp

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/jidac/jidac/internal/txn"
)

var listCmd = &cobra.Command{
	Use:     "list archive [path...]",
	Aliases: []string{"l"},
	Short:   "List files in an archive",
	Long: `List prints one row per selected file at the version -until names
(latest by default), or with -all every version of every matched file.
-since additionally bounds the range from below.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := optionsFromFlags(cmd, args[0], args[1:])

		format, _ := cmd.Flags().GetString("format")
		if format == "cbor" {
			data, err := txn.ListCBOR(opts)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "list:", err)
				exitCode = 1
				return
			}
			os.Stdout.Write(data)
			return
		}

		entries, err := txn.List(opts)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "list:", err)
			cmd.SilenceUsage = true
			exitCode = 1
			return
		}
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			spew.Fdump(cmd.OutOrStdout(), entries)
			return
		}
		for _, e := range entries {
			mark := " "
			if e.Deleted {
				mark = "-"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %10d  v%-4d  %s  %s\n", mark, e.Size, e.Version, e.Date, e.Name)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	addCommonFlags(listCmd)
	listCmd.Flags().Bool("all", false, "show every version of every matched file")
	listCmd.Flags().Bool("debug", false, "dump the raw entry structs via go-spew")
	listCmd.Flags().String("format", "", `output format: "" (table) or "cbor"`)
}
