// Package cliapp wires the txn command surface into a cobra command tree,
// one file per command, following parc/cmd's layout.
package cliapp

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "jidac",
	Short: "jidac is an incremental, deduplicating, journaling archiver",
	Long: `jidac appends rather than rewrites: every add is a new transaction
on top of the prior archive contents, fragments are deduplicated by
content, and every past version stays extractable with -until.`,
}

// exitCode is set by command Run funcs on detected corruption or I/O error
// (§6.5: "exit code 0 on success, 1 on any detected corruption or I/O
// error"). cobra's own Run signature has no return value, so commands
// report failure through this package-level flag instead.
var exitCode int

// Execute adds all child commands to the root command, runs the selected
// one, and returns the process exit code. It is called by cmd/jidac/main.go.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}

// GenDocs renders markdown command docs, mirroring parc/cmd/root.go's
// GenDocs.
func GenDocs() {
	if err := os.MkdirAll("./docs/jidac", 0775); err != nil {
		fmt.Println("failed to make dir:", err)
		return
	}
	if err := doc.GenMarkdownTree(rootCmd, "./docs/jidac"); err != nil {
		fmt.Println("failed to make docs:", err)
	}
}

var docsCmd = &cobra.Command{
	Use:    "docs",
	Short:  "Generate markdown documentation for every command",
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		GenDocs()
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
}
