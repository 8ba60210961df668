package cliapp

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jidac/jidac/internal/archfmt"
	"github.com/jidac/jidac/internal/txn"
)

// addCommonFlags registers the §6.5 flags shared by every command that
// selects files within an archive (-not, -until, -since, -threads,
// -quiet, -summary). Flag names are matched in full by cobra; abbreviated
// flag names are not accepted.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("not", nil, "exclude paths matching these wildcards")
	cmd.Flags().String("until", "", "restrict to the version in effect at or before N, or a YYYYMMDDHHMMSS date")
	cmd.Flags().Uint32("since", 0, "restrict to versions at or after N")
	cmd.Flags().Int("threads", 0, "worker count (default 4)")
	cmd.Flags().Int("quiet", 0, "verbosity threshold; higher is quieter")
	cmd.Flags().Int("summary", 0, "print the N largest files after the command completes")
}

// parseUntil implements §6.5's "-until N|YYYY…": a bare integer selects a
// version number directly; a 14-digit run selects the decimal
// YYYYMMDDHHMMSS date whose version resolveUntil resolves once the
// archive has been scanned (the mapping isn't known any earlier).
func parseUntil(s string) (version uint32, date archfmt.DecimalDate, err error) {
	if s == "" {
		return 0, 0, nil
	}
	if len(s) == 14 {
		if n, derr := strconv.ParseUint(s, 10, 64); derr == nil {
			return 0, archfmt.DecimalDate(n), nil
		}
	}
	n, perr := strconv.ParseUint(s, 10, 32)
	if perr != nil {
		return 0, 0, errors.Errorf("invalid -until value %q: want a version number or a 14-digit date", s)
	}
	return uint32(n), 0, nil
}

func optionsFromFlags(cmd *cobra.Command, archive string, paths []string) txn.Options {
	not, _ := cmd.Flags().GetStringSlice("not")
	untilStr, _ := cmd.Flags().GetString("until")
	until, untilDate, err := parseUntil(untilStr)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
	}
	since, _ := cmd.Flags().GetUint32("since")
	threads, _ := cmd.Flags().GetInt("threads")
	quiet, _ := cmd.Flags().GetInt("quiet")
	summary, _ := cmd.Flags().GetInt("summary")
	to, _ := cmd.Flags().GetString("to")
	force, _ := cmd.Flags().GetBool("force")
	fragile, _ := cmd.Flags().GetBool("fragile")
	method, _ := cmd.Flags().GetString("method")
	all, _ := cmd.Flags().GetBool("all")

	return txn.Options{
		Archive:   archive,
		Paths:     paths,
		Not:       not,
		To:        to,
		Until:     until,
		UntilDate: untilDate,
		Since:     since,
		Force:     force,
		Quiet:     quiet,
		Threads:   threads,
		Fragile:   fragile,
		Method:    method,
		Summary:   summary,
		All:       all,
	}
}

func reportSummary(cmd *cobra.Command, opts txn.Options) {
	if opts.Summary <= 0 {
		return
	}
	entries, err := txn.Summary(opts, opts.Summary)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "summary:", err)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d largest files:\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%12d  %s\n", e.Size, e.Name)
	}
}
