// Package txn expresses each CLI command as a transaction over the
// archive model: add, delete, extract, list, test, plus the supplemented
// -summary/-since reporting features.
package txn

import (
	"github.com/jidac/jidac/internal/archfmt"
	"github.com/jidac/jidac/internal/index"
)

// Options bundles the §6.5 CLI surface's flags. Not every command uses
// every field.
type Options struct {
	Archive string
	Paths   []string
	Not     []string
	To      string

	// Until is the §6.5 "-until N|YYYY…" upper bound. A bare version
	// number is carried directly in Until; a 14-digit decimal date is
	// carried in UntilDate instead (Until left 0) and resolved against a
	// scanned Model's VER log by resolveUntil, since the date-to-version
	// mapping isn't known until the archive has been scanned.
	Until     uint32 // 0 = no bound (latest), unless UntilDate is set
	UntilDate archfmt.DecimalDate
	Since     uint32 // 0 = no bound (earliest)

	Force   bool
	Quiet   int
	Threads int
	Fragile bool
	Method  string // level digit or explicit recipe string, §4.4/"SUPPLEMENTED FEATURES"
	Summary int    // 0 = no summary report
	All     bool
}

func (o Options) threads() int {
	if o.Threads > 0 {
		return o.Threads
	}
	return 4
}

func (o Options) method() string {
	if o.Method == "" {
		return "3"
	}
	return o.Method
}

func (o Options) archivePath() string {
	return archfmt.WithExtension(o.Archive)
}

// resolveUntil returns the effective -until version bound: o.Until
// directly, unless o.UntilDate names a decimal date instead, in which
// case it returns the highest version whose date is at or before it
// (0 if none qualifies — the same "no bound" no-op the §9 design note
// documents for a version number preceding the archive's first
// transaction).
func (o Options) resolveUntil(ver []index.Version) uint32 {
	if o.UntilDate == 0 {
		return o.Until
	}
	var v uint32
	for i := 1; i < len(ver); i++ {
		if ver[i].Date <= o.UntilDate {
			v = uint32(i)
		} else {
			break
		}
	}
	return v
}
