package txn

import (
	"fmt"

	"github.com/jidac/jidac/internal/archfmt"
	"github.com/jidac/jidac/internal/index"
)

// IntegrityReport is test's structural cross-check result, per §4.10: these
// checks run in addition to (not instead of) the per-fragment SHA-1
// verification the extraction pipeline already performs.
type IntegrityReport struct {
	Problems []string
	OK       bool
}

// checkIntegrity walks VER, HT, and DT looking for the failures §4.10 names
// explicitly: a dated version out of order, a DTV.ptr entry that doesn't
// point into HT, an HT.csize that is neither a valid absolute offset nor a
// valid negative in-block index, or an archive with no data at all.
func checkIntegrity(m *index.Model) IntegrityReport {
	var problems []string

	if len(m.HT) <= 1 && len(m.VER) <= 1 {
		problems = append(problems, "archive contains no data")
	}

	var prevDate archfmt.DecimalDate
	for i, v := range m.VER {
		if i == 0 {
			continue
		}
		if v.Date != 0 && v.Date <= prevDate {
			problems = append(problems, fmt.Sprintf("version %d date %s does not follow %s", i, v.Date, prevDate))
		}
		if v.Date != 0 {
			prevDate = v.Date
		}
	}

	for i, f := range m.HT {
		if i == 0 {
			continue
		}
		if f.Classify() != index.CSizeInBlock {
			continue // unresolved, verified-this-run, or a real archive offset: all valid.
		}
		head := int64(i) + f.CSize
		if head < 0 || head >= int64(i) {
			problems = append(problems, fmt.Sprintf("fragment %d has invalid in-block csize %d", i, f.CSize))
		}
	}

	for name, fe := range m.DT {
		for _, dtv := range fe.DTV {
			for _, id := range dtv.Ptr {
				if id < 0 || int(id) >= len(m.HT) {
					problems = append(problems, fmt.Sprintf("file %s references out-of-range fragment %d", name, id))
				}
			}
		}
	}

	return IntegrityReport{Problems: problems, OK: len(problems) == 0}
}
