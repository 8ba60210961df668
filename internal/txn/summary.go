package txn

import (
	"sort"

	"github.com/jidac/jidac/internal/index"
)

// SummaryEntry is one ranked row of the `-summary N` report: the N
// largest files by the size of their referenced fragments.
type SummaryEntry struct {
	Name string
	Size int64
}

// Summary implements the "SUPPLEMENTED FEATURES" `-summary [N]` report:
// the N largest files in the archive's latest version by the summed
// uncompressed size of their fragments (see usizeFor). N<=0
// defaults to 10.
func Summary(opts Options, n int) ([]SummaryEntry, error) {
	if n <= 0 {
		n = 10
	}
	m, err := scanArchive(opts)
	if err != nil {
		return nil, err
	}

	var entries []SummaryEntry
	for name, fe := range m.DT {
		latest := fe.Latest()
		if latest == nil || latest.IsDeletion() {
			continue
		}
		entries = append(entries, SummaryEntry{Name: name, Size: usizeFor(m, latest.Ptr)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Size > entries[j].Size })
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// usizeFor sums the uncompressed size of a file's fragments. True
// per-fragment csize does not exist (§3: csize is recorded once per
// block, not per fragment), so this is the size metric -summary ranks by.
func usizeFor(m *index.Model, ptr []int64) int64 {
	var total int64
	for _, id := range ptr {
		if int(id) >= len(m.HT) {
			continue
		}
		total += m.HT[id].USize
	}
	return total
}
