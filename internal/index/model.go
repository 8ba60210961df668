// Package index holds the in-memory archive model: the fragment index
// (HT), the per-filename version chain (DT), and the version log (VER),
// per §3. It is rebuilt from a scan of the archive (internal/scan) and
// consulted, but never itself performs I/O.
package index

import (
	"time"

	"github.com/jidac/jidac/internal/archfmt"
)

// Fragment is one entry of HT. Index 0 is unused so that fragment id 0 can
// serve as a "no fragment" sentinel distinct from a real id, per §3.
type Fragment struct {
	SHA1  [20]byte
	USize int64 // -1 if unknown (streaming format fragments, §4.9)
	CSize int64 // see csizeKind below
}

// csizeKind classifies a Fragment.CSize value.
type csizeKind int

const (
	CSizeBad       csizeKind = iota // archfmt.HTBad: "no such fragment"
	CSizeExtracted                  // archfmt.Extracted: verified this run
	CSizeBlockHead                  // >= 0: absolute archive offset of the fragment's block
	CSizeInBlock                    // < 0 (and not a sentinel): -(position within block)
)

// Classify reports which of the four csize regimes f.CSize is in.
func (f Fragment) Classify() csizeKind {
	switch f.CSize {
	case archfmt.HTBad:
		return CSizeBad
	case archfmt.Extracted:
		return CSizeExtracted
	}
	if f.CSize >= 0 {
		return CSizeBlockHead
	}
	return CSizeInBlock
}

// DTV is one version record for a filename: §3's DTV.
type DTV struct {
	Version uint32 // index into VER
	Date    archfmt.DecimalDate
	Size    int64
	Attr    archfmt.Attr
	Ptr     []int64 // ordered fragment ids
}

// IsDeletion reports whether this DTV represents a deletion marker
// (Date == 0, per §3).
func (d DTV) IsDeletion() bool {
	return d.Date == 0
}

// FileEntry is DT[name]: the ordered version history of one filename plus
// the transient fields used while building a new version (§3).
type FileEntry struct {
	Name string
	DTV  []DTV

	// Transient external-file fields, valid only during an add transaction.
	EDate   archfmt.DecimalDate
	ESize   int64
	EAttr   archfmt.Attr
	EPtr    []int64
	Written int64 // extraction progress; -1 = not selected
}

// Latest returns the most recent version record, or nil if the file has no
// history yet.
func (fe *FileEntry) Latest() *DTV {
	if len(fe.DTV) == 0 {
		return nil
	}
	return &fe.DTV[len(fe.DTV)-1]
}

// LatestAsOf returns the version record in effect at or before the given
// version number, honoring -until semantics (§6.5). It returns nil if the
// file did not exist yet at that version.
func (fe *FileEntry) LatestAsOf(version uint32) *DTV {
	var found *DTV
	for i := range fe.DTV {
		if fe.DTV[i].Version <= version {
			found = &fe.DTV[i]
		} else {
			break
		}
	}
	return found
}

// Version is VER[k]: one transaction's summary, §3. Index 0 is reserved.
type Version struct {
	Date          archfmt.DecimalDate
	Offset        int64 // archive byte offset of the transaction header block
	USize         int64 // sum of HT[*].USize referenced by this version's new/updated files
	Updates       int
	Deletes       int
	FirstFragment int64 // lowest fragment id introduced by this version
}

// Model is the archive's in-memory index: HT, DT, and VER together.
type Model struct {
	HT  []Fragment // HT[0] unused
	DT  map[string]*FileEntry
	VER []Version // VER[0] reserved
}

// NewModel returns an empty archive model with the index-0 placeholders
// already in place.
func NewModel() *Model {
	return &Model{
		HT:  []Fragment{{}},
		DT:  map[string]*FileEntry{},
		VER: []Version{{}},
	}
}

// AppendFragment adds a new fragment to HT and returns its id.
func (m *Model) AppendFragment(f Fragment) int64 {
	m.HT = append(m.HT, f)
	return int64(len(m.HT) - 1)
}

// EnsureFragmentCapacity grows HT with HTBad placeholders so that id is a
// valid index, used while replaying "d" blocks that reference ids beyond
// the current length (§4.9).
func (m *Model) EnsureFragmentCapacity(id int64) {
	for int64(len(m.HT)) <= id {
		m.HT = append(m.HT, Fragment{CSize: archfmt.HTBad})
	}
}

// FileEntryFor returns DT[name], creating it if absent.
func (m *Model) FileEntryFor(name string) *FileEntry {
	fe, ok := m.DT[name]
	if !ok {
		fe = &FileEntry{Name: name, Written: -1}
		m.DT[name] = fe
	}
	return fe
}

// AppendVersion appends a new Version, bumping its date by one second at a
// time until it is strictly greater than the previous version's date, per
// the I5 invariant in §8 and the VER invariant in §3.
func (m *Model) AppendVersion(v Version) uint32 {
	prev := m.VER[len(m.VER)-1].Date
	for v.Date <= prev && v.Date != 0 {
		v.Date = archfmt.DateFromTime(v.Date.ToTime().Add(time.Second))
	}
	m.VER = append(m.VER, v)
	return uint32(len(m.VER) - 1)
}

// LatestVersion returns the highest version index, or 0 if none exist yet.
func (m *Model) LatestVersion() uint32 {
	return uint32(len(m.VER) - 1)
}

// TruncateToVersion drops all versions after v (used by "add -until N",
// §3), along with every fragment those later versions introduced (from
// version v+1's first fragment id on), and every DTV referencing a dropped
// version.
func (m *Model) TruncateToVersion(v uint32) {
	if int(v) >= len(m.VER)-1 {
		return
	}
	firstDroppedFrag := m.VER[v+1].FirstFragment
	m.VER = m.VER[:v+1]
	if firstDroppedFrag >= 0 && firstDroppedFrag < int64(len(m.HT)) {
		m.HT = m.HT[:firstDroppedFrag]
	}
	for name, fe := range m.DT {
		kept := fe.DTV[:0:0]
		for _, dtv := range fe.DTV {
			if dtv.Version <= v {
				kept = append(kept, dtv)
			}
		}
		if len(kept) == 0 {
			delete(m.DT, name)
			continue
		}
		fe.DTV = kept
	}
}
