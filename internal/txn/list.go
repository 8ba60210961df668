package txn

import (
	"io"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/jidac/jidac/internal/archfmt"
	"github.com/jidac/jidac/internal/index"
	"github.com/jidac/jidac/internal/scan"
)

// ListEntry is one row of `list`'s output: a filename at the version in
// effect under the -until/-since/-all selection.
type ListEntry struct {
	Name    string
	Version uint32
	Date    archfmt.DecimalDate
	Size    int64
	Deleted bool
}

// List implements the `list` command over the archive's DT, honoring
// -until (upper version bound), -since (lower version bound, the
// "SUPPLEMENTED FEATURES" addition), and -all (every version of every
// file rather than just the latest in range).
func List(opts Options) ([]ListEntry, error) {
	m, err := scanArchive(opts)
	if err != nil {
		return nil, err
	}
	until := opts.resolveUntil(m.VER)

	fold := archfmt.HostCaseFold()
	var entries []ListEntry
	for name, fe := range m.DT {
		if len(opts.Paths) > 0 && !archfmt.MatchAny(opts.Paths, name, fold) {
			continue
		}
		if len(opts.Not) > 0 && archfmt.MatchAny(opts.Not, name, fold) {
			continue
		}
		if opts.All {
			for _, dtv := range fe.DTV {
				if !inRange(dtv.Version, opts.Since, until) {
					continue
				}
				entries = append(entries, entryFor(name, dtv))
			}
			continue
		}
		var dtv *index.DTV
		if until > 0 {
			dtv = fe.LatestAsOf(until)
		} else {
			dtv = fe.Latest()
		}
		if dtv == nil || !inRange(dtv.Version, opts.Since, until) {
			continue
		}
		entries = append(entries, entryFor(name, *dtv))
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Version < entries[j].Version
	})
	return entries, nil
}

func inRange(version, since, until uint32) bool {
	if since > 0 && version < since {
		return false
	}
	if until > 0 && version > until {
		return false
	}
	return true
}

func entryFor(name string, dtv index.DTV) ListEntry {
	return ListEntry{
		Name:    name,
		Version: dtv.Version,
		Date:    dtv.Date,
		Size:    dtv.Size,
		Deleted: dtv.IsDeletion(),
	}
}

func scanArchive(opts Options) (*index.Model, error) {
	f, size, err := openArchive(opts.archivePath())
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if size == 0 {
		return index.NewModel(), nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	s := scan.New()
	m, err := s.Scan(f)
	if err != nil {
		return nil, errors.Wrap(err, "list: scan")
	}
	if s.NeedsRecover {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		if err := s.Recover(f, m); err != nil {
			return nil, errors.Wrap(err, "list: recover")
		}
	}
	return m, nil
}

// cborSnapshot is the `list --format=cbor` / `test --format=cbor`
// structured inspection surface ("SUPPLEMENTED FEATURES"): a machine
// readable dump of VER and DT using the teacher's keyasint struct-tag
// convention.
type cborSnapshot struct {
	Versions []cborVersion `cbor:"0,keyasint"`
	Files    []cborFile    `cbor:"1,keyasint"`
}

type cborVersion struct {
	Index   uint32    `cbor:"0,keyasint"`
	Date    time.Time `cbor:"1,keyasint"`
	Updates int       `cbor:"2,keyasint"`
	Deletes int       `cbor:"3,keyasint"`
}

type cborFile struct {
	Name    string    `cbor:"0,keyasint"`
	Version uint32    `cbor:"1,keyasint"`
	Date    time.Time `cbor:"2,keyasint"`
	Size    int64     `cbor:"3,keyasint"`
	Deleted bool      `cbor:"4,keyasint"`
}

// cborFileReport mirrors FileReport for `test --format=cbor`'s structured
// inspection surface (SUPPLEMENTED FEATURES).
type cborFileReport struct {
	Name      string `cbor:"0,keyasint"`
	Extracted int    `cbor:"1,keyasint"`
	Total     int    `cbor:"2,keyasint"`
	Version   uint32 `cbor:"3,keyasint"`
	Complete  bool   `cbor:"4,keyasint"`
}

// cborTestReport is `test --format=cbor`'s payload: the per-file
// extracted/total report plus §4.10's structural integrity problems.
type cborTestReport struct {
	Files           []cborFileReport `cbor:"0,keyasint"`
	AllGood         bool             `cbor:"1,keyasint"`
	IntegrityOK     bool             `cbor:"2,keyasint"`
	IntegrityIssues []string         `cbor:"3,keyasint"`
}

// RenderTestCBOR encodes an already-run ExtractResult as the cborTestReport
// payload, so a caller that needs the result's AllGood value for its exit
// code (cliapp's testCmd) doesn't have to run the verification pass twice.
func RenderTestCBOR(res *ExtractResult) ([]byte, error) {
	rep := cborTestReport{AllGood: res.AllGood, IntegrityOK: true}
	for _, f := range res.Files {
		rep.Files = append(rep.Files, cborFileReport{
			Name:      f.Name,
			Extracted: f.Extracted,
			Total:     f.Total,
			Version:   f.Version,
			Complete:  f.Complete,
		})
	}
	if res.Integrity != nil {
		rep.IntegrityOK = res.Integrity.OK
		rep.IntegrityIssues = res.Integrity.Problems
	}
	return cbor.Marshal(rep)
}

// TestCBOR runs the same verification Test does and renders the result as
// a CBOR-encoded cborTestReport, the `test` counterpart to ListCBOR.
func TestCBOR(opts Options) ([]byte, error) {
	res, err := Test(opts)
	if err != nil {
		return nil, err
	}
	return RenderTestCBOR(res)
}

// ListCBOR renders the same selection List does, as a CBOR-encoded
// cborSnapshot.
func ListCBOR(opts Options) ([]byte, error) {
	entries, err := List(opts)
	if err != nil {
		return nil, err
	}
	m, err := scanArchive(opts)
	if err != nil {
		return nil, err
	}

	snap := cborSnapshot{}
	for k, v := range m.VER {
		if k == 0 {
			continue
		}
		snap.Versions = append(snap.Versions, cborVersion{
			Index:   uint32(k),
			Date:    v.Date.ToTime(),
			Updates: v.Updates,
			Deletes: v.Deletes,
		})
	}
	for _, e := range entries {
		snap.Files = append(snap.Files, cborFile{
			Name:    e.Name,
			Version: e.Version,
			Date:    e.Date.ToTime(),
			Size:    e.Size,
			Deleted: e.Deleted,
		})
	}
	return cbor.Marshal(snap)
}
