package txn

import (
	"io"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/jidac/jidac/internal/archfmt"
	"github.com/jidac/jidac/internal/index"
	"github.com/jidac/jidac/internal/scan"
)

// DeleteResult reports what a delete transaction did.
type DeleteResult struct {
	Version uint32
	Deletes int
}

// Delete implements the `delete` command: append a zero-date `DTV` for
// every file matched by opts.Paths that exists (and is not already
// deleted) in the archive's latest version, per §3's "a deletion appears
// as a zero-date DTV".
func Delete(opts Options) (*DeleteResult, error) {
	path := opts.archivePath()
	f, size, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if size == 0 {
		return nil, errors.New("delete: archive is empty")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	s := scan.New()
	m, err := s.Scan(f)
	if err != nil {
		return nil, errors.Wrap(err, "delete: scan")
	}
	if s.NeedsRecover {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		if err := s.Recover(f, m); err != nil {
			return nil, errors.Wrap(err, "delete: recover")
		}
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}

	fold := archfmt.HostCaseFold()
	var names []string
	for name, fe := range m.DT {
		latest := fe.Latest()
		if latest == nil || latest.IsDeletion() {
			continue
		}
		if !archfmt.MatchAny(opts.Paths, name, fold) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return &DeleteResult{}, nil
	}

	date := archfmt.DateFromTime(time.Now())
	txnStart, jumpOffset, err := writeTransactionHeader(f, date)
	if err != nil {
		return nil, err
	}

	var records []indexRecord
	for _, name := range names {
		records = append(records, indexRecord{Name: name, Date: 0})
	}
	if err := writeIndexBlock(f, date, records); err != nil {
		return nil, err
	}

	nextVersion := uint32(len(m.VER))
	for _, name := range names {
		fe := m.FileEntryFor(name)
		fe.DTV = append(fe.DTV, index.DTV{Version: nextVersion, Date: 0})
	}

	endOffset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if err := backpatchJump(f, jumpOffset, endOffset-txnStart); err != nil {
		return nil, err
	}

	version := m.AppendVersion(index.Version{
		Date:    date,
		Offset:  txnStart,
		Deletes: len(names),
	})

	return &DeleteResult{Version: version, Deletes: len(names)}, nil
}
