package txn

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/jidac/jidac/internal/archfmt"
	"github.com/jidac/jidac/internal/codec"
	"github.com/jidac/jidac/internal/dedup"
	"github.com/jidac/jidac/internal/frag"
	"github.com/jidac/jidac/internal/index"
	"github.com/jidac/jidac/internal/method"
	"github.com/jidac/jidac/internal/pipeline"
	"github.com/jidac/jidac/internal/scan"
	"github.com/jidac/jidac/internal/walk"
)

// AddResult reports what an Add transaction did, for the -summary and
// per-command console output.
type AddResult struct {
	Version uint32
	Updates int
	Deletes int
	USize   int64
}

// blockBuf accumulates one compression unit's worth of raw fragment bytes
// during add, per §4.3.
type blockBuf struct {
	firstID int64
	sha1s   [][20]byte
	usizes  []int64
	data    []byte
}

func (b *blockBuf) empty() bool { return len(b.usizes) == 0 }

func (b *blockBuf) add(id int64, f frag.Fragment) {
	if b.empty() {
		b.firstID = id
	}
	b.sha1s = append(b.sha1s, f.SHA1)
	b.usizes = append(b.usizes, f.USize)
	b.data = append(b.data, f.Data...)
}

func (b *blockBuf) reset() {
	*b = blockBuf{}
}

// blockMeta travels through the compression pipeline's Job.Meta field so
// the writer callback can emit the matching `h` block right after its `d`
// block, per §5's ordering guarantee (b).
type blockMeta struct {
	firstID int64
	sha1s   [][20]byte
	usizes  []int64
	textIsh bool
	dict    codec.Dict
}

// Add implements the `add` command: scan the existing archive, walk the
// selected paths, fragment and deduplicate new/changed files, and append
// one new transaction, per §4.3 and the I2/I5 invariants.
func Add(opts Options) (*AddResult, error) {
	path := opts.archivePath()
	f, size, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := index.NewModel()
	if size > 0 {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		s := scan.New()
		m, err = s.Scan(f)
		if err != nil {
			return nil, errors.Wrap(err, "add: scan existing archive")
		}
		if s.NeedsRecover {
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return nil, err
			}
			if err := s.Recover(f, m); err != nil {
				return nil, errors.Wrap(err, "add: recover")
			}
		}
	}

	until := opts.resolveUntil(m.VER)
	if until > 0 && int(until) < len(m.VER)-1 {
		offset := m.VER[until+1].Offset
		if err := truncateArchive(f, offset); err != nil {
			return nil, err
		}
		m.TruncateToVersion(until)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}

	entries, err := walk.Walk(opts.Paths)
	if err != nil {
		return nil, err
	}
	entries = filterEntries(entries, opts.Not)

	dd := dedup.BuildFromModel(m.HT)

	date := archfmt.DateFromTime(time.Now())
	firstFragmentBeforeTxn := int64(len(m.HT))
	txnStart, jumpOffset, err := writeTransactionHeader(f, date)
	if err != nil {
		return nil, err
	}

	blockSizeMB := blockSizeMBFor(opts)
	budget := int64(blockSizeMB) << 20

	var records []indexRecord
	var updates, deletes int
	var usizeTotal int64
	var cur blockBuf

	writeFunc := func(res pipeline.Result) (int64, error) {
		if res.Err != nil {
			return 0, res.Err
		}
		meta := res.Job.Meta.(blockMeta)
		blockStart, err := writeDataBlock(f, date, meta.firstID, res.Job.Recipe, res.Candidate, res.Encoded)
		if err != nil {
			return 0, err
		}
		m.HT[meta.firstID].CSize = blockStart
		for j := 1; j < len(meta.sha1s); j++ {
			m.HT[meta.firstID+int64(j)].CSize = -int64(j)
		}
		var bsize int64
		for _, u := range meta.usizes {
			bsize += u
		}
		if err := writeFragTableBlock(f, date, meta.firstID, int32(bsize), meta.sha1s, meta.usizes, meta.textIsh, meta.dict); err != nil {
			return 0, err
		}
		return blockStart, nil
	}

	p := pipeline.New(opts.threads(), writeFunc)

	flush := func() {
		if cur.empty() {
			return
		}
		raw := cur.data
		if !opts.Fragile {
			raw = appendDataTrailer(raw, cur.usizes, cur.firstID)
		}
		rec := compileRecipe(opts, blockSizeMB, cur.data)
		var dict codec.Dict
		if rec.BlockType.TextIsh {
			// §4.4's "textish" block-type bit doubles as the trigger for
			// reusing the block's own order-1 successor table as a small
			// rolling zstd dictionary for its `h` fragment-table block,
			// the way zpaq.cpp's redundancy heuristics feed its own
			// dictionary seeding (SUPPLEMENTED FEATURES).
			table := method.BuildOrder1Table(cur.data)
			dict = codec.Dict(append([]byte(nil), table.Table[:]...))
		}
		p.Submit(pipeline.Job{
			Data:          raw,
			Recipe:        rec,
			Checksum:      blake2b.Sum512(raw),
			FirstFragment: cur.firstID,
			USizes:        cur.usizes,
			Meta: blockMeta{
				firstID: cur.firstID,
				sha1s:   cur.sha1s,
				usizes:  cur.usizes,
				textIsh: rec.BlockType.TextIsh,
				dict:    dict,
			},
		})
		cur.reset()
	}

	for _, e := range entries {
		fe := m.FileEntryFor(e.Path)
		if latest := fe.Latest(); latest != nil && !latest.IsDeletion() &&
			latest.Date == e.Date && latest.Size == e.Size {
			continue // I2: unchanged mtime+size, nothing to do
		}

		if !cur.empty() && int64(len(cur.data))+e.Size > budget {
			flush()
		}

		data, err := os.ReadFile(e.AbsPath)
		if err != nil {
			return nil, errors.Wrapf(err, "add: read %s", e.Path)
		}

		var eptr []int64
		var fileSize int64
		fr := frag.New()
		process := func(fg frag.Fragment) {
			fileSize += fg.USize
			if id := dd.Lookup(fg.SHA1, m.HT); id != 0 {
				eptr = append(eptr, id)
				return
			}
			if !cur.empty() && int64(len(cur.data))+fg.USize > budget-frag.MaxFragment-80-4*int64(len(cur.usizes)+1) {
				flush()
			}
			id := m.AppendFragment(index.Fragment{SHA1: fg.SHA1, USize: fg.USize, CSize: archfmt.HTBad})
			dd.Add(id, fg.SHA1)
			cur.add(id, fg)
			eptr = append(eptr, id)

			if !cur.empty() && int64(len(cur.data)) > budget/2 {
				bt := method.Classify(cur.data, nil)
				if bt.Redundancy < 16 {
					flush()
				}
			}
		}
		for _, fg := range fr.Write(data) {
			process(fg)
		}
		if last := fr.Flush(); last != nil {
			process(*last)
		}

		records = append(records, indexRecord{Name: e.Path, Date: e.Date, Attr: e.Attr, Ptr: eptr})
		updates++
		usizeTotal += fileSize
		fe.EDate, fe.ESize, fe.EAttr, fe.EPtr = e.Date, fileSize, e.Attr, eptr
	}
	flush()

	if _, err := p.Close(); err != nil {
		return nil, errors.Wrap(err, "add: compression pipeline")
	}

	if err := writeIndexBlock(f, date, records); err != nil {
		return nil, err
	}

	nextVersion := uint32(len(m.VER))
	for _, rec := range records {
		fe := m.FileEntryFor(rec.Name)
		fe.DTV = append(fe.DTV, index.DTV{
			Version: nextVersion,
			Date:    rec.Date,
			Attr:    rec.Attr,
			Ptr:     rec.Ptr,
			Size:    sumUSize(m.HT, rec.Ptr),
		})
	}

	endOffset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if err := backpatchJump(f, jumpOffset, endOffset-txnStart); err != nil {
		return nil, err
	}

	version := m.AppendVersion(index.Version{
		Date:          date,
		Offset:        txnStart,
		USize:         usizeTotal,
		Updates:       updates,
		Deletes:       deletes,
		FirstFragment: firstFragmentBeforeTxn,
	})

	return &AddResult{Version: version, Updates: updates, Deletes: deletes, USize: usizeTotal}, nil
}

func blockSizeMBFor(opts Options) int {
	return 16
}

// compileRecipe chooses the recipe for one block: a bare digit level uses
// the full block-type/periodicity-aware Compile path; an explicit recipe
// string (the "SUPPLEMENTED FEATURES" -method x/s... syntax) bypasses
// that and just classifies the sample for bookkeeping.
func compileRecipe(opts Options, blockSizeMB int, sample []byte) method.Recipe {
	s := opts.method()
	if level, err := strconv.Atoi(s); err == nil {
		return method.Compile(level, blockSizeMB, sample)
	}
	rec, err := method.ParseRecipe(s)
	if err != nil {
		return method.Compile(3, blockSizeMB, sample)
	}
	rec.BlockType = method.Classify(sample, nil)
	return rec
}

func appendDataTrailer(data []byte, usizes []int64, firstID int64) []byte {
	out := make([]byte, len(data), len(data)+4*len(usizes)+8)
	copy(out, data)
	for _, u := range usizes {
		buf := make([]byte, 4)
		archfmt.PutInt32(buf, int32(u))
		out = append(out, buf...)
	}
	idBuf := make([]byte, 4)
	archfmt.PutInt32(idBuf, int32(firstID))
	out = append(out, idBuf...)
	cntBuf := make([]byte, 4)
	archfmt.PutInt32(cntBuf, int32(len(usizes)))
	out = append(out, cntBuf...)
	return out
}

func sumUSize(ht []index.Fragment, ptr []int64) int64 {
	var total int64
	for _, id := range ptr {
		if int(id) < len(ht) {
			total += ht[id].USize
		}
	}
	return total
}

func filterEntries(entries []walk.Entry, not []string) []walk.Entry {
	if len(not) == 0 {
		return entries
	}
	fold := archfmt.HostCaseFold()
	out := entries[:0:0]
	for _, e := range entries {
		if archfmt.MatchAny(not, e.Path, fold) {
			continue
		}
		out = append(out, e)
	}
	return out
}
