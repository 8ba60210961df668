package txn

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/jidac/jidac/internal/archfmt"
	"github.com/jidac/jidac/internal/codec"
	"github.com/jidac/jidac/internal/index"
	"github.com/jidac/jidac/internal/method"
	"github.com/jidac/jidac/internal/pipeline"
	"github.com/jidac/jidac/internal/scan"
)

// FileReport is one line of the per-file extraction summary §7 requires:
// "extracted/total fragments, version, path".
type FileReport struct {
	Name      string
	Extracted int
	Total     int
	Version   uint32
	Complete  bool
}

// ExtractResult is what extract/test report back to the caller.
type ExtractResult struct {
	Files     []FileReport
	AllGood   bool
	Integrity *IntegrityReport // set by Test only, per §4.10
}

type fileState struct {
	target  *pipeline.FileTarget
	path    string
	f       *os.File
	offsets map[int64]int64
	attr    archfmt.Attr
	date    archfmt.DecimalDate
}

// Extract implements the `extract` command: scan the archive, select the
// files the version/path/since/until filters name, decompress their
// blocks, verify every fragment's SHA-1, and write output files, per
// §4.8.
func Extract(opts Options) (*ExtractResult, error) {
	return runExtraction(opts, true)
}

// Test implements `test`: the same extraction/verification pass, but
// without writing any output file, per §4.10.
func Test(opts Options) (*ExtractResult, error) {
	return runExtraction(opts, false)
}

func runExtraction(opts Options, write bool) (*ExtractResult, error) {
	path := opts.archivePath()
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "extract: open %s", path)
	}
	defer f.Close()

	s := scan.New()
	m, err := s.Scan(f)
	if err != nil {
		return nil, errors.Wrap(err, "extract: scan")
	}
	if s.NeedsRecover {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		if err := s.Recover(f, m); err != nil {
			return nil, errors.Wrap(err, "extract: recover")
		}
	}

	selected := selectFiles(m, opts)
	if len(selected) == 0 {
		result := &ExtractResult{AllGood: true}
		if !write {
			report := checkIntegrity(m)
			result.Integrity = &report
			result.AllGood = report.OK && s.FormatErrors == 0
		}
		return result, nil
	}

	blocks, states := buildExtractBlocks(m, selected)

	if write {
		if err := openOutputFiles(opts, states); err != nil {
			for _, st := range states {
				if st.f != nil {
					st.f.Close()
				}
			}
			return nil, errors.Wrap(err, "extract: open output")
		}
	}

	sectSize, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	decode := func(b *pipeline.ExtractBlock) ([]byte, error) {
		sr := io.NewSectionReader(f, b.Offset, sectSize-b.Offset)
		hdr, segs, err := archfmt.ReadBlock(sr)
		if err != nil {
			return nil, err
		}
		if len(segs) == 0 {
			return nil, errors.New("extract: empty data block")
		}
		cand := method.DecodeArgs(hdr.Args)
		raw, err := codec.DecodeCandidate(segs[0].Payload, cand, nil)
		if err != nil {
			return nil, err
		}
		var total int
		for _, fr := range b.Fragments {
			total += fr.Size
		}
		if total > len(raw) {
			return nil, errors.Errorf("extract: block at %d too short", b.Offset)
		}
		return raw[:total], nil
	}

	writeFn := func(target *pipeline.FileTarget, id int64, data []byte) error {
		st := states[target.Name]
		if st == nil || st.f == nil {
			return nil // test mode, or pre-existing output skipped without -force
		}
		off, ok := st.offsets[id]
		if !ok {
			return errors.Errorf("extract: no offset recorded for fragment %d of %s", id, target.Name)
		}
		_, err := st.f.WriteAt(data, off)
		return err
	}

	ep := &pipeline.ExtractionPipeline{
		HT:      m.HT,
		Decode:  decode,
		Write:   writeFn,
		Workers: opts.threads(),
	}
	_, runErr := ep.Run(blocks)

	for _, st := range states {
		if st.f == nil {
			continue
		}
		st.f.Close()
		if st.target.Written == st.target.Total {
			os.Chtimes(st.path, st.date.ToTime(), st.date.ToTime())
			applyAttr(st.path, st.attr)
		}
	}

	var result ExtractResult
	result.AllGood = runErr == nil

	if !write {
		report := checkIntegrity(m)
		result.Integrity = &report
		if !report.OK || s.FormatErrors > 0 {
			result.AllGood = false
		}
	}
	names := make([]string, 0, len(selected))
	for name := range selected {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := states[name].target
		complete := t.Written == t.Total
		if !complete {
			result.AllGood = false
		}
		result.Files = append(result.Files, FileReport{
			Name:      name,
			Extracted: t.Written,
			Total:     t.Total,
			Version:   selected[name].dtv.Version,
			Complete:  complete,
		})
	}
	return &result, nil
}

// openOutputFiles creates (or, without -force, skips) the output file for
// every selected target, per §4.8's "pre-existing output files are not
// overwritten unless a force flag is set; directories are created lazily".
func openOutputFiles(opts Options, states map[string]*fileState) error {
	for name, st := range states {
		outPath := filepath.Join(opts.To, name)
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return err
		}
		if !opts.Force {
			if _, err := os.Stat(outPath); err == nil {
				continue
			}
		}
		out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		st.path = outPath
		st.f = out
	}
	return nil
}

type selection struct {
	dtv index.DTV
}

// selectFiles applies the -until/-since/path/-not filters of §6.5 and
// returns the DTV in effect for each selected, non-deleted file.
func selectFiles(m *index.Model, opts Options) map[string]selection {
	until := opts.resolveUntil(m.VER)
	fold := archfmt.HostCaseFold()
	out := map[string]selection{}
	for name, fe := range m.DT {
		var dtv *index.DTV
		if until > 0 {
			dtv = fe.LatestAsOf(until)
		} else {
			dtv = fe.Latest()
		}
		if dtv == nil || dtv.IsDeletion() {
			continue
		}
		if opts.Since > 0 && dtv.Version < opts.Since {
			continue
		}
		if len(opts.Paths) > 0 && !archfmt.MatchAny(opts.Paths, name, fold) {
			continue
		}
		if len(opts.Not) > 0 && archfmt.MatchAny(opts.Not, name, fold) {
			continue
		}
		out[name] = selection{dtv: *dtv}
	}
	return out
}

// buildExtractBlocks implements §4.8's grouping: every fragment referenced
// by a selected file is attributed to the block its id belongs to (derived
// from HT's csize back-reference chain), and every block is told which
// files need fragments from it.
func buildExtractBlocks(m *index.Model, selected map[string]selection) ([]*pipeline.ExtractBlock, map[string]*fileState) {
	blocksByHead := map[int64]*pipeline.ExtractBlock{}
	var order []int64
	states := map[string]*fileState{}

	names := make([]string, 0, len(selected))
	for name := range selected {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sel := selected[name]
		target := &pipeline.FileTarget{Name: name, Fragments: sel.dtv.Ptr, Total: len(sel.dtv.Ptr)}
		st := &fileState{target: target, offsets: map[int64]int64{}, attr: sel.dtv.Attr, date: sel.dtv.Date}
		states[name] = st

		var fileOffset int64
		for _, id := range sel.dtv.Ptr {
			st.offsets[id] = fileOffset
			if int(id) < len(m.HT) {
				fileOffset += m.HT[id].USize
			}

			if int(id) >= len(m.HT) || m.HT[id].CSize == archfmt.HTBad {
				continue // unrecoverable fragment; file stays incomplete
			}

			head := blockHeadFor(m.HT, id)
			b, ok := blocksByHead[head]
			if !ok {
				b = &pipeline.ExtractBlock{Start: head, Offset: m.HT[head].CSize}
				blocksByHead[head] = b
				order = append(order, head)
			}
			if !containsFile(b.Files, target) {
				b.Files = append(b.Files, target)
			}
		}
	}

	for _, head := range order {
		b := blocksByHead[head]
		end := blockRangeEnd(m.HT, head)
		var offset int
		for id := head; id < end; id++ {
			size := int(m.HT[id].USize)
			if m.HT[id].USize < 0 || m.HT[id].USize > 1<<24 {
				b.Streaming = true
			}
			b.Fragments = append(b.Fragments, pipeline.FragmentRef{ID: id, Offset: offset, Size: size})
			offset += size
		}
	}

	blocks := make([]*pipeline.ExtractBlock, 0, len(order))
	for _, head := range order {
		blocks = append(blocks, blocksByHead[head])
	}
	return blocks, states
}

func containsFile(files []*pipeline.FileTarget, t *pipeline.FileTarget) bool {
	for _, f := range files {
		if f == t {
			return true
		}
	}
	return false
}

// blockHeadFor walks HT's back-reference chain (§3: "HT[b+j].csize = -j")
// to find the block-head id for a fragment id belonging to that block.
func blockHeadFor(ht []index.Fragment, id int64) int64 {
	c := ht[id].CSize
	if c >= 0 {
		return id
	}
	return id + c
}

func blockRangeEnd(ht []index.Fragment, head int64) int64 {
	end := head + 1
	for int(end) < len(ht) {
		c := ht[end].CSize
		if c >= 0 || c == archfmt.HTBad || c == archfmt.Extracted {
			break
		}
		if end+c != head {
			break
		}
		end++
	}
	return end
}

func applyAttr(path string, attr archfmt.Attr) {
	if attr.Platform == archfmt.PlatformPosix {
		os.Chmod(path, os.FileMode(attr.Mode&0777))
	}
}
