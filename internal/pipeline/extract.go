package pipeline

import (
	"crypto/sha1"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/jidac/jidac/internal/archfmt"
	"github.com/jidac/jidac/internal/index"
)

// BlockState is the per-block lifecycle §4.8 tracks during extraction.
type BlockState int32

const (
	BlockReady BlockState = iota
	BlockWorking
	BlockDone
	BlockBad
)

// FragmentRef locates one fragment's bytes within a decompressed block
// buffer.
type FragmentRef struct {
	ID     int64
	Offset int // byte offset within the block's decompressed bytes
	Size   int
}

// FileTarget is one selected output file and the ordered fragments it
// needs from across possibly many blocks, mirroring DT's eptr/written
// bookkeeping during extraction.
type FileTarget struct {
	Name      string
	Fragments []int64
	Total     int
	Written   int
}

// ExtractBlock is one decompression unit, per §4.8's Block{start, size,
// offset, files, streaming, state}.
type ExtractBlock struct {
	Start     int64 // first fragment id covered by this block
	Fragments []FragmentRef
	Offset    int64
	Files     []*FileTarget
	Streaming bool

	state int32
}

func (b *ExtractBlock) State() BlockState { return BlockState(atomic.LoadInt32(&b.state)) }

func (b *ExtractBlock) claim() bool {
	return atomic.CompareAndSwapInt32(&b.state, int32(BlockReady), int32(BlockWorking))
}

func (b *ExtractBlock) setState(s BlockState) { atomic.StoreInt32(&b.state, int32(s)) }

// DecodeFunc decompresses one block and returns its raw fragment bytes,
// concatenated in fragment order.
type DecodeFunc func(b *ExtractBlock) ([]byte, error)

// ExtractWriteFunc writes one fragment's bytes to the output file(s)
// selected for it. Implementations must be safe to call while holding the
// pipeline's single write mutex (§4.8's write_mutex) — the pipeline
// already serializes calls, so ExtractWriteFunc itself need not lock.
type ExtractWriteFunc func(target *FileTarget, fragmentID int64, data []byte) error

// ExtractionPipeline runs §4.8's decompression worker pool: each
// non-streaming block is claimed by exactly one worker, decompressed,
// fragment-verified against ht, and handed to the single writer path
// under writeMu. Streaming blocks are returned untouched for the caller
// to process sequentially, per the spec's "processed sequentially on the
// main thread" rule.
type ExtractionPipeline struct {
	HT      []index.Fragment
	Decode  DecodeFunc
	Write   ExtractWriteFunc
	Workers int

	writeMu sync.Mutex

	mu      sync.Mutex
	failed  []error
}

// Run claims and processes every non-streaming block in blocks across
// Workers goroutines, then returns the streaming blocks for the caller to
// process sequentially afterward, per §4.8. Blocks whose checksum fails
// are left in BlockBad state rather than aborting the run.
func (p *ExtractionPipeline) Run(blocks []*ExtractBlock) (streaming []*ExtractBlock, err error) {
	n := p.Workers
	if n < 1 {
		n = 1
	}

	jobs := make(chan *ExtractBlock)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				p.processBlock(b)
			}
		}()
	}

	for _, b := range blocks {
		if b.Streaming {
			streaming = append(streaming, b)
			continue
		}
		if !b.claim() {
			continue
		}
		jobs <- b
	}
	close(jobs)
	wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.failed) > 0 {
		return streaming, p.failed[0]
	}
	return streaming, nil
}

func (p *ExtractionPipeline) processBlock(b *ExtractBlock) {
	data, err := p.Decode(b)
	if err != nil {
		b.setState(BlockBad)
		p.recordErr(errors.Wrapf(err, "pipeline: decompress block at offset %d", b.Offset))
		return
	}

	for _, frag := range b.Fragments {
		if frag.Offset+frag.Size > len(data) {
			b.setState(BlockBad)
			p.recordErr(errors.Errorf("pipeline: block at offset %d too short for fragment %d", b.Offset, frag.ID))
			return
		}
		chunk := data[frag.Offset : frag.Offset+frag.Size]
		if !verifySHA1(chunk, frag.ID, p.HT) {
			b.setState(BlockBad)
			p.recordErr(errors.Errorf("pipeline: SHA-1 mismatch for fragment %d", frag.ID))
			return
		}
	}

	p.writeMu.Lock()
	for _, target := range b.Files {
		p.writeFragmentsForFile(b, data, target)
	}
	p.writeMu.Unlock()

	for _, frag := range b.Fragments {
		if int(frag.ID) < len(p.HT) {
			p.HT[frag.ID].CSize = archfmt.Extracted
		}
	}
	b.setState(BlockDone)
}

func (p *ExtractionPipeline) writeFragmentsForFile(b *ExtractBlock, data []byte, target *FileTarget) {
	for _, id := range target.Fragments {
		frag := fragmentRefByID(b.Fragments, id)
		if frag == nil {
			continue
		}
		chunk := data[frag.Offset : frag.Offset+frag.Size]
		if err := p.Write(target, id, chunk); err != nil {
			p.recordErr(errors.Wrapf(err, "pipeline: write fragment %d of %s", id, target.Name))
			continue
		}
		target.Written++
	}
}

func fragmentRefByID(refs []FragmentRef, id int64) *FragmentRef {
	for i := range refs {
		if refs[i].ID == id {
			return &refs[i]
		}
	}
	return nil
}

func verifySHA1(data []byte, id int64, ht []index.Fragment) bool {
	if id <= 0 || int(id) >= len(ht) {
		return false
	}
	sum := sha1.Sum(data)
	return sum == ht[id].SHA1
}

func (p *ExtractionPipeline) recordErr(err error) {
	p.mu.Lock()
	p.failed = append(p.failed, err)
	p.mu.Unlock()
}
