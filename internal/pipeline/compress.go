// Package pipeline implements the two worker pools §4.7/§4.8 describe: a
// bounded ring of compression cells feeding a single ordered writer during
// add, and a pool of decompression workers with a shared write mutex
// during extract/test.
package pipeline

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/jidac/jidac/internal/codec"
	"github.com/jidac/jidac/internal/method"
)

// Job is one unit of work fed into the compression pipeline: a block's
// raw fragment bytes plus the recipe chosen for it. A zero-value Job with
// Sentinel set carries no data and only signals shutdown, per §4.7's
// "producer pushes T sentinel jobs (empty method string)".
type Job struct {
	Sentinel bool
	Data     []byte
	Recipe   method.Recipe
	Dict     codec.Dict

	// Checksum is the blake2b-512 digest of Data, computed by the producer
	// while assembling the block, before it's handed to this pipeline —
	// mirroring the teacher's header+body hash-then-patch idiom
	// (ponzu/writer/writer.go's blake2b.New512 call). The compress worker
	// decodes its own winning candidate back and compares against this
	// digest as an internal double-check that the codec round-trips the
	// block correctly before the writer ever commits it to the archive.
	Checksum [blake2b.Size]byte

	// FirstFragment and USizes carry the block trailer fields (§4.3) the
	// writer needs once this job's bytes are compressed and written.
	FirstFragment int64
	USizes        []int64

	// Meta carries caller-defined bookkeeping (e.g. the per-fragment SHA-1
	// list needed to write the matching `h` block) through to Result
	// untouched.
	Meta interface{}
}

// Result is what a compression worker hands the writer once a cell
// transitions COMPRESSING -> COMPRESSED.
type Result struct {
	Job       Job
	Candidate method.Candidate
	Encoded   []byte
	Err       error
}

// WriteFunc appends one compressed block to the archive and returns its
// csize (the value recorded into HT for the block's first fragment),
// mirroring the writer thread of §4.7.
type WriteFunc func(Result) (csize int64, err error)

type cell struct {
	job        Job
	result     Result
	full       chan struct{}
	compressed chan struct{}
}

// CompressionPipeline is the §4.7 ring of work cells: one producer
// (Submit), n pinned compression workers, and one writer goroutine that
// drains cells in cyclic order so blocks reach the archive in the order
// the producer filled them (§5's ordering guarantee, I6).
type CompressionPipeline struct {
	cells   []*cell
	emptyCh chan int
	write   WriteFunc

	wg      sync.WaitGroup
	writeWg sync.WaitGroup

	mu      sync.Mutex
	csizes  []int64
	lastErr error
}

// New starts n compression workers and one writer goroutine. write is
// called exactly once per non-sentinel job, in submission order.
func New(n int, write WriteFunc) *CompressionPipeline {
	if n < 1 {
		n = 1
	}
	p := &CompressionPipeline{
		cells:   make([]*cell, n),
		emptyCh: make(chan int, n),
		write:   write,
	}
	for i := range p.cells {
		p.cells[i] = &cell{full: make(chan struct{}, 1), compressed: make(chan struct{}, 1)}
		p.emptyCh <- i
	}

	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.compressWorker(i)
	}
	p.writeWg.Add(1)
	go p.writer(n)

	return p
}

func (p *CompressionPipeline) compressWorker(idx int) {
	defer p.wg.Done()
	c := p.cells[idx]
	for range c.full {
		if c.job.Sentinel {
			c.result = Result{Job: c.job}
			c.compressed <- struct{}{}
			return
		}
		rec, err := codec.Race(c.job.Data, c.job.Recipe, c.job.Dict)
		switch {
		case err != nil:
			c.result = Result{Job: c.job, Err: errors.Wrap(err, "pipeline: compress")}
		default:
			if err := verifyChecksum(rec, c.job); err != nil {
				c.result = Result{Job: c.job, Err: err}
			} else {
				c.result = Result{Job: c.job, Candidate: rec.Candidate, Encoded: rec.Encoded}
			}
		}
		c.compressed <- struct{}{}
	}
}

// verifyChecksum decodes rec's winning candidate back and compares its
// blake2b-512 digest against job.Checksum, the internal double-check §7's
// Integrity error kind names: a mismatch here means the codec corrupted
// the block between encode and decode, caught before the writer commits
// it to the archive.
func verifyChecksum(rec codec.RaceResult, job Job) error {
	decoded, err := codec.DecodeCandidate(rec.Encoded, rec.Candidate, job.Dict)
	if err != nil {
		return errors.Wrap(err, "pipeline: double-check decode")
	}
	sum := blake2b.Sum512(decoded)
	if !bytes.Equal(sum[:], job.Checksum[:]) {
		return errors.New("pipeline: block failed blake2b double-check after compression")
	}
	return nil
}

func (p *CompressionPipeline) writer(n int) {
	defer p.writeWg.Done()
	front := 0
	for {
		c := p.cells[front]
		<-c.compressed
		if c.job.Sentinel {
			return
		}
		csize, err := p.write(c.result)
		if err != nil && p.lastErr == nil {
			p.mu.Lock()
			p.lastErr = err
			p.mu.Unlock()
		}
		p.mu.Lock()
		p.csizes = append(p.csizes, csize)
		p.mu.Unlock()
		p.emptyCh <- front
		front = (front + 1) % n
	}
}

// Submit blocks until a cell is free, then hands job to the next worker
// pinned to that cell.
func (p *CompressionPipeline) Submit(job Job) {
	idx := <-p.emptyCh
	c := p.cells[idx]
	c.job = job
	c.full <- struct{}{}
}

// Close pushes one sentinel per worker and waits for the writer to drain,
// per §4.7's shutdown sequence. It returns the csize list in submission
// order and the first write error encountered, if any.
func (p *CompressionPipeline) Close() ([]int64, error) {
	n := len(p.cells)
	for i := 0; i < n; i++ {
		p.Submit(Job{Sentinel: true})
	}
	p.writeWg.Wait()
	for _, c := range p.cells {
		close(c.full)
	}
	p.wg.Wait()
	return p.csizes, p.lastErr
}
