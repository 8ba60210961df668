package frag

import (
	"bytes"
	"crypto/sha1"
	"math/rand"
	"testing"
)

func TestSplitSmallInput(t *testing.T) {
	frags, err := Split(bytes.NewReader([]byte("hello\n")))
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(frags))
	}
	if frags[0].USize != 6 {
		t.Errorf("expected 6 bytes, got %d", frags[0].USize)
	}
	want := sha1.Sum([]byte("hello\n"))
	if frags[0].SHA1 != want {
		t.Errorf("sha1 mismatch")
	}
}

func TestSplitEmptyInput(t *testing.T) {
	frags, err := Split(bytes.NewReader(nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) != 0 {
		t.Fatalf("expected 0 fragments, got %d", len(frags))
	}
}

func TestFragmentBoundsRespected(t *testing.T) {
	data := make([]byte, 4*MaxFragment)
	rand.New(rand.NewSource(1)).Read(data)

	frags, err := Split(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	var total int64
	for i, f := range frags {
		if f.USize > MaxFragment {
			t.Errorf("fragment %d exceeds MaxFragment: %d", i, f.USize)
		}
		if i < len(frags)-1 && f.USize < MinFragment {
			t.Errorf("non-final fragment %d smaller than MinFragment: %d", i, f.USize)
		}
		total += f.USize
	}
	if total != int64(len(data)) {
		t.Errorf("fragment sizes do not sum to input length: got %d want %d", total, len(data))
	}
}

func TestFragmentationDeterministic(t *testing.T) {
	data := make([]byte, 8*MaxFragment)
	rand.New(rand.NewSource(42)).Read(data)

	a, err := Split(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Split(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("non-deterministic fragment count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].SHA1 != b[i].SHA1 || a[i].USize != b[i].USize {
			t.Errorf("fragment %d differs between runs", i)
		}
	}
}

// Insertions early in a stream should only perturb fragments overlapping
// the inserted region, per §8 I8.
func TestInsertionLocality(t *testing.T) {
	data := make([]byte, 6*MaxFragment)
	rand.New(rand.NewSource(7)).Read(data)

	orig, err := Split(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	insert := make([]byte, 777)
	rand.New(rand.NewSource(99)).Read(insert)
	modified := append(append(append([]byte{}, data[:1000]...), insert...), data[1000:]...)

	mod, err := Split(bytes.NewReader(modified))
	if err != nil {
		t.Fatal(err)
	}

	// Compare fragment hash sets from the tail: enough fragments after the
	// inserted region should be byte-identical to the original run.
	origTail := map[[20]byte]bool{}
	for _, f := range orig[len(orig)/2:] {
		origTail[f.SHA1] = true
	}
	shared := 0
	for _, f := range mod[len(mod)/2:] {
		if origTail[f.SHA1] {
			shared++
		}
	}
	if shared == 0 {
		t.Error("expected some fragments unaffected by a small local insertion")
	}
}
