package index

import (
	"testing"

	"github.com/jidac/jidac/internal/archfmt"
)

func TestAppendFragmentIndexingStartsAtOne(t *testing.T) {
	m := NewModel()
	id := m.AppendFragment(Fragment{USize: 10})
	if id != 1 {
		t.Errorf("expected first fragment id 1, got %d", id)
	}
	if len(m.HT) != 2 {
		t.Errorf("expected HT len 2 (index 0 unused), got %d", len(m.HT))
	}
}

func TestAppendVersionMonotonic(t *testing.T) {
	m := NewModel()
	v1 := m.AppendVersion(Version{Date: archfmt.DecimalDate(20260101120000)})
	v2 := m.AppendVersion(Version{Date: archfmt.DecimalDate(20260101120000)})
	if m.VER[v2].Date <= m.VER[v1].Date {
		t.Errorf("expected strictly increasing dates, got %v then %v", m.VER[v1].Date, m.VER[v2].Date)
	}
}

// TestAppendVersionBumpsAcrossMinuteBoundary guards against a bump that
// increments the raw decimal digits instead of a real calendar second:
// ...235959 + 1 digit would land on an invalid ...235960, not the correct
// rollover to the next day at ...000000.
func TestAppendVersionBumpsAcrossMinuteBoundary(t *testing.T) {
	m := NewModel()
	v1 := m.AppendVersion(Version{Date: archfmt.DecimalDate(20260806235959)})
	v2 := m.AppendVersion(Version{Date: archfmt.DecimalDate(20260806235959)})
	want := archfmt.DecimalDate(20260807000000)
	if m.VER[v2].Date != want {
		t.Errorf("expected bump to roll over to %v, got %v", want, m.VER[v2].Date)
	}
	if m.VER[v2].Date <= m.VER[v1].Date {
		t.Errorf("expected strictly increasing dates, got %v then %v", m.VER[v1].Date, m.VER[v2].Date)
	}
}

func TestLatestAsOf(t *testing.T) {
	fe := &FileEntry{Name: "a.txt"}
	fe.DTV = []DTV{
		{Version: 1, Date: 20260101000000, Size: 10},
		{Version: 3, Date: 20260103000000, Size: 20},
		{Version: 5, Date: 0}, // deleted at v5
	}
	if got := fe.LatestAsOf(2); got == nil || got.Version != 1 {
		t.Errorf("expected v1 record at query v2, got %+v", got)
	}
	if got := fe.LatestAsOf(4); got == nil || got.Version != 3 {
		t.Errorf("expected v3 record at query v4, got %+v", got)
	}
	if got := fe.LatestAsOf(5); got == nil || !got.IsDeletion() {
		t.Errorf("expected deletion record at query v5, got %+v", got)
	}
	if got := fe.LatestAsOf(0); got != nil {
		t.Errorf("expected no record before file existed, got %+v", got)
	}
}

func TestTruncateToVersion(t *testing.T) {
	m := NewModel()
	m.AppendVersion(Version{Date: 20260101000000, FirstFragment: 1})
	f1 := m.AppendFragment(Fragment{USize: 1})
	fe := m.FileEntryFor("a.txt")
	fe.DTV = append(fe.DTV, DTV{Version: 1, Date: 20260101000000, Ptr: []int64{f1}})

	m.AppendVersion(Version{Date: 20260102000000, FirstFragment: int64(len(m.HT))})
	m.AppendFragment(Fragment{USize: 2})
	fe.DTV = append(fe.DTV, DTV{Version: 2, Date: 20260102000000, Ptr: []int64{f1, 2}})

	m.TruncateToVersion(1)

	if m.LatestVersion() != 1 {
		t.Errorf("expected latest version 1, got %d", m.LatestVersion())
	}
	if len(m.HT) != 2 {
		t.Errorf("expected HT truncated to 2 entries, got %d", len(m.HT))
	}
	got := m.DT["a.txt"]
	if got == nil || len(got.DTV) != 1 {
		t.Errorf("expected exactly one surviving DTV, got %+v", got)
	}
}

func TestFragmentClassify(t *testing.T) {
	cases := []struct {
		f    Fragment
		want csizeKind
	}{
		{Fragment{CSize: archfmt.HTBad}, CSizeBad},
		{Fragment{CSize: archfmt.Extracted}, CSizeExtracted},
		{Fragment{CSize: 1024}, CSizeBlockHead},
		{Fragment{CSize: -3}, CSizeInBlock},
	}
	for _, c := range cases {
		if got := c.f.Classify(); got != c.want {
			t.Errorf("Classify(%+v) = %v, want %v", c.f, got, c.want)
		}
	}
}
