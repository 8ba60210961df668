package archfmt

import "github.com/pkg/errors"

var (
	errShortAttr = errors.New("archfmt: truncated attribute payload")

	// ErrBadSegmentName is returned when a segment filename does not match
	// the JIDAC naming pattern of §6.2.
	ErrBadSegmentName = errors.New("archfmt: segment name is not a JIDAC name")

	// ErrBadJournalTag is returned when a segment comment does not end in
	// the journaling tag "jDC\x01" required by §4.9.
	ErrBadJournalTag = errors.New("archfmt: segment comment missing journaling tag")
)
