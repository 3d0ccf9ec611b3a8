package graph

import "fmt"

// ParseError reports a structural failure of the whole document.
// No session can start from a document that fails this way.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot load moment graph: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot load moment graph: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IssueKind classifies a non-fatal problem found while parsing.
type IssueKind int

const (
	// EntryMalformed marks a moment entry kept in the catalog but left out of the schedule,
	// or an entry that could not be read at all.
	EntryMalformed IssueKind = iota + 1
	// ChoiceMalformed marks a choice entry that was dropped.
	ChoiceMalformed
	// SegmentSkipped marks a video or segment container that held no readable moments.
	SegmentSkipped
	// DuplicateID marks a moment that replaced an earlier one with the same id.
	DuplicateID
)

func (k IssueKind) String() string {
	switch k {
	case EntryMalformed:
		return "entry malformed"
	case ChoiceMalformed:
		return "choice malformed"
	case SegmentSkipped:
		return "segment skipped"
	case DuplicateID:
		return "duplicate id"
	default:
		return "unknown"
	}
}

// Issue is a per-entry problem. Issues never abort a parse.
type Issue struct {
	Kind       IssueKind
	VideoID    string
	SegmentKey string
	// Index is the entry position inside its segment array, or -1 for container-level issues.
	Index    int
	MomentID string
	Reason   string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: video=%s segment=%s index=%d id=%q: %s", i.Kind, i.VideoID, i.SegmentKey, i.Index, i.MomentID, i.Reason)
}
