package models

// Choice is a user-selectable branch attached to a moment.
type Choice struct {
	// ID identifies the choice within its moment.
	ID string
	// Text is the label shown to the viewer.
	Text string
	// TargetSegmentID is the id of the moment to jump to. Empty means the choice is informational only.
	TargetSegmentID string
	// MomentID is the id of the moment that owns this choice.
	MomentID string
}

// HasTarget reports whether selecting the choice should move playback.
func (c Choice) HasTarget() bool {
	return c.TargetSegmentID != ""
}

// Moment is a timed piece of interactive content on the video timeline.
type Moment struct {
	// ID is unique within a catalog.
	ID string
	// StartMs and EndMs bound the inclusive window, in milliseconds of media time.
	StartMs int64
	EndMs   int64
	// Kind is the free-form type tag from the document (e.g. "scene:cs_bs").
	Kind string
	// BodyText is the overlay text. Empty when the document carries none.
	BodyText string
	// Choices is nil for display-only moments.
	Choices []Choice
	// VideoID and SegmentKey record where in the document the moment was found.
	VideoID    string
	SegmentKey string
}

// HasChoices reports whether the moment is a branch point.
func (m Moment) HasChoices() bool {
	return len(m.Choices) > 0
}

// Schedulable reports whether the moment may ever be shown.
// Moments without an id or with a negative or inverted window stay in the catalog
// as branch targets but never trigger.
func (m Moment) Schedulable() bool {
	return m.ID != "" && m.StartMs >= 0 && m.EndMs >= 0 && m.StartMs <= m.EndMs
}

// Contains reports whether positionMs falls inside the moment's window.
func (m Moment) Contains(positionMs int64) bool {
	return m.Schedulable() && m.StartMs <= positionMs && positionMs <= m.EndMs
}
