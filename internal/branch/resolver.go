package branch

import (
	"errors"
	"fmt"
	"interactiveplayer/internal/clock"
	"interactiveplayer/internal/logger"
	"interactiveplayer/internal/models"
	"interactiveplayer/internal/scheduler"
)

// ErrUnknownTarget is returned when a choice points at a moment the catalog does not have.
var ErrUnknownTarget = errors.New("unknown branch target")

// Error describes a branch that could not be taken. Player state is unchanged when it is returned.
type Error struct {
	ChoiceID string
	TargetID string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("branch %q -> %q: %v", e.ChoiceID, e.TargetID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// OutcomeKind says what resolving a choice did.
type OutcomeKind int

const (
	// Informational choices carry no target; nothing moves.
	Informational OutcomeKind = iota + 1
	// Seeked choices moved playback to their target's start.
	Seeked
)

func (k OutcomeKind) String() string {
	switch k {
	case Informational:
		return "informational"
	case Seeked:
		return "seeked"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of a resolved choice.
type Outcome struct {
	Kind   OutcomeKind
	Choice models.Choice
	// Target and SeekMs are set for Seeked outcomes.
	Target models.Moment
	SeekMs int64
	// Events holds the transitions caused by the branch, in the order they happened.
	Events []scheduler.Event
}

// Resolver turns choices into seeks and repairs the scheduler afterwards.
// It shares the scheduler's single owner and is not safe for concurrent use.
type Resolver struct {
	logger    logger.Logger
	catalog   *models.Catalog
	scheduler *scheduler.Scheduler
	clock     clock.Clock
}

// NewResolver wires a resolver to the session's scheduler and clock.
func NewResolver(log logger.Logger, catalog *models.Catalog, sched *scheduler.Scheduler, clk clock.Clock) *Resolver {
	return &Resolver{
		logger:    log,
		catalog:   catalog,
		scheduler: sched,
		clock:     clk,
	}
}

// Resolve applies a choice. For a choice with a known target it seeks to the target's start,
// hides the branch point at once and re-runs the scheduler at the new position,
// so the target shows without waiting for the next tick.
func (r *Resolver) Resolve(choice models.Choice) (Outcome, error) {
	if !choice.HasTarget() {
		r.logger.Debugf("Choice %q is informational, no seek", choice.ID)
		return Outcome{Kind: Informational, Choice: choice}, nil
	}

	target, found := r.catalog.Get(choice.TargetSegmentID)
	if !found {
		return Outcome{}, &Error{ChoiceID: choice.ID, TargetID: choice.TargetSegmentID, Err: ErrUnknownTarget}
	}

	if err := r.clock.SeekTo(target.StartMs); err != nil {
		return Outcome{}, &Error{ChoiceID: choice.ID, TargetID: target.ID, Err: fmt.Errorf("seek to %dms failed: %w", target.StartMs, err)}
	}
	position := r.clock.PositionMs()
	r.logger.Infof("Choice %q jumped to moment %q at %dms", choice.ID, target.ID, position)

	out := Outcome{Kind: Seeked, Choice: choice, Target: target, SeekMs: target.StartMs}
	if ev, ok := r.scheduler.Lower(choice.MomentID, position); ok {
		out.Events = append(out.Events, ev)
	}
	out.Events = append(out.Events, r.scheduler.Tick(position)...)
	return out, nil
}
