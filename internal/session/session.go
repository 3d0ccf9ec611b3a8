package session

import (
	"context"
	"errors"
	"fmt"
	"interactiveplayer/internal/branch"
	"interactiveplayer/internal/clock"
	"interactiveplayer/internal/graph"
	"interactiveplayer/internal/logger"
	"interactiveplayer/internal/models"
	"interactiveplayer/internal/schedule"
	"interactiveplayer/internal/scheduler"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultPollInterval  = 100 * time.Millisecond
	defaultCommandBuffer = 16
)

var (
	// ErrStopped is returned for commands sent to a session that has finished or is tearing down.
	ErrStopped = errors.New("session stopped")
	// ErrBusy is returned when the command queue is full.
	ErrBusy = errors.New("session command queue full")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("session already started")
)

// Presenter receives moment transitions. Calls are made from the session goroutine, one at a time.
type Presenter interface {
	MomentShown(m models.Moment)
	MomentHidden(m models.Moment)
}

// Options tunes the session loop.
type Options struct {
	// PollInterval is the fixed period between ticks.
	PollInterval time.Duration
	// Lookahead bounds the upcoming-trigger log. Zero disables it.
	Lookahead time.Duration
	// CommandBuffer is the capacity of the choice/seek queue.
	CommandBuffer int
}

type commandKind int

const (
	cmdChoose commandKind = iota + 1
	cmdSeek
)

type command struct {
	kind   commandKind
	choice models.Choice
	seekMs int64
}

// Session plays one moment graph against one clock.
// A single goroutine owns the scheduler, the resolver and the clock; everything else talks to it
// through the command queue.
type Session struct {
	logger    logger.Logger
	opts      Options
	catalog   *models.Catalog
	schedule  *schedule.Schedule
	presenter Presenter

	commands chan command

	// Loop-owned state
	clock        clock.Clock
	scheduler    *scheduler.Scheduler
	resolver     *branch.Resolver
	playing      bool
	lastUpcoming string

	// Control
	ctx      context.Context
	cancel   context.CancelFunc
	started  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
	err      error
}

// New prepares a session for a parsed moment graph. Nothing runs until Start.
func New(log logger.Logger, opts Options, res *graph.Result, presenter Presenter) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.CommandBuffer < 1 {
		opts.CommandBuffer = defaultCommandBuffer
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		logger:    log,
		opts:      opts,
		catalog:   res.Catalog,
		schedule:  res.Schedule,
		presenter: presenter,
		commands:  make(chan command, opts.CommandBuffer),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start opens the clock from src and begins polling. ctx only scopes the setup.
// If the clock cannot be opened the error wraps clock.ErrUnavailable and the session is finished.
func (s *Session) Start(ctx context.Context, src clock.Source) (err error) {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	launched := false
	var clk clock.Clock
	defer func() {
		if launched {
			return
		}
		if clk != nil {
			if cerr := clk.Close(); cerr != nil {
				s.logger.Warnf("Failed to release clock after setup error: %v", cerr)
			}
		}
		s.err = err
		s.cancel()
		close(s.done)
	}()

	clk, err = src.Open(ctx)
	if err != nil {
		clk = nil
		if !errors.Is(err, clock.ErrUnavailable) {
			err = fmt.Errorf("%w: %w", clock.ErrUnavailable, err)
		}
		s.logger.Errorf("Failed to open playback clock: %v", err)
		return err
	}
	if err = ctx.Err(); err == nil {
		err = s.ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("session setup aborted: %w", err)
	}

	s.clock = clk
	s.scheduler = scheduler.New(s.logger, s.catalog, s.schedule)
	s.resolver = branch.NewResolver(s.logger, s.catalog, s.scheduler, clk)
	s.playing = clk.IsPlaying()

	s.logger.Infof("Starting session: %d moments, %d triggers, poll every %s", s.catalog.Len(), s.schedule.Len(), s.opts.PollInterval)
	launched = true
	go s.loop()
	return nil
}

// Run starts the session and blocks until it finishes or ctx is cancelled.
func (s *Session) Run(ctx context.Context, src clock.Source) error {
	if err := s.Start(ctx, src); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		s.Stop()
	case <-s.done:
	}
	return s.Wait()
}

// Stop cancels the timer, waits for the loop to exit and releases the clock.
// No tick starts after Stop is called.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Infof("Stopping session")
		s.cancel()
		if s.started.CompareAndSwap(false, true) {
			close(s.done)
		}
	})
	<-s.done
}

// Wait blocks until the session finishes and returns its terminal error, if any.
func (s *Session) Wait() error {
	<-s.done
	return s.err
}

// Done is closed when the session has finished and released its clock.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Choose queues a viewer's choice. It never blocks, so presenters may call it from their callbacks.
func (s *Session) Choose(choice models.Choice) error {
	return s.enqueue(command{kind: cmdChoose, choice: choice})
}

// Seek queues a user scrub to ms.
func (s *Session) Seek(ms int64) error {
	return s.enqueue(command{kind: cmdSeek, seekMs: ms})
}

func (s *Session) enqueue(cmd command) error {
	if s.ctx.Err() != nil {
		return ErrStopped
	}
	select {
	case s.commands <- cmd:
		return nil
	default:
		return ErrBusy
	}
}

// loop is the single owner of the scheduler and the clock.
func (s *Session) loop() {
	defer close(s.done)
	defer s.release()
	defer s.cancel()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	if s.poll() {
		return
	}

	for {
		// Queued commands go before a pending tick.
		select {
		case <-s.ctx.Done():
			return
		case cmd := <-s.commands:
			if s.handle(cmd) {
				return
			}
			ticker.Reset(s.opts.PollInterval)
			continue
		default:
		}

		select {
		case <-s.ctx.Done():
			return
		case cmd := <-s.commands:
			if s.handle(cmd) {
				return
			}
			ticker.Reset(s.opts.PollInterval)
		case <-ticker.C:
			if s.poll() {
				return
			}
		}
	}
}

// poll runs one tick at the clock's position. It returns true once the media has ended
// or teardown has begun, in which case nothing is ticked.
func (s *Session) poll() bool {
	if s.ctx.Err() != nil {
		return true
	}
	pos := s.clock.PositionMs()
	s.notePlaying(pos)
	s.dispatch(s.scheduler.Tick(pos))
	s.logUpcoming(pos)

	if ender, ok := s.clock.(clock.Ender); ok && ender.Ended() {
		s.logger.Infof("Playback ended at %dms", pos)
		s.dispatch(s.scheduler.LowerAll(pos))
		return true
	}
	return false
}

// handle applies one command and re-polls at once. It returns true once the media has ended.
// Commands still queued when teardown begins are dropped.
func (s *Session) handle(cmd command) bool {
	if s.ctx.Err() != nil {
		return true
	}
	switch cmd.kind {
	case cmdChoose:
		s.logger.Infof("Choice %q (%q) selected on moment %q", cmd.choice.ID, cmd.choice.Text, cmd.choice.MomentID)
		out, err := s.resolver.Resolve(cmd.choice)
		if err != nil {
			s.logger.Warnf("Branch not taken: %v", err)
			return false
		}
		s.dispatch(out.Events)
		if out.Kind == branch.Informational {
			return false
		}
	case cmdSeek:
		s.logger.Debugf("Seeking to %dms", cmd.seekMs)
		if err := s.clock.SeekTo(cmd.seekMs); err != nil {
			s.logger.Warnf("Seek to %dms failed: %v", cmd.seekMs, err)
			return false
		}
	}
	return s.poll()
}

func (s *Session) dispatch(events []scheduler.Event) {
	for _, ev := range events {
		s.deliver(ev)
	}
}

// deliver hands one event to the presenter. A panicking presenter only loses that event.
func (s *Session) deliver(ev scheduler.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("Presenter failed on %s moment %q: %v", ev.Kind, ev.Moment.ID, r)
		}
	}()

	s.logger.Debugf("Moment %q %s at %dms", ev.Moment.ID, ev.Kind, ev.PositionMs)
	switch ev.Kind {
	case scheduler.MomentShown:
		s.presenter.MomentShown(ev.Moment)
	case scheduler.MomentHidden:
		s.presenter.MomentHidden(ev.Moment)
	}
}

func (s *Session) notePlaying(pos int64) {
	playing := s.clock.IsPlaying()
	if playing == s.playing {
		return
	}
	s.playing = playing
	if playing {
		s.logger.Debugf("Playback resumed at %dms", pos)
	} else {
		s.logger.Debugf("Playback paused at %dms", pos)
	}
}

func (s *Session) logUpcoming(pos int64) {
	upcoming := strings.Join(s.scheduler.Upcoming(pos, s.opts.Lookahead.Milliseconds()), ",")
	if upcoming == s.lastUpcoming {
		return
	}
	s.lastUpcoming = upcoming
	if upcoming != "" {
		s.logger.Debugf("Upcoming within %s of %dms: %s", s.opts.Lookahead, pos, upcoming)
	}
}

func (s *Session) release() {
	if err := s.clock.Close(); err != nil {
		s.logger.Warnf("Failed to release clock: %v", err)
	}
	s.logger.Infof("Session finished, active at exit: %v", s.scheduler.ActiveIDs())
}
