package session

import (
	"context"
	"errors"
	"fmt"
	"interactiveplayer/internal/clock"
	"interactiveplayer/internal/graph"
	"interactiveplayer/internal/models"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPoll    = 5 * time.Millisecond
	waitFor     = 2 * time.Second
	checkEvery  = 5 * time.Millisecond
	noTicks     = time.Hour
	example     = `{"jsonGraph": {"videos": {"v1": {"interactiveVideoMoments": {"value": {"momentsBySegment": {
		"intro": [{"id": "a", "type": "scene:cs_bs", "startMs": 1000, "endMs": 2000, "bodyText": "Which way?",
			"choices": [
				{"id": "c1", "text": "Go left", "segmentId": "b"},
				{"id": "c2", "text": "Nowhere", "segmentId": "missing"}
			]}],
		"left": [{"id": "b", "type": "notification", "startMs": 5000, "endMs": 6000}]
	}}}}}}}`
)

// mockLogger is a no-op logger for testing purposes.
type mockLogger struct{}

func (m *mockLogger) Debugf(format string, v ...interface{}) {}
func (m *mockLogger) Infof(format string, v ...interface{})  {}
func (m *mockLogger) Warnf(format string, v ...interface{})  {}
func (m *mockLogger) Errorf(format string, v ...interface{}) {}

// recorder is a presenter that remembers every call.
// When gate is set, MomentShown blocks until the gate is closed.
type recorder struct {
	mu      sync.Mutex
	events  []string
	panicOn string
	gate    chan struct{}
}

func (r *recorder) MomentShown(m models.Moment) {
	r.mu.Lock()
	r.events = append(r.events, "shown:"+m.ID)
	r.mu.Unlock()
	if r.gate != nil {
		<-r.gate
	}
	if r.panicOn == "shown:"+m.ID {
		panic("presenter exploded")
	}
}

func (r *recorder) MomentHidden(m models.Moment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "hidden:"+m.ID)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func parseExample(t *testing.T) *graph.Result {
	t.Helper()
	res, err := graph.Parse([]byte(example), graph.Options{})
	require.NoError(t, err)
	return res
}

func choice(t *testing.T, res *graph.Result, id string) models.Choice {
	t.Helper()
	a, found := res.Catalog.Get("a")
	require.True(t, found)
	for _, c := range a.Choices {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("choice %s not found", id)
	return models.Choice{}
}

func manualSource(clk *clock.Manual) clock.Source {
	return clock.SourceFunc(func(ctx context.Context) (clock.Clock, error) {
		return clk, nil
	})
}

func startSession(t *testing.T, clk *clock.Manual, p *recorder, poll time.Duration) (*Session, *graph.Result) {
	t.Helper()
	res := parseExample(t)
	s := New(&mockLogger{}, Options{PollInterval: poll, Lookahead: time.Second}, res, p)
	require.NoError(t, s.Start(context.Background(), manualSource(clk)))
	t.Cleanup(s.Stop)
	return s, res
}

func eventsEqual(p *recorder, want ...string) func() bool {
	return func() bool {
		return fmt.Sprint(p.Events()) == fmt.Sprint(want)
	}
}

func TestSession_PollsClock(t *testing.T) {
	clk := clock.NewManual(0)
	p := &recorder{}
	startSession(t, clk, p, testPoll)

	clk.Set(1500)
	assert.Eventually(t, eventsEqual(p, "shown:a"), waitFor, checkEvery)

	clk.Set(2500)
	assert.Eventually(t, eventsEqual(p, "shown:a", "hidden:a"), waitFor, checkEvery)
}

func TestSession_ChooseBranchesImmediately(t *testing.T) {
	clk := clock.NewManual(1500)
	p := &recorder{}
	// Only the initial poll and command re-polls can produce events.
	s, res := startSession(t, clk, p, noTicks)

	require.Eventually(t, eventsEqual(p, "shown:a"), waitFor, checkEvery)

	require.NoError(t, s.Choose(choice(t, res, "c1")))
	assert.Eventually(t, eventsEqual(p, "shown:a", "hidden:a", "shown:b"), waitFor, checkEvery)
	assert.Equal(t, []int64{5000}, clk.Seeks())

	require.NoError(t, s.Seek(6500))
	assert.Eventually(t, eventsEqual(p, "shown:a", "hidden:a", "shown:b", "hidden:b"), waitFor, checkEvery)

	require.NoError(t, s.Seek(5500))
	assert.Eventually(t, eventsEqual(p, "shown:a", "hidden:a", "shown:b", "hidden:b", "shown:b"), waitFor, checkEvery,
		"scrubbing back into a passed moment shows it again")
	assert.Equal(t, []int64{5000, 6500, 5500}, clk.Seeks())
}

func TestSession_CommandRunsBeforeDueTick(t *testing.T) {
	clk := clock.NewManual(1500)
	p := &recorder{gate: make(chan struct{})}
	s, _ := startSession(t, clk, p, testPoll)

	// The first show blocks the loop long enough for a tick to become due.
	require.Eventually(t, eventsEqual(p, "shown:a"), waitFor, checkEvery)
	clk.Set(2500)
	require.NoError(t, s.Seek(1600))
	time.Sleep(10 * testPoll)
	close(p.gate)

	// Had the due tick run first it would have hidden a at 2500 and the seek would show it again.
	require.Eventually(t, func() bool { return len(clk.Seeks()) == 1 }, waitFor, checkEvery)
	time.Sleep(10 * testPoll)
	assert.Equal(t, []string{"shown:a"}, p.Events(), "no duplicate events after the command")
	assert.Equal(t, []int64{1600}, clk.Seeks())
}

func TestSession_UnknownTargetIsIgnored(t *testing.T) {
	clk := clock.NewManual(1500)
	p := &recorder{}
	s, res := startSession(t, clk, p, testPoll)

	require.Eventually(t, eventsEqual(p, "shown:a"), waitFor, checkEvery)
	require.NoError(t, s.Choose(choice(t, res, "c2")))

	// A seek command queued behind the bad choice proves the choice was processed.
	require.NoError(t, s.Seek(1600))
	require.Eventually(t, func() bool { return len(clk.Seeks()) == 1 }, waitFor, checkEvery)

	assert.Equal(t, []int64{1600}, clk.Seeks(), "the unknown target caused no seek")
	assert.Equal(t, []string{"shown:a"}, p.Events())
}

func TestSession_StopReleasesClock(t *testing.T) {
	clk := clock.NewManual(1500)
	p := &recorder{}
	s, res := startSession(t, clk, p, testPoll)
	require.Eventually(t, eventsEqual(p, "shown:a"), waitFor, checkEvery)

	s.Stop()
	assert.True(t, clk.Closed())
	assert.NoError(t, s.Wait())
	assert.ErrorIs(t, s.Choose(choice(t, res, "c1")), ErrStopped)

	clk.Set(2500)
	time.Sleep(10 * testPoll)
	assert.Equal(t, []string{"shown:a"}, p.Events(), "no tick runs after teardown")

	s.Stop()
}

func TestSession_QueuedCommandDroppedOnStop(t *testing.T) {
	for i := 0; i < 50; i++ {
		clk := clock.NewManual(1500)
		p := &recorder{gate: make(chan struct{})}
		s, _ := startSession(t, clk, p, testPoll)

		require.Eventually(t, eventsEqual(p, "shown:a"), waitFor, checkEvery)
		require.NoError(t, s.Seek(5500))

		stopped := make(chan struct{})
		go func() {
			s.Stop()
			close(stopped)
		}()
		require.Eventually(t, func() bool { return s.ctx.Err() != nil }, waitFor, checkEvery)
		close(p.gate)

		select {
		case <-stopped:
		case <-time.After(waitFor):
			t.Fatal("Stop did not return")
		}
		require.Empty(t, clk.Seeks(), "a command queued before Stop ran after teardown began (run %d)", i)
		require.Equal(t, []string{"shown:a"}, p.Events(), "no tick after teardown (run %d)", i)
		require.True(t, clk.Closed())
	}
}

func TestSession_EndsWithMedia(t *testing.T) {
	clk := clock.NewManual(1500)
	p := &recorder{}
	s, _ := startSession(t, clk, p, testPoll)
	require.Eventually(t, eventsEqual(p, "shown:a"), waitFor, checkEvery)

	clk.Finish()
	select {
	case <-s.Done():
	case <-time.After(waitFor):
		t.Fatal("session did not finish when the media ended")
	}
	assert.NoError(t, s.Wait())
	assert.Equal(t, []string{"shown:a", "hidden:a"}, p.Events())
	assert.True(t, clk.Closed())
	assert.ErrorIs(t, s.Seek(0), ErrStopped)
}

func TestSession_ClockUnavailable(t *testing.T) {
	res := parseExample(t)
	s := New(&mockLogger{}, Options{PollInterval: testPoll}, res, &recorder{})

	openErr := errors.New("codec not supported")
	err := s.Start(context.Background(), clock.SourceFunc(func(ctx context.Context) (clock.Clock, error) {
		return nil, openErr
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, clock.ErrUnavailable)
	assert.ErrorIs(t, err, openErr)

	assert.ErrorIs(t, s.Wait(), clock.ErrUnavailable)
	assert.ErrorIs(t, s.Start(context.Background(), manualSource(clock.NewManual(0))), ErrAlreadyStarted)
	s.Stop()
}

func TestSession_SetupAbortReleasesClock(t *testing.T) {
	res := parseExample(t)
	s := New(&mockLogger{}, Options{PollInterval: testPoll}, res, &recorder{})
	clk := clock.NewManual(1500)

	ctx, cancel := context.WithCancel(context.Background())
	err := s.Start(ctx, clock.SourceFunc(func(context.Context) (clock.Clock, error) {
		cancel()
		return clk, nil
	}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, clk.Closed())
	assert.ErrorIs(t, s.Wait(), context.Canceled)
}

func TestSession_StopBeforeStart(t *testing.T) {
	s := New(&mockLogger{}, Options{}, parseExample(t), &recorder{})
	s.Stop()
	assert.NoError(t, s.Wait())
	assert.ErrorIs(t, s.Start(context.Background(), manualSource(clock.NewManual(0))), ErrAlreadyStarted)
}

func TestSession_PresenterPanicDoesNotStopPolling(t *testing.T) {
	clk := clock.NewManual(1500)
	p := &recorder{panicOn: "shown:a"}
	startSession(t, clk, p, testPoll)

	require.Eventually(t, eventsEqual(p, "shown:a"), waitFor, checkEvery)
	clk.Set(5500)
	assert.Eventually(t, eventsEqual(p, "shown:a", "hidden:a", "shown:b"), waitFor, checkEvery)
}

func TestSession_BusyQueue(t *testing.T) {
	res := parseExample(t)
	s := New(&mockLogger{}, Options{CommandBuffer: 1}, res, &recorder{})
	defer s.Stop()

	require.NoError(t, s.Seek(1))
	assert.ErrorIs(t, s.Seek(2), ErrBusy)
}

func TestSession_Run(t *testing.T) {
	clk := clock.NewManual(1500)
	p := &recorder{}
	s := New(&mockLogger{}, Options{PollInterval: testPoll}, parseExample(t), p)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx, manualSource(clk)) }()

	require.Eventually(t, eventsEqual(p, "shown:a"), waitFor, checkEvery)
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Run did not return after cancellation")
	}
	assert.True(t, clk.Closed())
}
