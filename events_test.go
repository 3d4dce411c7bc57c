package vidsink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/vidsink/display"
	"github.com/opd-ai/vidsink/media"
)

type navRecorder struct {
	ch chan media.NavigationEvent
}

func newNavRecorder() *navRecorder {
	return &navRecorder{ch: make(chan media.NavigationEvent, 16)}
}

func (r *navRecorder) callback() func(media.NavigationEvent) {
	return func(ev media.NavigationEvent) {
		select {
		case r.ch <- ev:
		default:
		}
	}
}

func (r *navRecorder) next(t *testing.T, timeout time.Duration) media.NavigationEvent {
	t.Helper()
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(timeout):
		t.Fatal("no navigation event arrived")
		return media.NavigationEvent{}
	}
}

func TestEscapeStopsPlayback(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	bus := newBusRecorder()
	opts := testOptions(dev)
	opts.Bus = bus.callback()
	s := newTestSink(t, opts)
	require.NoError(t, s.SetState(media.StatePaused))

	dev.Inject(display.InputEvent{Type: display.EventKeyPress, Key: display.KeyEscape})

	msg := bus.next(t, time.Second)
	assert.Equal(t, media.MessageError, msg.Kind)
	assert.ErrorIs(t, msg.Err, ErrDisplayGone)
}

func TestKeysBecomeNavigationEvents(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	nav := newNavRecorder()
	opts := testOptions(dev)
	opts.Navigation = nav.callback()
	s := newTestSink(t, opts)
	require.NoError(t, s.SetState(media.StatePaused))

	dev.Inject(display.InputEvent{Type: display.EventKeyPress, Key: display.KeyReturn})

	ev := nav.next(t, time.Second)
	assert.Equal(t, media.NavKeyPress, ev.Type)
	assert.Equal(t, "Return", ev.Key)
}

func TestKeyReleasesAreIgnored(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	nav := newNavRecorder()
	opts := testOptions(dev)
	opts.Navigation = nav.callback()
	s := newTestSink(t, opts)
	require.NoError(t, s.SetState(media.StatePaused))

	// The queue is ordered, so if the release produced anything it
	// would arrive before the press.
	dev.Inject(display.InputEvent{Type: display.EventKeyRelease, Key: display.KeySpace})
	dev.Inject(display.InputEvent{Type: display.EventKeyPress, Key: display.KeySpace})

	ev := nav.next(t, time.Second)
	assert.Equal(t, media.NavKeyPress, ev.Type)
	assert.Equal(t, "space", ev.Key)
}

func TestPointerEventsForwarded(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	nav := newNavRecorder()
	opts := testOptions(dev)
	opts.Navigation = nav.callback()
	s := newTestSink(t, opts)
	require.NoError(t, s.SetState(media.StatePaused))
	require.NoError(t, s.SetCaps(rgb32Caps(t, 4, 4)))

	dev.Inject(display.InputEvent{Type: display.EventButtonPress, Button: 1, X: 4, Y: 4})

	ev := nav.next(t, time.Second)
	assert.Equal(t, media.NavMouseButtonPress, ev.Type)
	assert.Equal(t, 1, ev.Button)
	assert.Equal(t, 2.0, ev.X)
	assert.Equal(t, 2.0, ev.Y)
}

func TestNavigationRemapsIntoVideoCoordinates(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	nav := newNavRecorder()
	opts := testOptions(dev)
	opts.Navigation = nav.callback()
	s := newTestSink(t, opts)
	require.NoError(t, s.SetState(media.StatePaused))

	// A 4x4 picture centered in the 8x8 display occupies (2,2)-(6,6).
	require.NoError(t, s.SetCaps(rgb32Caps(t, 4, 4)))

	tests := []struct {
		name      string
		x, y      float64
		expectedX float64
		expectedY float64
	}{
		{name: "picture center", x: 4, y: 4, expectedX: 2, expectedY: 2},
		{name: "picture origin", x: 2, y: 2, expectedX: 0, expectedY: 0},
		{name: "picture far edge", x: 6, y: 6, expectedX: 4, expectedY: 4},
		{name: "outside the picture", x: 0, y: 0, expectedX: 0, expectedY: 0},
		{name: "one axis outside", x: 4, y: 1, expectedX: 2, expectedY: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.SendNavigationEvent(media.NavigationEvent{
				Type: media.NavMouseMove, X: tt.x, Y: tt.y,
			})
			ev := nav.next(t, time.Second)
			assert.Equal(t, tt.expectedX, ev.X)
			assert.Equal(t, tt.expectedY, ev.Y)
		})
	}
}

func TestNavigationLeavesKeyEventsAlone(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	nav := newNavRecorder()
	opts := testOptions(dev)
	opts.Navigation = nav.callback()
	s := newTestSink(t, opts)
	require.NoError(t, s.SetState(media.StatePaused))
	require.NoError(t, s.SetCaps(rgb32Caps(t, 4, 4)))

	s.SendNavigationEvent(media.NavigationEvent{Type: media.NavKeyPress, Key: "Up", X: 7, Y: 7})

	ev := nav.next(t, time.Second)
	assert.Equal(t, "Up", ev.Key)
	assert.Equal(t, 7.0, ev.X, "key events keep their coordinates")
	assert.Equal(t, 7.0, ev.Y)
}

func TestNavigationWithoutHandler(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	s := newTestSink(t, testOptions(dev))
	require.NoError(t, s.SetState(media.StatePaused))

	s.SendNavigationEvent(media.NavigationEvent{Type: media.NavMouseMove, X: 1, Y: 1})
}

func TestEventLoopStopsOnShutdown(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	s, err := New(testOptions(dev))
	require.NoError(t, err)
	require.NoError(t, s.SetState(media.StatePaused))
	require.NoError(t, s.SetState(media.StateNull))

	// Events injected after teardown reach nobody and must not block.
	dev.Inject(display.InputEvent{Type: display.EventKeyPress, Key: display.KeyReturn})
	assert.Equal(t, media.StateNull, s.State())
}
