package vidsink

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/vidsink/display"
	"github.com/opd-ai/vidsink/media"
)

// eventPollInterval bounds how long the event loop sleeps so it
// notices shutdown without being woken.
const eventPollInterval = 50 * time.Millisecond

// eventLoop pumps display input and hands it upstream as navigation
// events. Pressing Escape posts a fatal error instead, ending
// fullscreen playback.
func (s *Sink) eventLoop(events display.EventBuffer) {
	defer s.eventsWG.Done()
	logrus.WithFields(logrus.Fields{
		"function": "eventLoop",
	}).Debug("Listening for input events")

	for s.running.Load() {
		ev, ok, err := events.WaitEvent(eventPollInterval)
		if err != nil {
			if errors.Is(err, display.ErrClosed) {
				return
			}
			logrus.WithFields(logrus.Fields{
				"function": "eventLoop",
				"error":    err,
			}).Warn("Reading input events failed")
			continue
		}
		if !ok {
			continue
		}

		switch ev.Type {
		case display.EventKeyPress:
			if ev.Key == display.KeyEscape {
				s.postError(ErrDisplayGone, "Escape pressed, stopping playback")
				continue
			}
			s.SendNavigationEvent(media.NavigationEvent{
				Type: media.NavKeyPress,
				Key:  ev.Key.String(),
			})
		case display.EventButtonPress:
			s.SendNavigationEvent(media.NavigationEvent{
				Type:   media.NavMouseButtonPress,
				Button: ev.Button,
				X:      float64(ev.X),
				Y:      float64(ev.Y),
			})
		case display.EventButtonRelease:
			s.SendNavigationEvent(media.NavigationEvent{
				Type:   media.NavMouseButtonRelease,
				Button: ev.Button,
				X:      float64(ev.X),
				Y:      float64(ev.Y),
			})
		case display.EventMotion:
			s.SendNavigationEvent(media.NavigationEvent{
				Type: media.NavMouseMove,
				X:    float64(ev.X),
				Y:    float64(ev.Y),
			})
		default:
			logrus.WithFields(logrus.Fields{
				"function": "eventLoop",
				"type":     ev.Type.String(),
			}).Debug("Ignoring input event")
		}
	}
}

// SendNavigationEvent forwards a navigation event upstream, remapping
// pointer coordinates from the render region back into video
// coordinates. Positions outside the picture collapse to zero.
func (s *Sink) SendNavigationEvent(ev media.NavigationEvent) {
	nav := s.opts.Navigation
	if nav == nil {
		return
	}

	s.mu.RLock()
	src := display.Rect{W: s.displayWidth, H: s.displayHeight}
	window := s.window
	scaling := s.hwScaling || s.opts.Accelerator != nil
	keepAspect := s.keepAspect
	videoWidth, videoHeight := s.videoWidth, s.videoHeight
	s.mu.RUnlock()

	if ev.Pointer() {
		result := centerRect(src, window, scaling, keepAspect)
		if result.W > 0 && ev.X >= float64(result.X) && ev.X <= float64(result.X+result.W) {
			ev.X = (ev.X - float64(result.X)) * float64(videoWidth) / float64(result.W)
		} else {
			ev.X = 0
		}
		if result.H > 0 && ev.Y >= float64(result.Y) && ev.Y <= float64(result.Y+result.H) {
			ev.Y = (ev.Y - float64(result.Y)) * float64(videoHeight) / float64(result.H)
		} else {
			ev.Y = 0
		}
	}
	nav(ev)
}
