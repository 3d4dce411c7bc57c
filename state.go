package vidsink

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/vidsink/display"
	"github.com/opd-ai/vidsink/media"
	"github.com/opd-ai/vidsink/pixel"
)

// SetState walks the sink to the target state one transition at a
// time, acquiring display resources on the way up and releasing them
// on the way down.
func (s *Sink) SetState(target media.State) error {
	if target < media.StateNull || target > media.StatePlaying {
		return fmt.Errorf("%w: %d", ErrInvalidState, target)
	}
	for {
		current := s.State()
		if current == target {
			return nil
		}
		next := current + 1
		if target < current {
			next = current - 1
		}
		if err := s.transition(current, next); err != nil {
			return err
		}
	}
}

func (s *Sink) transition(from, to media.State) error {
	logrus.WithFields(logrus.Fields{
		"function": "transition",
		"from":     from.String(),
		"to":       to.String(),
	}).Debug("Changing sink state")

	switch {
	case from == media.StateNull && to == media.StateReady:
		s.running.Store(true)
		if !s.isReady() {
			if err := s.setup(); err != nil {
				s.running.Store(false)
				s.postError(err, "Failed initializing the display system")
				return fmt.Errorf("%w: %w", ErrSetupFailed, err)
			}
		}

	case from == media.StateReady && to == media.StatePaused:
		s.blankTarget()

	case from == media.StatePaused && to == media.StatePlaying:
		s.mu.Lock()
		s.announceFrame = true
		s.mu.Unlock()

	case from == media.StatePlaying && to == media.StatePaused:
		s.mu.Lock()
		s.announceFrame = false
		s.mu.Unlock()

	case from == media.StatePaused && to == media.StateReady:
		s.mu.Lock()
		s.framerate = media.Fraction{}
		s.videoWidth, s.videoHeight = 0, 0
		s.videoFormat = pixel.Unknown
		s.mu.Unlock()
		s.pool.clear(s.destroyBuffer)

	case from == media.StateReady && to == media.StateNull:
		s.running.Store(false)
		if s.isReady() {
			s.cleanup()
		}
	}

	s.mu.Lock()
	s.state = to
	s.mu.Unlock()
	return nil
}

func (s *Sink) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// blankTarget paints the output black before the first frame shows.
func (s *Sink) blankTarget() {
	s.mu.RLock()
	target := s.target()
	s.mu.RUnlock()
	if target == nil {
		return
	}
	if err := target.Clear(0, 0, 0, 0xFF); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "blankTarget",
			"error":    err,
		}).Warn("Could not blank the target surface")
	}
}

// target returns the surface frames land on. Callers hold s.mu.
func (s *Sink) target() display.Surface {
	if s.ext != nil {
		return s.ext
	}
	return s.primary
}

// renderTarget is target with its own locking.
func (s *Sink) renderTarget() display.Surface {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target()
}
