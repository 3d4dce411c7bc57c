package media

import (
	"time"

	"github.com/opd-ai/vidsink/display"
	"github.com/opd-ai/vidsink/pixel"
)

// TimeNone marks an unset timestamp or duration.
const TimeNone = time.Duration(-1)

// Buffer is one frame of video travelling through the pipeline. A
// buffer is either plain memory or backed by a display surface whose
// mapped pixels double as its data, which lets the sink show it without
// copying.
type Buffer struct {
	Caps   Caps
	Format pixel.Format

	// Surface is the backing display surface, nil for plain buffers.
	Surface display.Surface

	// Data is the frame bytes. For surface backed buffers this aliases
	// the mapped surface pixels.
	Data []byte

	// Locked tracks whether the surface mapping behind Data is held.
	Locked bool

	Timestamp time.Duration
	Duration  time.Duration

	release func(*Buffer)
}

// NewBuffer wraps plain frame bytes in a buffer with unset timing.
func NewBuffer(caps Caps, data []byte) *Buffer {
	return &Buffer{
		Caps:      caps,
		Format:    caps.Format(),
		Data:      data,
		Timestamp: TimeNone,
		Duration:  TimeNone,
	}
}

// HardwareBacked reports whether the buffer is backed by a display
// surface.
func (b *Buffer) HardwareBacked() bool {
	return b != nil && b.Surface != nil
}

// SetRelease arms the hook Release will call, usually the allocator
// taking its buffer back.
func (b *Buffer) SetRelease(fn func(*Buffer)) {
	b.release = fn
}

// Release hands the buffer back to its allocator. It is a one shot
// call; the allocator re-arms the hook when it hands the buffer out
// again.
func (b *Buffer) Release() {
	if b == nil || b.release == nil {
		return
	}
	fn := b.release
	b.release = nil
	fn(b)
}
