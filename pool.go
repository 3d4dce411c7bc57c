package vidsink

import (
	"sync"

	"github.com/opd-ai/vidsink/media"
	"github.com/opd-ai/vidsink/pixel"
)

// bufferPool keeps released frame buffers around for reuse. Buffers
// that no longer match the negotiated stream are destroyed as they are
// encountered.
type bufferPool struct {
	mu   sync.Mutex
	idle []*media.Buffer
}

// acquire pops pooled buffers until one matches the wanted geometry
// and format. Mismatching buffers are handed to destroy.
func (p *bufferPool) acquire(width, height int, format pixel.Format, destroy func(*media.Buffer)) *media.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.idle) > 0 {
		b := p.idle[0]
		p.idle = p.idle[1:]
		if b.Caps.Width == width && b.Caps.Height == height && b.Format == format {
			return b
		}
		destroy(b)
	}
	return nil
}

func (p *bufferPool) put(b *media.Buffer) {
	p.mu.Lock()
	p.idle = append(p.idle, b)
	p.mu.Unlock()
}

// clear destroys every pooled buffer.
func (p *bufferPool) clear(destroy func(*media.Buffer)) {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	for _, b := range idle {
		destroy(b)
	}
}
