package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Preview holds the latest annotated camera frame as JPEG for the MJPEG
// stream. Readers wait on a channel that is closed on the next publish.
type Preview struct {
	mu     sync.Mutex
	jpeg   []byte
	seq    uint64
	notify chan struct{}
}

func NewPreview() *Preview {
	return &Preview{notify: make(chan struct{})}
}

// Publish encodes frame as JPEG and makes it the latest preview.
func (p *Preview) Publish(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() {
		return nil
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	defer buf.Close()

	// The native buffer is released on return, so keep a copy.
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	p.PublishJPEG(data)
	return nil
}

// PublishJPEG makes data the latest preview. data must not be modified afterwards.
func (p *Preview) PublishJPEG(data []byte) {
	p.mu.Lock()
	p.jpeg = data
	p.seq++
	close(p.notify)
	p.notify = make(chan struct{})
	p.mu.Unlock()
}

// Latest returns the current JPEG and its sequence number. The sequence is
// 0 until something is published.
func (p *Preview) Latest() ([]byte, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jpeg, p.seq
}

// Wait returns a channel closed by the next publish.
func (p *Preview) Wait() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notify
}
