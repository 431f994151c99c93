package voice

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrAlreadyRecording is returned by Start while a capture is running.
var ErrAlreadyRecording = errors.New("already recording")

// Recording is the audio collected between Start and Stop.
type Recording struct {
	Chunks [][]byte
	Format string
}

// Empty reports whether nothing was captured.
func (r Recording) Empty() bool {
	return r.Size() == 0
}

// Size is the total number of captured bytes.
func (r Recording) Size() int {
	n := 0
	for _, c := range r.Chunks {
		n += len(c)
	}
	return n
}

// Bytes concatenates the chunks in arrival order.
func (r Recording) Bytes() []byte {
	return bytes.Join(r.Chunks, nil)
}

// Recorder drains a Device into an in-memory chunk list.
type Recorder struct {
	device   Device
	maxBytes int

	mu     sync.Mutex
	active *capture
}

type capture struct {
	stream  Stream
	cancel  context.CancelFunc
	done    chan struct{}
	chunks  [][]byte
	size    int
	dropped int
	// full is set by the first chunk over the cap; everything after it is
	// dropped so the kept audio stays a contiguous prefix.
	full bool
}

// NewRecorder wraps device. maxBytes <= 0 disables the size cap.
func NewRecorder(device Device, maxBytes int) *Recorder {
	return &Recorder{device: device, maxBytes: maxBytes}
}

// Start opens the device and begins collecting chunks. Collection ends on
// Stop, Discard or when ctx is cancelled; the device is released in every case.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return ErrAlreadyRecording
	}

	stream, err := r.device.Open(ctx)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithCancel(ctx)
	c := &capture{stream: stream, cancel: cancel, done: make(chan struct{})}
	r.active = c
	go r.collect(cctx, c)
	return nil
}

// Recording reports whether a capture is running.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Stop ends the capture and hands over everything collected. It returns
// false when no capture was running.
func (r *Recorder) Stop() (Recording, bool) {
	c := r.detach()
	if c == nil {
		return Recording{}, false
	}

	// closing the stream lets the collector drain what is buffered
	_ = c.stream.Close()
	<-c.done
	c.cancel()

	if c.dropped > 0 {
		slog.Warn("[voice] recording exceeded size limit", "dropped", c.dropped, "kept", c.size)
	}
	return Recording{Chunks: c.chunks, Format: c.stream.Format()}, true
}

// Discard ends the capture and drops the collected audio.
func (r *Recorder) Discard() bool {
	c := r.detach()
	if c == nil {
		return false
	}
	c.cancel()
	_ = c.stream.Close()
	<-c.done
	return true
}

func (r *Recorder) detach() *capture {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.active
	r.active = nil
	return c
}

func (r *Recorder) collect(ctx context.Context, c *capture) {
	defer close(c.done)
	defer c.stream.Close()

	chunks := c.stream.Chunks()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			if c.full || (r.maxBytes > 0 && c.size+len(chunk) > r.maxBytes) {
				c.full = true
				c.dropped += len(chunk)
				continue
			}
			c.chunks = append(c.chunks, chunk)
			c.size += len(chunk)
		}
	}
}
