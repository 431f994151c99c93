// Package voice models the session microphone, the recorder that drains it
// and the playback controller for synthesized replies.
package voice

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrPermissionDenied means the client has not granted microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceBusy means another stream holds the microphone.
	ErrDeviceBusy = errors.New("microphone busy")
	// ErrNotRecording is returned when chunks arrive with no open stream.
	ErrNotRecording = errors.New("microphone not recording")
	// ErrBufferFull is returned when the reader fell behind and a chunk was dropped.
	ErrBufferFull = errors.New("audio buffer full")
)

// Device is an exclusive audio input.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream delivers audio chunks in arrival order until closed.
// Close releases the device and is safe to call more than once.
type Stream interface {
	Chunks() <-chan []byte
	Format() string
	Close() error
}

const defaultChunkBuffer = 64

// ChannelDevice is a microphone fed by a remote client. Chunks pushed with
// Feed reach the currently open stream, if any.
type ChannelDevice struct {
	mu        sync.Mutex
	available bool
	format    string
	buffer    int
	current   *channelStream
}

// NewChannelDevice returns a device that starts unavailable until the
// client grants permission.
func NewChannelDevice(format string) *ChannelDevice {
	if format == "" {
		format = "webm"
	}
	return &ChannelDevice{format: format, buffer: defaultChunkBuffer}
}

// SetAvailable records the client's microphone permission. Revoking it
// closes any open stream.
func (d *ChannelDevice) SetAvailable(granted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.available = granted
	if !granted && d.current != nil {
		d.current.closeLocked()
		d.current = nil
	}
}

// Available reports whether the client granted microphone access.
func (d *ChannelDevice) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.available
}

// SetFormat changes the container format of subsequent recordings.
func (d *ChannelDevice) SetFormat(format string) {
	if format == "" {
		return
	}
	d.mu.Lock()
	d.format = format
	d.mu.Unlock()
}

func (d *ChannelDevice) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.available {
		return nil, ErrPermissionDenied
	}
	if d.current != nil {
		return nil, ErrDeviceBusy
	}

	s := &channelStream{
		device: d,
		format: d.format,
		chunks: make(chan []byte, d.buffer),
	}
	d.current = s
	return s, nil
}

// Feed hands one recorded chunk to the open stream. The chunk is copied.
func (d *ChannelDevice) Feed(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current == nil {
		return ErrNotRecording
	}
	data := append([]byte(nil), chunk...)
	select {
	case d.current.chunks <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// Busy reports whether a stream currently holds the device.
func (d *ChannelDevice) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current != nil
}

type channelStream struct {
	device *ChannelDevice
	format string
	chunks chan []byte
	closed bool
}

func (s *channelStream) Chunks() <-chan []byte { return s.chunks }

func (s *channelStream) Format() string { return s.format }

func (s *channelStream) Close() error {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	s.closeLocked()
	if s.device.current == s {
		s.device.current = nil
	}
	return nil
}

// closeLocked must run with the device mutex held.
func (s *channelStream) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.chunks)
}
