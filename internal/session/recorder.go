package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Device grants access to an audio capture source. Actual microphone
// access belongs to the hosting UI; tests and embedders supply their own
// implementation.
type Device interface {
	Open() (io.ReadCloser, error)
}

// ErrNotRecording is returned by Stop and Cancel when no capture is in
// progress.
var ErrNotRecording = errors.New("session: not recording")

// Recorder is a scoped wrapper around a capture stream. Start acquires
// the stream, Stop returns the captured bytes, and Cancel discards them;
// the stream is released on every exit path.
type Recorder struct {
	device Device

	mu     sync.Mutex
	stream io.ReadCloser
	buf    bytes.Buffer
	done   chan struct{}
}

// NewRecorder creates a recorder over the given capture device.
func NewRecorder(device Device) *Recorder {
	return &Recorder{device: device}
}

// Start opens the capture device and begins draining it. A device open
// failure leaves the recorder idle and is reported to the caller as a
// recording-unavailable condition; it never affects text messaging.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		return errors.New("session: recording already in progress")
	}

	stream, err := r.device.Open()
	if err != nil {
		return fmt.Errorf("open capture device: %w", err)
	}

	r.stream = stream
	r.buf.Reset()
	r.done = make(chan struct{})

	go r.drain(stream, r.done)
	return nil
}

func (r *Recorder) drain(stream io.Reader, done chan<- struct{}) {
	defer close(done)
	chunk := make([]byte, 4096)
	for {
		n, err := stream.Read(chunk)
		if n > 0 {
			r.mu.Lock()
			r.buf.Write(chunk[:n])
			r.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// release closes the stream and waits for the drain goroutine to finish.
// Must be called with the lock held; returns with it held.
func (r *Recorder) release() {
	stream, done := r.stream, r.done
	r.stream, r.done = nil, nil
	_ = stream.Close()

	r.mu.Unlock()
	<-done
	r.mu.Lock()
}

// Stop ends the capture, releases the stream, and returns everything
// recorded so far.
func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream == nil {
		return nil, ErrNotRecording
	}
	r.release()

	data := make([]byte, r.buf.Len())
	copy(data, r.buf.Bytes())
	r.buf.Reset()
	return data, nil
}

// Cancel ends the capture and discards anything recorded. The stream is
// released exactly as in Stop.
func (r *Recorder) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream == nil {
		return ErrNotRecording
	}
	r.release()
	r.buf.Reset()
	return nil
}

// Recording reports whether a capture is currently in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}
