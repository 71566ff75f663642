// Package mock provides test doubles for the audio device interfaces.
//
// Use Device to script the frames a capture session will read, and to
// verify stream acquisition and release. Use Output to capture what would
// have been played.
//
// Example:
//
//	dev := &mock.Device{Frames: [][]byte{speech, speech, silence}}
//	stream, _ := dev.Open(audio.DefaultFormat())
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/aGallea/smart-phone/pkg/audio"
)

// Device is a mock implementation of audio.InputDevice. Open returns a
// stream that replays Frames in order and then reports io.EOF.
type Device struct {
	mu sync.Mutex

	// Frames is the script of PCM frames the stream will deliver.
	Frames [][]byte

	// OpenErr, if non-nil, is returned by Open instead of a stream.
	OpenErr error

	// OpenCalls counts how many times Open was called.
	OpenCalls int

	// LastFormat records the format passed to the most recent Open call.
	LastFormat audio.Format

	// streams holds every stream handed out, for release assertions.
	streams []*Stream
}

// Open records the call and returns a replay stream over Frames.
func (d *Device) Open(format audio.Format) (audio.InputStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.OpenCalls++
	d.LastFormat = format
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	s := &Stream{frames: d.Frames}
	d.streams = append(d.streams, s)
	return s, nil
}

// AllStreamsClosed reports whether every stream returned by Open has been
// closed. Thread-safe.
func (d *Device) AllStreamsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.streams {
		if !s.Closed() {
			return false
		}
	}
	return true
}

// Ensure Device implements audio.InputDevice at compile time.
var _ audio.InputDevice = (*Device)(nil)

// Stream replays a scripted frame sequence. After the script is exhausted
// ReadFrame returns io.EOF; after Close it returns io.ErrClosedPipe.
type Stream struct {
	mu     sync.Mutex
	frames [][]byte
	next   int
	closed bool

	// ReadErr, if non-nil, is returned by every ReadFrame call.
	ReadErr error

	// ReadCalls counts ReadFrame invocations.
	ReadCalls int
}

// ReadFrame copies the next scripted frame into buf.
func (s *Stream) ReadFrame(buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReadCalls++
	if s.closed {
		return io.ErrClosedPipe
	}
	if s.ReadErr != nil {
		return s.ReadErr
	}
	if s.next >= len(s.frames) {
		return io.EOF
	}
	copy(buf, s.frames[s.next])
	s.next++
	return nil
}

// Close marks the stream released. Safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Ensure Stream implements audio.InputStream at compile time.
var _ audio.InputStream = (*Stream)(nil)

// Output is a mock implementation of audio.OutputDevice that records every
// payload passed to Play.
type Output struct {
	mu sync.Mutex

	// PlayErr, if non-nil, is returned by every Play call.
	PlayErr error

	// Played records each Play payload in order.
	Played [][]byte
}

// Play records the payload and returns PlayErr.
func (o *Output) Play(_ context.Context, _ audio.Format, pcm []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	o.Played = append(o.Played, cp)
	return o.PlayErr
}

// Ensure Output implements audio.OutputDevice at compile time.
var _ audio.OutputDevice = (*Output)(nil)
