// Package audio provides the PCM frame types, signal analysis, and WAV
// envelope helpers shared by the capture pipeline and the transport layer.
//
// All audio flowing through this system is mono, 16-bit signed little-endian
// PCM at 16 kHz. Frames are the atomic unit of capture: one frame covers
// 30 ms of audio (480 samples, 960 bytes).
package audio

import (
	"context"
	"time"
)

const (
	// SampleRate is the capture sample rate in Hz.
	SampleRate = 16000

	// Channels is the channel count. The pipeline is mono end to end.
	Channels = 1

	// BitDepth is the bits per sample.
	BitDepth = 16

	// FrameDuration is the length of one capture frame.
	FrameDuration = 30 * time.Millisecond

	// FrameSamples is the number of samples in one frame (480 at 16 kHz / 30 ms).
	FrameSamples = SampleRate * 30 / 1000

	// FrameBytes is the byte length of one frame of s16le PCM.
	FrameBytes = FrameSamples * 2
)

// Format describes the sample rate and channel count of a PCM stream.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat returns the pipeline's native capture format.
func DefaultFormat() Format {
	return Format{SampleRate: SampleRate, Channels: Channels}
}

// InputStream is an open capture stream delivering fixed-size PCM frames.
// A stream is exclusively owned by one capture loop; it must not be read
// from two call sites concurrently.
type InputStream interface {
	// ReadFrame fills buf with exactly one frame of s16le PCM. It blocks
	// until a full frame is available. Returns io.EOF when the source is
	// exhausted and an error for any device failure.
	ReadFrame(buf []byte) error

	// Close releases the underlying device. Calling Close more than once
	// is safe.
	Close() error
}

// InputDevice opens capture streams. Implementations must be safe for
// concurrent use; the streams they return are not.
type InputDevice interface {
	// Open acquires the microphone and returns a ready stream. The caller
	// owns the stream and must Close it on every exit path.
	Open(format Format) (InputStream, error)
}

// OutputDevice plays raw PCM through the speaker. Play blocks until
// playback completes or ctx is cancelled.
type OutputDevice interface {
	Play(ctx context.Context, format Format, pcm []byte) error
}
