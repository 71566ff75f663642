// Package ffmpeg implements the audio device interfaces on top of an
// ffmpeg subprocess. It records from the platform's default capture source
// and plays through the default sink, exchanging raw s16le PCM over pipes,
// which keeps the Go side free of cgo audio bindings.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/aGallea/smart-phone/pkg/audio"
)

// Device captures and plays PCM via ffmpeg. The zero value is not usable;
// call New.
type Device struct {
	ffmpegPath string
	inputSpec  []string // e.g. ["-f", "pulse", "-i", "default"]
	outputSpec []string
}

// Option is a functional option for configuring a Device.
type Option func(*Device)

// WithFFmpegPath overrides the ffmpeg binary path. Default: "ffmpeg" on PATH.
func WithFFmpegPath(path string) Option {
	return func(d *Device) { d.ffmpegPath = path }
}

// WithInput sets the ffmpeg capture source arguments, e.g.
// ("alsa", "hw:0") or ("pulse", "default").
func WithInput(format, source string) Option {
	return func(d *Device) { d.inputSpec = []string{"-f", format, "-i", source} }
}

// WithOutput sets the ffmpeg playback sink arguments.
func WithOutput(format, sink string) Option {
	return func(d *Device) { d.outputSpec = []string{"-f", format, sink} }
}

// New creates a Device. Without options it captures from and plays to the
// PulseAudio default device.
func New(opts ...Option) *Device {
	d := &Device{
		ffmpegPath: "ffmpeg",
		inputSpec:  []string{"-f", "pulse", "-i", "default"},
		outputSpec: []string{"-f", "pulse", "default"},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Open starts an ffmpeg capture process emitting s16le PCM on stdout and
// returns a stream over it. The caller must Close the stream to reap the
// subprocess.
func (d *Device) Open(format audio.Format) (audio.InputStream, error) {
	args := append([]string{"-hide_banner", "-loglevel", "error"}, d.inputSpec...)
	args = append(args,
		"-ac", strconv.Itoa(format.Channels),
		"-ar", strconv.Itoa(format.SampleRate),
		"-f", "s16le",
		"pipe:1",
	)

	cmd := exec.Command(d.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg: start capture: %w", err)
	}
	return &captureStream{cmd: cmd, out: stdout, stderr: &stderr}, nil
}

// Play feeds pcm to an ffmpeg playback process over stdin and waits for it
// to finish or for ctx to be cancelled.
func (d *Device) Play(ctx context.Context, format audio.Format, pcm []byte) error {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(format.SampleRate),
		"-ac", strconv.Itoa(format.Channels),
		"-i", "pipe:0",
	}
	args = append(args, d.outputSpec...)

	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(pcm)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg: playback: %w (%s)", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

// Compile-time interface assertions.
var (
	_ audio.InputDevice  = (*Device)(nil)
	_ audio.OutputDevice = (*Device)(nil)
)

// captureStream wraps a running ffmpeg capture subprocess.
type captureStream struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	stderr *bytes.Buffer
	closed bool
}

// ReadFrame fills buf with exactly one frame from the ffmpeg pipe.
func (s *captureStream) ReadFrame(buf []byte) error {
	if s.closed {
		return io.ErrClosedPipe
	}
	if _, err := io.ReadFull(s.out, buf); err != nil {
		if err == io.ErrUnexpectedEOF {
			return io.EOF
		}
		return err
	}
	return nil
}

// Close terminates the capture process and reaps it.
func (s *captureStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.out.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	// Wait regardless of kill outcome so the process is reaped; the error
	// is expected after a kill and carries no signal.
	_ = s.cmd.Wait()
	return nil
}
