// Package capture runs one microphone recording session at a time: it pulls
// fixed-size PCM frames from an input device, classifies each frame, feeds
// the voice activity detector, and returns the finished utterance.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aGallea/smart-phone/internal/observe"
	"github.com/aGallea/smart-phone/pkg/audio"
	"github.com/aGallea/smart-phone/pkg/vad"
)

// ErrCaptureUnavailable is returned when the input stream cannot be opened.
// It is fatal to the session, not the process; callers retry after a backoff.
var ErrCaptureUnavailable = errors.New("capture: audio input unavailable")

// Result carries the finished utterance and how the session ended.
type Result struct {
	// PCM is the raw concatenation of every buffered frame in arrival
	// order, headerless. Wrap it with audio.EncodeWAV before handing it to
	// a transport that expects a container.
	PCM []byte

	// Frames is the number of frames in PCM.
	Frames int

	// Decision is the stop condition that ended the session.
	Decision vad.Decision

	// Duration is the wall-clock time spent recording.
	Duration time.Duration
}

// Session drives one utterance capture per Run call. The input stream is an
// exclusively owned resource for the duration of a Run; a Session must not
// be Run concurrently with itself.
type Session struct {
	device  audio.InputDevice
	format  audio.Format
	cfg     vad.Config
	logger  *slog.Logger
	metrics *observe.Metrics
}

// Option is a functional option for configuring a Session.
type Option func(*Session)

// WithFormat overrides the capture format. Default: the pipeline's native
// 16 kHz mono format.
func WithFormat(f audio.Format) Option {
	return func(s *Session) { s.format = f }
}

// WithDetectorConfig overrides the VAD thresholds.
func WithDetectorConfig(cfg vad.Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics sets the metrics sink. Default: observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// New creates a Session reading from device.
func New(device audio.InputDevice, opts ...Option) *Session {
	s := &Session{
		device: device,
		format: audio.DefaultFormat(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Run records until the detector signals a stop condition and returns the
// accumulated utterance. Exactly one input stream is opened, and it is
// released on every exit path.
//
// If the stream cannot be opened, Run fails with [ErrCaptureUnavailable]
// and no partial session exists. If ctx is cancelled mid-session the stream
// is released immediately, any partially buffered audio is discarded, and
// ctx.Err() is returned.
func (s *Session) Run(ctx context.Context) (Result, error) {
	stream, err := s.device.Open(s.format)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}
	defer stream.Close()

	detector := vad.New(s.cfg)
	cfg := detector.Config()
	frame := make([]byte, audio.FrameBytes)
	start := time.Now()

	s.logger.Debug("capture session started",
		"sample_rate", s.format.SampleRate,
		"frame_bytes", audio.FrameBytes,
	)

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Debug("capture cancelled", "buffered_frames", detector.BufferedFrames())
			return Result{}, err
		}

		if err := stream.ReadFrame(frame); err != nil {
			if errors.Is(err, io.EOF) {
				// Source exhausted (scripted input or device teardown):
				// whatever was buffered is the utterance.
				return s.finish(ctx, detector, vad.StopTimeout, start), nil
			}
			return Result{}, fmt.Errorf("capture: read frame: %w", err)
		}

		c := audio.Classify(frame, cfg.EnergyThreshold, cfg.ZCRThreshold)
		if dec := detector.Feed(frame, c.IsSpeech); dec != vad.Continue {
			return s.finish(ctx, detector, dec, start), nil
		}
	}
}

func (s *Session) finish(ctx context.Context, d *vad.Detector, dec vad.Decision, start time.Time) Result {
	res := Result{
		PCM:      d.Buffer(),
		Frames:   d.BufferedFrames(),
		Decision: dec,
		Duration: time.Since(start),
	}
	s.metrics.CaptureDuration.Record(ctx, res.Duration.Seconds())
	if res.Frames > 0 {
		s.metrics.RecordUtterance(ctx, dec.String())
	}
	s.logger.Info("capture session finished",
		"decision", dec.String(),
		"frames", res.Frames,
		"duration", res.Duration,
	)
	return res
}
