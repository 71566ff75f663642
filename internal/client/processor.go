package client

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aGallea/smart-phone/internal/capture"
	"github.com/aGallea/smart-phone/pkg/audio"
	"github.com/aGallea/smart-phone/pkg/vad"
)

// Conversation is the backend surface the processor needs. *Backend
// satisfies it; tests substitute a scripted implementation.
type Conversation interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
	Generate(ctx context.Context, userInput string, extra map[string]any) (string, error)
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Fallback phrases spoken when a pipeline stage yields nothing. The
// assistant always answers, even when degraded.
const (
	fallbackNoSpeech = "I didn't catch that. Could you say it again?"
	fallbackNoReply  = "I'm having trouble thinking right now. Please try again in a moment."
)

// ackPrompt is spoken when the wake word is heard on its own, inviting the
// follow-up command.
const ackPrompt = "Yes?"

// captureBackoffMax caps the retry delay after repeated capture failures,
// e.g. when the microphone is claimed by another process.
const captureBackoffMax = 30 * time.Second

// ProcessorConfig controls the voice loop.
type ProcessorConfig struct {
	// WakeWord gates command processing: utterances that do not contain
	// it are discarded. Empty disables the gate and every utterance is
	// treated as a command.
	WakeWord string
	// Voice is passed through to synthesis.
	Voice string
	// Detector overrides the voice activity detection thresholds.
	Detector vad.Config
	// Format is the capture format. Zero value means the default
	// pipeline format.
	Format audio.Format
}

// Processor runs the capture → transcribe → generate → speak cycle until
// its context is cancelled.
type Processor struct {
	input   audio.InputDevice
	output  audio.OutputDevice
	backend Conversation
	cfg     ProcessorConfig
	logger  *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithProcessorLogger sets the processor's logger. Defaults to slog.Default.
func WithProcessorLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = l
	}
}

// NewProcessor creates a voice processor bound to the given audio devices
// and backend.
func NewProcessor(input audio.InputDevice, output audio.OutputDevice, backend Conversation, cfg ProcessorConfig, opts ...ProcessorOption) *Processor {
	if cfg.Format == (audio.Format{}) {
		cfg.Format = audio.DefaultFormat()
	}
	p := &Processor{
		input:   input,
		output:  output,
		backend: backend,
		cfg:     cfg,
	}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Run loops over voice interactions until ctx is cancelled. Capture
// failures back off exponentially instead of busy-looping on a dead
// microphone.
func (p *Processor) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := p.RunOnce(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case errors.Is(err, capture.ErrCaptureUnavailable):
			p.logger.Warn("capture unavailable, backing off", "delay", backoff, "error", err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = min(backoff*2, captureBackoffMax)
		case err != nil:
			p.logger.Error("interaction failed", "error", err)
			backoff = time.Second
		default:
			backoff = time.Second
		}
	}
}

// RunOnce handles a single voice interaction: one captured utterance
// through to one spoken reply (or a silent discard when the wake word is
// absent). Hearing the wake word on its own triggers an acknowledgment and
// a second capture for the actual command.
func (p *Processor) RunOnce(ctx context.Context) error {
	transcript, captured, err := p.captureTranscript(ctx)
	if err != nil {
		return err
	}
	if !captured {
		return nil
	}

	command, ok := p.extractCommand(transcript)
	if !ok {
		p.logger.Debug("wake word not detected", "text", transcript)
		return nil
	}
	if command == "" && p.cfg.WakeWord != "" {
		if err := p.speak(ctx, ackPrompt); err != nil {
			return err
		}
		command, captured, err = p.captureTranscript(ctx)
		if err != nil {
			return err
		}
		command = strings.TrimSpace(command)
		if !captured {
			command = ""
		}
	}
	if command == "" {
		return p.speak(ctx, fallbackNoSpeech)
	}

	reply, err := p.backend.Generate(ctx, command, nil)
	if err != nil {
		return err
	}
	if reply == "" {
		return p.speak(ctx, fallbackNoReply)
	}
	return p.speak(ctx, reply)
}

// captureTranscript records one utterance and transcribes it. captured is
// false when the stream ended without any speech.
func (p *Processor) captureTranscript(ctx context.Context) (transcript string, captured bool, err error) {
	session := capture.New(p.input,
		capture.WithFormat(p.cfg.Format),
		capture.WithDetectorConfig(p.cfg.Detector),
		capture.WithLogger(p.logger),
	)
	result, err := session.Run(ctx)
	if err != nil {
		return "", false, err
	}
	if len(result.PCM) == 0 {
		p.logger.Debug("no speech captured")
		return "", false, nil
	}

	wav := audio.EncodeWAV(result.PCM, p.cfg.Format.SampleRate, p.cfg.Format.Channels)
	transcript, err = p.backend.Transcribe(ctx, wav)
	if err != nil {
		return "", false, err
	}
	p.logger.Info("utterance transcribed", "text", transcript, "frames", result.Frames)
	return transcript, true, nil
}

// extractCommand applies the wake-word gate. It returns the command text
// and whether the utterance should be processed at all. The wake word
// itself is stripped from the command.
func (p *Processor) extractCommand(transcript string) (string, bool) {
	text := strings.TrimSpace(transcript)
	if p.cfg.WakeWord == "" {
		return text, true
	}

	lower := strings.ToLower(text)
	wake := strings.ToLower(p.cfg.WakeWord)
	idx := strings.Index(lower, wake)
	if idx < 0 {
		return "", false
	}
	command := strings.TrimSpace(text[idx+len(wake):])
	return strings.TrimLeft(command, ",.!? "), true
}

// speak synthesizes text and plays it on the output device.
func (p *Processor) speak(ctx context.Context, text string) error {
	wav, err := p.backend.Synthesize(ctx, text, p.cfg.Voice)
	if err != nil {
		return err
	}
	pcm, format, err := audio.DecodeWAV(wav)
	if err != nil {
		return err
	}
	return p.output.Play(ctx, format, pcm)
}
