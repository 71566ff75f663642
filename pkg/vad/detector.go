// Package vad implements the energy/zero-crossing-rate voice activity
// detector that segments continuous microphone input into single utterances.
//
// The detector is a two-state machine (idle, speaking) fed one classified
// frame at a time. It leaves idle on the first speech frame, tolerates brief
// in-utterance pauses, and stops on one of two conditions evaluated per
// frame, in order:
//
//  1. Confirmed silence — the pause exceeded Config.SilenceFrames AND the
//     session has already accumulated more than Config.MinSpeechFrames of
//     real speech. The speech floor prevents a short noise burst followed by
//     quiet from being honoured as a finished utterance.
//  2. Timeout — the pause exceeded Config.TimeoutFrames regardless of how
//     much speech was captured. Safety valve so a session always terminates.
//
// A Detector belongs to exactly one capture session; it is read and written
// by a single capture loop and is not safe for concurrent use.
package vad

// Config holds the detector thresholds. The defaults are the empirically
// tuned values for 16 kHz / 30 ms frames; they are exposed as configuration
// rather than constants so deployments can adapt them to their acoustic
// environment.
type Config struct {
	// EnergyThreshold is the minimum mean squared amplitude for a frame to
	// count as speech. Default: 1_000_000.
	EnergyThreshold float64

	// ZCRThreshold is the minimum zero-crossing rate for a frame to count
	// as speech. Default: 0.05.
	ZCRThreshold float64

	// SilenceFrames is the pause length, in frames, that ends an utterance
	// once enough speech was captured (~600 ms at 30 ms frames). Default: 20.
	SilenceFrames int

	// TimeoutFrames is the pause length that ends the session
	// unconditionally (~3.6 s at 30 ms frames). Default: 120.
	TimeoutFrames int

	// MinSpeechFrames is the number of speech frames required before a
	// SilenceFrames pause is honoured as end-of-utterance. Default: 5.
	MinSpeechFrames int
}

// DefaultConfig returns the tuned default thresholds.
func DefaultConfig() Config {
	return Config{
		EnergyThreshold: 1_000_000,
		ZCRThreshold:    0.05,
		SilenceFrames:   20,
		TimeoutFrames:   120,
		MinSpeechFrames: 5,
	}
}

// withDefaults fills zero fields with the default thresholds.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.EnergyThreshold == 0 {
		c.EnergyThreshold = def.EnergyThreshold
	}
	if c.ZCRThreshold == 0 {
		c.ZCRThreshold = def.ZCRThreshold
	}
	if c.SilenceFrames == 0 {
		c.SilenceFrames = def.SilenceFrames
	}
	if c.TimeoutFrames == 0 {
		c.TimeoutFrames = def.TimeoutFrames
	}
	if c.MinSpeechFrames == 0 {
		c.MinSpeechFrames = def.MinSpeechFrames
	}
	return c
}

// Decision is the detector's verdict after consuming one frame.
type Decision int

const (
	// Continue means the session keeps reading frames.
	Continue Decision = iota

	// StopConfirmed means the utterance ended on the confirmed-silence
	// condition: a natural pause after sufficient speech.
	StopConfirmed

	// StopTimeout means the session ended on the silence timeout without
	// enough speech to satisfy the confirmed-silence condition.
	StopTimeout
)

// String returns the decision name for log output.
func (d Decision) String() string {
	switch d {
	case Continue:
		return "continue"
	case StopConfirmed:
		return "stop-confirmed"
	case StopTimeout:
		return "stop-timeout"
	}
	return "unknown"
}

// Detector tracks one utterance's state across frames.
type Detector struct {
	cfg Config

	speaking      bool
	silenceRun    int
	highEnergyRun int
	iterations    int
	buffer        []byte
	frames        int
}

// New creates a detector in the idle state. Zero-valued Config fields fall
// back to [DefaultConfig].
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg.withDefaults()}
}

// Config returns the effective thresholds in use.
func (d *Detector) Config() Config { return d.cfg }

// Feed consumes one frame of s16le PCM plus its classification and returns
// the verdict. The frame the stop decision is made on is not buffered.
//
// Invariants maintained:
//   - silenceRun resets to zero on every speech frame;
//   - highEnergyRun only ever increments within a session;
//   - the buffer only accumulates once speaking is true.
func (d *Detector) Feed(frame []byte, isSpeech bool) Decision {
	d.iterations++

	if isSpeech {
		d.highEnergyRun++
		d.speaking = true
		d.silenceRun = 0
		d.append(frame)
		return Continue
	}

	if !d.speaking {
		// Idle non-speech frames are discarded to keep memory bounded
		// while waiting for the utterance to begin.
		return Continue
	}

	d.silenceRun++
	if d.silenceRun > d.cfg.SilenceFrames && d.highEnergyRun > d.cfg.MinSpeechFrames {
		return StopConfirmed
	}
	if d.silenceRun > d.cfg.TimeoutFrames {
		return StopTimeout
	}

	// A pause that is neither stop condition is part of the utterance.
	d.append(frame)
	return Continue
}

func (d *Detector) append(frame []byte) {
	d.buffer = append(d.buffer, frame...)
	d.frames++
}

// Buffer returns the accumulated utterance as one contiguous PCM byte
// sequence in arrival order, with no container header. The detector does
// not clear it; the caller owns disposal.
func (d *Detector) Buffer() []byte { return d.buffer }

// BufferedFrames returns how many frames the buffer holds.
func (d *Detector) BufferedFrames() int { return d.frames }

// Speaking reports whether the detector has left the idle state.
func (d *Detector) Speaking() bool { return d.speaking }

// Iterations returns the total number of frames fed so far.
func (d *Detector) Iterations() int { return d.iterations }

// Reset returns the detector to its initial idle state, discarding any
// buffered audio. Used when a stream restarts mid-session.
func (d *Detector) Reset() {
	d.speaking = false
	d.silenceRun = 0
	d.highEnergyRun = 0
	d.iterations = 0
	d.buffer = nil
	d.frames = 0
}
