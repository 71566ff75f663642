package client

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/aGallea/smart-phone/internal/capture"
	"github.com/aGallea/smart-phone/pkg/audio"
	audiomock "github.com/aGallea/smart-phone/pkg/audio/mock"
	"github.com/aGallea/smart-phone/pkg/vad"
)

// speechFrame returns a frame that clears both default thresholds: a loud
// square wave crossing zero every few samples.
func speechFrame() []byte {
	out := make([]byte, audio.FrameBytes)
	for i := 0; i < audio.FrameSamples; i++ {
		v := int16(8000)
		if (i/4)%2 == 1 {
			v = -8000
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func silenceFrame() []byte {
	return make([]byte, audio.FrameBytes)
}

// utteranceScript is a capture script that ends with a confirmed stop.
func utteranceScript() [][]byte {
	cfg := vad.DefaultConfig()
	var frames [][]byte
	for i := 0; i < 10; i++ {
		frames = append(frames, speechFrame())
	}
	for i := 0; i < cfg.SilenceFrames+2; i++ {
		frames = append(frames, silenceFrame())
	}
	return frames
}

// fakeConversation is a scripted Conversation implementation.
type fakeConversation struct {
	mu sync.Mutex

	transcript    string
	transcripts   []string // consumed in order before falling back to transcript
	transcribeErr error
	reply         string
	generateErr   error
	speechWAV     []byte
	synthErr      error

	transcribed [][]byte
	generated   []string
	synthesized []string
}

func (f *fakeConversation) Transcribe(_ context.Context, wav []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcribed = append(f.transcribed, wav)
	if len(f.transcripts) > 0 {
		next := f.transcripts[0]
		f.transcripts = f.transcripts[1:]
		return next, f.transcribeErr
	}
	return f.transcript, f.transcribeErr
}

func (f *fakeConversation) Generate(_ context.Context, input string, _ map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, input)
	return f.reply, f.generateErr
}

func (f *fakeConversation) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synthesized = append(f.synthesized, text)
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	return f.speechWAV, nil
}

func replyWAV() []byte {
	return audio.EncodeWAV(make([]byte, 4*audio.FrameBytes), audio.SampleRate, audio.Channels)
}

func TestRunOnceFullCycle(t *testing.T) {
	dev := &audiomock.Device{Frames: utteranceScript()}
	out := &audiomock.Output{}
	conv := &fakeConversation{
		transcript: "hey robot turn on the lights",
		reply:      "lights are on",
		speechWAV:  replyWAV(),
	}

	p := NewProcessor(dev, out, conv, ProcessorConfig{WakeWord: "hey robot"})
	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(conv.transcribed) != 1 {
		t.Fatalf("transcribe calls = %d, want 1", len(conv.transcribed))
	}
	if !audio.IsWAV(conv.transcribed[0]) {
		t.Error("captured audio was not WAV-wrapped")
	}
	if len(conv.generated) != 1 || conv.generated[0] != "turn on the lights" {
		t.Errorf("generated = %v, want wake word stripped", conv.generated)
	}
	if len(conv.synthesized) != 1 || conv.synthesized[0] != "lights are on" {
		t.Errorf("synthesized = %v", conv.synthesized)
	}
	if len(out.Played) != 1 {
		t.Errorf("playback calls = %d, want 1", len(out.Played))
	}
}

func TestRunOnceNoWakeWordDiscards(t *testing.T) {
	dev := &audiomock.Device{Frames: utteranceScript()}
	out := &audiomock.Output{}
	conv := &fakeConversation{transcript: "just background chatter"}

	p := NewProcessor(dev, out, conv, ProcessorConfig{WakeWord: "hey robot"})
	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(conv.generated) != 0 {
		t.Error("command generated without wake word")
	}
	if len(out.Played) != 0 {
		t.Error("audio played without wake word")
	}
}

func TestRunOnceWakeWordDisabled(t *testing.T) {
	dev := &audiomock.Device{Frames: utteranceScript()}
	out := &audiomock.Output{}
	conv := &fakeConversation{
		transcript: "what is the weather",
		reply:      "sunny",
		speechWAV:  replyWAV(),
	}

	p := NewProcessor(dev, out, conv, ProcessorConfig{})
	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(conv.generated) != 1 || conv.generated[0] != "what is the weather" {
		t.Errorf("generated = %v", conv.generated)
	}
}

func TestRunOnceWakeWordAlonePromptsForCommand(t *testing.T) {
	dev := &audiomock.Device{Frames: utteranceScript()}
	out := &audiomock.Output{}
	conv := &fakeConversation{
		// First capture hears only the wake word; the second carries the
		// command.
		transcripts: []string{"hey robot", "turn on the lights"},
		reply:       "lights are on",
		speechWAV:   replyWAV(),
	}

	p := NewProcessor(dev, out, conv, ProcessorConfig{WakeWord: "hey robot"})
	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(conv.transcribed) != 2 {
		t.Fatalf("transcribe calls = %d, want 2", len(conv.transcribed))
	}
	if len(conv.synthesized) != 2 || conv.synthesized[0] != ackPrompt {
		t.Fatalf("synthesized = %v, want acknowledgment first", conv.synthesized)
	}
	if conv.synthesized[1] != "lights are on" {
		t.Errorf("synthesized[1] = %q", conv.synthesized[1])
	}
	if len(conv.generated) != 1 || conv.generated[0] != "turn on the lights" {
		t.Errorf("generated = %v", conv.generated)
	}
}

func TestRunOnceEmptyFollowUpSpeaksFallback(t *testing.T) {
	dev := &audiomock.Device{Frames: utteranceScript()}
	out := &audiomock.Output{}
	conv := &fakeConversation{
		// Wake word heard, then the follow-up transcribes to nothing.
		transcripts: []string{"hey robot", ""},
		speechWAV:   replyWAV(),
	}

	p := NewProcessor(dev, out, conv, ProcessorConfig{WakeWord: "hey robot"})
	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(conv.generated) != 0 {
		t.Error("empty command should not reach generation")
	}
	want := []string{ackPrompt, fallbackNoSpeech}
	if len(conv.synthesized) != 2 || conv.synthesized[0] != want[0] || conv.synthesized[1] != want[1] {
		t.Errorf("synthesized = %v, want %v", conv.synthesized, want)
	}
}

func TestRunOnceEmptyReplySpeaksFallback(t *testing.T) {
	dev := &audiomock.Device{Frames: utteranceScript()}
	out := &audiomock.Output{}
	conv := &fakeConversation{
		transcript: "hey robot open the door",
		reply:      "", // degraded LLM: soft-failed to empty
		speechWAV:  replyWAV(),
	}

	p := NewProcessor(dev, out, conv, ProcessorConfig{WakeWord: "hey robot"})
	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(conv.synthesized) != 1 || conv.synthesized[0] != fallbackNoReply {
		t.Errorf("synthesized = %v, want degraded fallback", conv.synthesized)
	}
}

func TestRunOnceSilenceDoesNothing(t *testing.T) {
	// Stream ends after pure silence; no utterance is detected.
	var frames [][]byte
	for i := 0; i < 20; i++ {
		frames = append(frames, silenceFrame())
	}
	dev := &audiomock.Device{Frames: frames}
	out := &audiomock.Output{}
	conv := &fakeConversation{}

	p := NewProcessor(dev, out, conv, ProcessorConfig{})
	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(conv.transcribed) != 0 {
		t.Error("silence should not be transcribed")
	}
}

func TestRunOnceCaptureUnavailable(t *testing.T) {
	dev := &audiomock.Device{OpenErr: errors.New("mic busy")}
	p := NewProcessor(dev, &audiomock.Output{}, &fakeConversation{}, ProcessorConfig{})

	err := p.RunOnce(context.Background())
	if !errors.Is(err, capture.ErrCaptureUnavailable) {
		t.Errorf("RunOnce() error = %v, want ErrCaptureUnavailable", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	dev := &audiomock.Device{Frames: utteranceScript()}
	conv := &fakeConversation{transcript: "hi", reply: "hello", speechWAV: replyWAV()}
	p := NewProcessor(dev, &audiomock.Output{}, conv, ProcessorConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
