package service

import (
	"context"

	"github.com/aGallea/smart-phone/pkg/provider/llm"
	"github.com/aGallea/smart-phone/pkg/provider/stt"
	"github.com/aGallea/smart-phone/pkg/provider/tts"
)

// Capability-specific registry shapes. These three cover everything the
// assistant does with a provider: audio in, text out; text in, audio out;
// text in, text out.
type (
	// STT transcribes WAV-encoded utterances into text.
	STT = Registry[[]byte, string]
	// TTS renders synthesis requests into WAV audio.
	TTS = Registry[tts.Request, []byte]
	// LLM generates replies to user commands.
	LLM = Registry[llm.Request, string]
)

// NewSTT creates an empty speech-to-text registry.
func NewSTT(opts ...Option) *STT {
	return NewRegistry[[]byte, string]("stt", opts...)
}

// NewTTS creates an empty text-to-speech registry.
func NewTTS(opts ...Option) *TTS {
	return NewRegistry[tts.Request, []byte]("tts", opts...)
}

// NewLLM creates an empty language model registry.
func NewLLM(opts ...Option) *LLM {
	return NewRegistry[llm.Request, string]("llm", opts...)
}

// sttAdapter adapts stt.Provider to the registry's Provider shape.
type sttAdapter struct {
	p stt.Provider
}

func (a sttAdapter) Invoke(ctx context.Context, wav []byte) (string, error) {
	return a.p.Transcribe(ctx, wav)
}

func (a sttAdapter) Close() error { return a.p.Close() }

// WrapSTT lifts an stt.Provider into a registry provider.
func WrapSTT(p stt.Provider) Provider[[]byte, string] {
	return sttAdapter{p: p}
}

// ttsAdapter adapts tts.Provider to the registry's Provider shape.
type ttsAdapter struct {
	p tts.Provider
}

func (a ttsAdapter) Invoke(ctx context.Context, req tts.Request) ([]byte, error) {
	return a.p.Synthesize(ctx, req)
}

func (a ttsAdapter) Close() error { return a.p.Close() }

// WrapTTS lifts a tts.Provider into a registry provider.
func WrapTTS(p tts.Provider) Provider[tts.Request, []byte] {
	return ttsAdapter{p: p}
}

// llmAdapter adapts llm.Provider to the registry's Provider shape.
type llmAdapter struct {
	p llm.Provider
}

func (a llmAdapter) Invoke(ctx context.Context, req llm.Request) (string, error) {
	return a.p.Generate(ctx, req)
}

func (a llmAdapter) Close() error { return a.p.Close() }

// WrapLLM lifts an llm.Provider into a registry provider.
func WrapLLM(p llm.Provider) Provider[llm.Request, string] {
	return llmAdapter{p: p}
}
