package audio

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeWAV_RoundTrip(t *testing.T) {
	pcm := pcmFromSamples(squareWave(FrameSamples*3, 2500, 7))

	wav := EncodeWAV(pcm, SampleRate, Channels)
	got, format, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if format.SampleRate != SampleRate {
		t.Errorf("sample rate = %d, want %d", format.SampleRate, SampleRate)
	}
	if format.Channels != Channels {
		t.Errorf("channels = %d, want %d", format.Channels, Channels)
	}
	if !bytes.Equal(got, pcm) {
		t.Errorf("PCM round trip mismatch: got %d bytes, want %d", len(got), len(pcm))
	}
}

func TestEncodeWAV_EmptyPCM(t *testing.T) {
	wav := EncodeWAV(nil, SampleRate, Channels)
	if len(wav) != wavHeaderLen {
		t.Errorf("len = %d, want %d", len(wav), wavHeaderLen)
	}
	pcm, _, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(pcm) != 0 {
		t.Errorf("pcm len = %d, want 0", len(pcm))
	}
}

func TestDecodeWAV_RejectsRawPCM(t *testing.T) {
	raw := pcmFromSamples(squareWave(FrameSamples, 1000, 5))
	if _, _, err := DecodeWAV(raw); !errors.Is(err, ErrNotWAV) {
		t.Errorf("err = %v, want ErrNotWAV", err)
	}
}

func TestDecodeWAV_RejectsTruncatedDataChunk(t *testing.T) {
	wav := EncodeWAV(make([]byte, 1000), SampleRate, Channels)
	truncated := wav[:len(wav)-100]
	if _, _, err := DecodeWAV(truncated); !errors.Is(err, ErrNotWAV) {
		t.Errorf("err = %v, want ErrNotWAV", err)
	}
}

func TestIsWAV(t *testing.T) {
	if !IsWAV(EncodeWAV(make([]byte, 10), SampleRate, Channels)) {
		t.Error("IsWAV(encoded) = false, want true")
	}
	if IsWAV([]byte("RIFF")) {
		t.Error("IsWAV(short prefix) = true, want false")
	}
	if IsWAV(nil) {
		t.Error("IsWAV(nil) = true, want false")
	}
}
