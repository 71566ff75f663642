package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// wavHeaderLen is the byte length of a canonical PCM RIFF header.
const wavHeaderLen = 44

// ErrNotWAV is returned by DecodeWAV when the input carries no RIFF/WAVE
// envelope.
var ErrNotWAV = errors.New("audio: not a RIFF/WAVE payload")

// EncodeWAV wraps raw s16le PCM in a RIFF/WAVE envelope. The capture layer
// itself produces headerless PCM; the transport boundary calls this before
// handing audio to a provider that expects a self-describing container.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	byteRate := sampleRate * channels * (BitDepth / 8)
	blockAlign := channels * (BitDepth / 8)

	out := make([]byte, wavHeaderLen+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM format tag
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], BitDepth)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[wavHeaderLen:], pcm)
	return out
}

// DecodeWAV strips a RIFF/WAVE envelope and returns the contained PCM along
// with its declared format. Only canonical 44-byte PCM headers are handled;
// anything else returns [ErrNotWAV].
func DecodeWAV(data []byte) (pcm []byte, format Format, err error) {
	if !IsWAV(data) {
		return nil, Format{}, ErrNotWAV
	}
	format = Format{
		SampleRate: int(binary.LittleEndian.Uint32(data[24:28])),
		Channels:   int(binary.LittleEndian.Uint16(data[22:24])),
	}
	dataLen := int(binary.LittleEndian.Uint32(data[40:44]))
	body := data[wavHeaderLen:]
	if dataLen > len(body) {
		return nil, Format{}, fmt.Errorf("audio: data chunk declares %d bytes, %d present: %w", dataLen, len(body), ErrNotWAV)
	}
	return body[:dataLen], format, nil
}

// IsWAV reports whether data starts with a RIFF/WAVE header of at least the
// canonical length.
func IsWAV(data []byte) bool {
	return len(data) >= wavHeaderLen &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WAVE" &&
		string(data[36:40]) == "data"
}
