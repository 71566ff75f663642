package audio

import "encoding/binary"

// Classification is the per-frame signal analysis result. It is derived
// deterministically from a frame and a pair of thresholds; nothing is
// persisted between frames.
type Classification struct {
	// Energy is the mean of squared sample magnitudes over the frame.
	Energy float64

	// ZCR is the zero-crossing rate: sign changes between consecutive
	// samples divided by (n-1). Frames of one or zero samples yield 0.
	ZCR float64

	// IsSpeech reports whether both the energy and ZCR thresholds were
	// exceeded. Energy alone cannot separate loud noise from speech; ZCR
	// alone cannot separate silence hiss from voiced sound.
	IsSpeech bool
}

// Classify analyses one frame of s16le PCM against the given thresholds.
// Pure function; identical input always yields identical output. A trailing
// odd byte is ignored.
func Classify(pcm []byte, energyThreshold, zcrThreshold float64) Classification {
	samples := Samples(pcm)
	energy := Energy(samples)
	zcr := ZeroCrossingRate(samples)
	return Classification{
		Energy:   energy,
		ZCR:      zcr,
		IsSpeech: energy > energyThreshold && zcr > zcrThreshold,
	}
}

// Samples decodes little-endian int16 PCM into a sample slice.
func Samples(pcm []byte) []int16 {
	n := len(pcm) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// Energy returns the mean of squared sample values. Samples are widened to
// int64 before squaring so a full-scale frame cannot overflow.
func Energy(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum int64
	for _, s := range samples {
		v := int64(s)
		sum += v * v
	}
	return float64(sum) / float64(len(samples))
}

// ZeroCrossingRate returns the fraction of consecutive sample pairs whose
// sign differs. Zero-valued samples carry sign 0, so a transition through
// an exact zero (1, 0, -1) contributes two sign changes.
func ZeroCrossingRate(samples []int16) float64 {
	if len(samples) <= 1 {
		return 0
	}
	crossings := 0
	prev := sign(samples[0])
	for _, s := range samples[1:] {
		cur := sign(s)
		if cur != prev {
			crossings++
		}
		prev = cur
	}
	return float64(crossings) / float64(len(samples)-1)
}

func sign(s int16) int {
	switch {
	case s > 0:
		return 1
	case s < 0:
		return -1
	}
	return 0
}
