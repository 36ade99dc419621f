// Package audio implements the capture and playback half of the realtime
// voice pipeline: float32 sample blocks from an input device are encoded to
// little-endian 16-bit PCM for the wire, and inbound PCM is decoded into a
// gated playback buffer the output device drains.
//
// The [Source], [Sink], and [Renderer] interfaces live under pkg/ because
// device adapters outside this module are expected to implement them.
package audio

// EncodePCM16 converts float32 samples in [-1, 1] to little-endian int16 PCM.
//
// Samples are clamped before scaling. The positive and negative halves of the
// int16 range are asymmetric, so positive samples scale by 32767 and negative
// samples by 32768 — 1.0 and -1.0 both land exactly on the range limits.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s >= 0 {
			v = int16(s * 32767)
		} else {
			v = int16(s * 32768)
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// DecodePCM16 converts little-endian int16 PCM to float32 samples scaled by
// 1/32768. A trailing odd byte is ignored.
func DecodePCM16(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := range n {
		v := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(v) / 32768
	}
	return out
}
