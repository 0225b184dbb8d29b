package audio

// DecodeLE16 converts raw little-endian 16-bit PCM bytes into normalized
// float32 samples in [-1, 1]. The input is expected to hold whole samples;
// a trailing odd byte is dropped rather than letting every later sample in
// the chunk shift by one byte. The number of dropped bytes is returned so
// the caller can log it.
func DecodeLE16(b []byte) ([]float32, int) {
	n := len(b) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
		samples[i] = float32(v) / 32768.0
	}
	return samples, len(b) - n*2
}

// EncodeLE16 converts normalized float32 samples back to little-endian
// 16-bit PCM bytes, clamping anything outside [-1, 1].
func EncodeLE16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		scaled := s * 32768.0
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		v := int16(scaled)
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}
