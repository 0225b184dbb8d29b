package audio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxstream/voxstream/pkg/audio"
)

func TestDecodeLE16(t *testing.T) {
	tests := map[string]struct {
		input       []byte
		want        []float32
		wantDropped int
	}{
		"empty": {
			input:       nil,
			want:        []float32{},
			wantDropped: 0,
		},
		"silence": {
			input:       []byte{0x00, 0x00, 0x00, 0x00},
			want:        []float32{0, 0},
			wantDropped: 0,
		},
		"full_scale_positive": {
			input:       []byte{0xFF, 0x7F}, // 32767
			want:        []float32{32767.0 / 32768.0},
			wantDropped: 0,
		},
		"full_scale_negative": {
			input:       []byte{0x00, 0x80}, // -32768
			want:        []float32{-1},
			wantDropped: 0,
		},
		"odd_trailing_byte_dropped": {
			input:       []byte{0x00, 0x40, 0x7F}, // one sample plus a torn byte
			want:        []float32{0.5},
			wantDropped: 1,
		},
		"single_odd_byte": {
			input:       []byte{0xAB},
			want:        []float32{},
			wantDropped: 1,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, dropped := audio.DecodeLE16(tt.input)
			assert.Equal(t, tt.wantDropped, dropped)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-6, "sample %d", i)
			}
		})
	}
}

func TestDecodeLE16_RoundTrip(t *testing.T) {
	raw := []byte{
		0x00, 0x00, // 0
		0x01, 0x00, // 1
		0xFF, 0xFF, // -1
		0x39, 0x30, // 12345
		0xC7, 0xCF, // -12345
		0xFF, 0x7F, // 32767
		0x00, 0x80, // -32768
	}

	decoded, dropped := audio.DecodeLE16(raw)
	require.Zero(t, dropped)
	require.Len(t, decoded, len(raw)/2)

	encoded := audio.EncodeLE16(decoded)
	assert.Equal(t, raw, encoded)
}

func TestEncodeLE16_Clamps(t *testing.T) {
	out := audio.EncodeLE16([]float32{2.0, -2.0})
	require.Len(t, out, 4)
	assert.Equal(t, []byte{0xFF, 0x7F}, out[0:2])
	assert.Equal(t, []byte{0x00, 0x80}, out[2:4])
}
