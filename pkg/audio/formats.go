package audio

// Format constants shared by the decode, playback and container layers.
const (
	// Model output stream.
	SampleRate    = 24_000 // Hz
	Channels      = 1      // mono
	BitsPerSample = 16     // signed little-endian

	// Playback frame.
	FrameSize = 7_680 // samples (320 ms at 24 kHz)

	// WAV container.
	HeaderSize = 44 // bytes
)
