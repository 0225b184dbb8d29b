package playback

// FrameBuffer accumulates decoded samples and slices them into
// fixed-size frames. Chunk boundaries never align with frame
// boundaries, so the buffer carries the remainder between appends.
type FrameBuffer struct {
	frameSize int
	pending   []float32
}

func NewFrameBuffer(frameSize int) *FrameBuffer {
	return &FrameBuffer{frameSize: frameSize}
}

// Append adds samples to the buffer and returns every complete frame
// now available. Returned frames are copies; callers own them.
func (b *FrameBuffer) Append(samples []float32) [][]float32 {
	b.pending = append(b.pending, samples...)

	var frames [][]float32
	for len(b.pending) >= b.frameSize {
		frame := make([]float32, b.frameSize)
		copy(frame, b.pending[:b.frameSize])
		frames = append(frames, frame)
		b.pending = b.pending[b.frameSize:]
	}
	if len(b.pending) == 0 {
		b.pending = nil
	}
	return frames
}

// Flush drains the buffered remainder as a short final frame, or nil
// when nothing is pending.
func (b *FrameBuffer) Flush() []float32 {
	if len(b.pending) == 0 {
		return nil
	}
	frame := make([]float32, len(b.pending))
	copy(frame, b.pending)
	b.pending = nil
	return frame
}

// Len reports the number of buffered samples not yet sliced into a frame.
func (b *FrameBuffer) Len() int {
	return len(b.pending)
}

// Reset discards all buffered samples.
func (b *FrameBuffer) Reset() {
	b.pending = nil
}
