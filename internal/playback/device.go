package playback

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voxstream/voxstream/pkg/audio"
)

var _ Device = (*WriterDevice)(nil)

// Device is the output end of the playback engine. Implementations own
// the clock: Now reports the render position, and ScheduleAt commits a
// frame to start at a position on that clock. The done callback fires
// once the frame has finished rendering; callbacks fire in schedule
// order.
type Device interface {
	// Now reports the current position of the device clock.
	Now() time.Duration

	// ScheduleAt commits a frame to begin rendering at start. Frames
	// must be scheduled in ascending start order.
	ScheduleAt(f *Frame, start time.Duration, done func())

	// Resume unblocks a device that starts suspended. Devices that are
	// always running return nil.
	Resume(ctx context.Context) error

	// Close releases the device. Pending done callbacks are dropped.
	Close() error
}

type scheduledFrame struct {
	frame *Frame
	start time.Duration
	done  func()
}

// WriterDevice renders scheduled frames as little-endian PCM16 to an
// io.Writer with frame-paced timing. Writes are paced against a wall
// clock anchored at construction, so downstream consumers see audio at
// real-time rate.
type WriterDevice struct {
	w          io.Writer
	sampleRate int
	logger     *zap.Logger

	epoch time.Time
	queue chan scheduledFrame

	closeOnce sync.Once
	closed    chan struct{}
	drained   chan struct{}
}

// NewWriterDevice starts a render goroutine writing paced PCM16 to w.
func NewWriterDevice(w io.Writer, sampleRate int, logger *zap.Logger) *WriterDevice {
	d := &WriterDevice{
		w:          w,
		sampleRate: sampleRate,
		logger:     logger,
		epoch:      time.Now(),
		queue:      make(chan scheduledFrame, 256),
		closed:     make(chan struct{}),
		drained:    make(chan struct{}),
	}
	go d.renderLoop()
	return d
}

func (d *WriterDevice) Now() time.Duration {
	return time.Since(d.epoch)
}

func (d *WriterDevice) ScheduleAt(f *Frame, start time.Duration, done func()) {
	select {
	case d.queue <- scheduledFrame{frame: f, start: start, done: done}:
	case <-d.closed:
	}
}

// Resume is a no-op; the writer device renders from construction.
func (d *WriterDevice) Resume(ctx context.Context) error {
	return nil
}

func (d *WriterDevice) Close() error {
	d.closeOnce.Do(func() { close(d.closed) })
	<-d.drained
	return nil
}

func (d *WriterDevice) renderLoop() {
	defer close(d.drained)
	for {
		select {
		case item := <-d.queue:
			d.render(item)
		case <-d.closed:
			return
		}
	}
}

// render waits until the frame's scheduled start, applies the frame's
// gain per sample, and writes the encoded PCM. Frame timing must be
// exact to prevent audio artifacts downstream.
func (d *WriterDevice) render(item scheduledFrame) {
	if !d.waitUntil(item.start) {
		return
	}

	now := d.Now()
	if drift := now - item.start; drift > 5*time.Millisecond {
		d.logger.Warn("Frame timing drift detected",
			zap.Duration("drift", drift),
			zap.Duration("scheduled_start", item.start))
	}

	samples := item.frame.Samples
	sampleDur := time.Second / time.Duration(d.sampleRate)
	duration := time.Duration(len(samples)) * time.Second / time.Duration(d.sampleRate)
	scaled := make([]float32, len(samples))
	for i, s := range samples {
		scaled[i] = s * item.frame.Gain.ValueAt(item.start+time.Duration(i)*sampleDur)
	}

	if _, err := d.w.Write(audio.EncodeLE16(scaled)); err != nil {
		d.logger.Error("Failed to write rendered frame",
			zap.Error(err),
			zap.Int("samples", len(samples)))
	}

	if !d.waitUntil(item.start + duration) {
		return
	}
	if item.done != nil {
		item.done()
	}
}

// waitUntil sleeps the render goroutine until the device clock reaches
// target. It returns false if the device closed while waiting.
func (d *WriterDevice) waitUntil(target time.Duration) bool {
	wait := target - d.Now()
	if wait <= 0 {
		return true
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-d.closed:
		return false
	}
}
