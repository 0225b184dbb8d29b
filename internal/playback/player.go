package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voxstream/voxstream/internal/config"
	"github.com/voxstream/voxstream/internal/metrics"
	"github.com/voxstream/voxstream/pkg/audio"
	"github.com/voxstream/voxstream/pkg/util"
)

// State describes the playback engine's position in its lifecycle.
type State int32

const (
	// StateIdle means no audio is buffered or scheduled.
	StateIdle State = iota
	// StatePlaying means frames are queued and being committed to the device.
	StatePlaying
	// StateDraining means the queue is empty but scheduled audio may
	// still be rendering; new chunks resume playing.
	StateDraining
	// StateStopped means playback was interrupted; the next chunk
	// starts a fresh stream.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Frame is a fixed-size slice of decoded samples bound to the gain node
// that was live when it entered the queue.
type Frame struct {
	Samples []float32
	Gain    *Gain

	gen uint64
}

// Tap receives every frame's raw samples at schedule time. Taps must
// not retain the slice past the call.
type Tap func(samples []float32)

type namedTap struct {
	name string
	fn   Tap
}

// Player is the streaming playback engine. Chunks of little-endian
// PCM16 go in; fixed-size frames come out on the device's clock, with
// an eager scheduling horizon so short network stalls never starve the
// output.
type Player interface {
	// Submit decodes a raw PCM chunk and schedules any complete frames.
	Submit(chunk []byte)

	// Complete marks the stream finished. The completion handlers fire
	// exactly once, after the final frame has rendered.
	Complete()

	// Stop interrupts playback: queued audio is discarded, the live
	// gain ramps to silence, and pending completion is cancelled.
	Stop()

	// Resume unblocks a suspended output device, re-applies the initial
	// buffer delay to the scheduling cursor and restores unity gain.
	Resume(ctx context.Context) error

	// State reports the engine's current lifecycle state.
	State() State

	// OnComplete registers a handler invoked when a stream drains fully.
	OnComplete(fn func())

	// RegisterTap adds a named frame observer and returns its removal
	// func. Registering the same name again appends another observer.
	RegisterTap(name string, tap Tap) func()

	// Close releases the engine's timers. The device is not closed.
	Close() error
}

type player struct {
	logger  *zap.Logger
	cfg     config.PlaybackConfig
	device  Device
	metrics *metrics.Metrics

	mu       sync.Mutex
	state    State
	buf      *FrameBuffer
	queue    []*Frame
	cursor   time.Duration
	gain     *Gain
	nextGen  uint64
	endGen   uint64 // generation whose completion ends the stream; 0 = none
	epoch    uint64 // bumped on stop to orphan in-flight callbacks
	inFlight int
	notified bool // completion delivered and no audio arrived since
	closed   bool

	onComplete []func()
	taps       map[int]namedTap
	nextTap    int

	poll  *util.WakeTimer
	rearm *util.WakeTimer
}

// NewPlayer creates a playback engine rendering to device.
func NewPlayer(logger *zap.Logger, cfg *config.Config, device Device, m *metrics.Metrics) Player {
	p := &player{
		logger:  logger,
		cfg:     cfg.Playback,
		device:  device,
		metrics: m,
		state:   StateIdle,
		buf:     NewFrameBuffer(cfg.Playback.FrameSize),
		gain:    NewGain(),
		taps:    make(map[int]namedTap),
	}
	p.poll = util.NewWakeTimer(p.onPoll)
	p.rearm = util.NewWakeTimer(p.onRearm)
	return p
}

func (p *player) Submit(chunk []byte) {
	samples, dropped := audio.DecodeLE16(chunk)
	if dropped > 0 {
		p.logger.Warn("Dropped torn trailing bytes from PCM chunk",
			zap.Int("dropped_bytes", dropped),
			zap.Int("chunk_bytes", len(chunk)))
		p.metrics.BytesDropped.Add(float64(dropped))
	}
	p.metrics.ChunksReceived.Inc()
	p.metrics.BytesReceived.Add(float64(len(chunk)))

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if len(samples) > 0 {
		p.notified = false
	}
	for _, f := range p.buf.Append(samples) {
		p.nextGen++
		p.queue = append(p.queue, &Frame{Samples: f, Gain: p.gain, gen: p.nextGen})
	}
	if p.state == StateDraining && len(p.queue) > 0 {
		p.state = StatePlaying
		p.poll.Disarm()
	}
	scheduled := p.scheduleLocked()
	// A completed stream stays open until its true last frame ends, so
	// late chunks push the designated final generation forward.
	if p.endGen != 0 && p.nextGen > p.endGen {
		p.endGen = p.nextGen
	}
	taps := p.snapshotTapsLocked()
	p.mu.Unlock()

	fireTaps(taps, scheduled)
}

func (p *player) Complete() {
	p.mu.Lock()
	// A repeat after the stream already drained must not re-notify.
	if p.closed || p.state == StateStopped || p.notified {
		p.mu.Unlock()
		return
	}
	if tail := p.buf.Flush(); tail != nil {
		p.nextGen++
		p.queue = append(p.queue, &Frame{Samples: tail, Gain: p.gain, gen: p.nextGen})
		if p.state == StateDraining {
			p.state = StatePlaying
			p.poll.Disarm()
		}
	}
	scheduled := p.scheduleLocked()

	var fireNow bool
	switch {
	case len(p.queue) > 0:
		p.endGen = p.queue[len(p.queue)-1].gen
	case p.inFlight > 0:
		// Queue drained into the device; the most recent generation is
		// the one still rendering.
		p.endGen = p.nextGen
	default:
		fireNow = true
		p.finishStreamLocked()
	}
	handlers := append([]func(){}, p.onComplete...)
	taps := p.snapshotTapsLocked()
	p.mu.Unlock()

	fireTaps(taps, scheduled)
	if fireNow {
		for _, h := range handlers {
			h()
		}
	}
}

func (p *player) Stop() {
	p.mu.Lock()
	if p.closed || p.state == StateIdle || p.state == StateStopped {
		p.mu.Unlock()
		return
	}
	now := p.device.Now()
	p.gain.RampTo(0, now, now+p.cfg.GainRamp())
	p.gain = NewGain()
	p.epoch++
	p.queue = nil
	p.buf.Reset()
	p.endGen = 0
	p.inFlight = 0
	p.cursor = 0
	p.state = StateStopped
	p.poll.Disarm()
	p.rearm.Disarm()
	p.metrics.StreamsStopped.Inc()
	p.metrics.QueueDepth.Set(0)
	p.logger.Info("Playback stopped", zap.Duration("device_time", now))
	p.mu.Unlock()
}

// Resume waits for the output device to become ready, then re-applies
// the buffering head start and drops any pending completion. The engine
// state is untouched until the device confirms readiness.
func (p *player) Resume(ctx context.Context) error {
	if err := p.device.Resume(ctx); err != nil {
		return fmt.Errorf("failed to resume output device: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	now := p.device.Now()
	p.endGen = 0
	p.cursor = now + p.cfg.InitialBufferDelay()
	p.gain.Set(1)
	p.logger.Info("Playback resumed", zap.Duration("device_time", now))
	return nil
}

func (p *player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *player) OnComplete(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onComplete = append(p.onComplete, fn)
}

func (p *player) RegisterTap(name string, tap Tap) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextTap
	p.nextTap++
	p.taps[id] = namedTap{name: name, fn: tap}
	p.logger.Debug("Registered playback tap", zap.String("name", name))
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.taps, id)
	}
}

func (p *player) Close() error {
	p.mu.Lock()
	p.closed = true
	p.epoch++
	p.queue = nil
	p.buf.Reset()
	p.state = StateStopped
	p.mu.Unlock()
	p.poll.Stop()
	p.rearm.Stop()
	return nil
}

// scheduleLocked commits queued frames within the lookahead horizon and
// arms the appropriate timer for whatever remains. Caller holds p.mu.
func (p *player) scheduleLocked() []*Frame {
	if len(p.queue) == 0 && p.state != StatePlaying {
		return nil
	}
	now := p.device.Now()
	if p.state == StateIdle || p.state == StateStopped {
		p.state = StatePlaying
		p.cursor = now + p.cfg.InitialBufferDelay()
	}
	if p.cursor < now {
		p.cursor = now
	}

	horizon := now + p.cfg.Lookahead()
	var scheduled []*Frame
	for len(p.queue) > 0 && p.cursor < horizon {
		f := p.queue[0]
		p.queue = p.queue[1:]
		epoch, gen := p.epoch, f.gen
		p.inFlight++
		p.device.ScheduleAt(f, p.cursor, func() { p.frameDone(epoch, gen) })
		p.cursor += p.frameDuration(len(f.Samples))
		scheduled = append(scheduled, f)
	}
	if len(p.queue) == 0 {
		p.queue = nil
	}

	p.metrics.FramesScheduled.Add(float64(len(scheduled)))
	p.metrics.QueueDepth.Set(float64(len(p.queue)))

	if len(p.queue) > 0 {
		delay := p.cursor - horizon - p.cfg.RearmMargin()
		if delay < 0 {
			delay = 0
		}
		p.rearm.Arm(delay)
	} else if p.state == StatePlaying {
		p.state = StateDraining
		p.poll.Arm(p.cfg.PollInterval())
	}
	return scheduled
}

// frameDone runs on the device's callback goroutine when a frame
// finishes rendering. Callbacks from before the last stop carry a stale
// epoch and are ignored.
func (p *player) frameDone(epoch, gen uint64) {
	p.mu.Lock()
	if p.closed || epoch != p.epoch {
		p.mu.Unlock()
		return
	}
	p.inFlight--

	var handlers []func()
	if p.endGen != 0 && gen == p.endGen {
		p.finishStreamLocked()
		handlers = append([]func(){}, p.onComplete...)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h()
	}
}

// finishStreamLocked resets the engine after a stream drains fully.
func (p *player) finishStreamLocked() {
	p.endGen = 0
	p.notified = true
	p.cursor = 0
	p.state = StateIdle
	p.poll.Disarm()
	p.rearm.Disarm()
	p.metrics.StreamsCompleted.Inc()
	p.logger.Debug("Playback stream completed", zap.Uint64("last_generation", p.nextGen))
}

func (p *player) onRearm() {
	p.mu.Lock()
	if p.closed || (p.state != StatePlaying && p.state != StateDraining) {
		p.mu.Unlock()
		return
	}
	scheduled := p.scheduleLocked()
	taps := p.snapshotTapsLocked()
	p.mu.Unlock()

	fireTaps(taps, scheduled)
}

// onPoll re-checks a draining stream. An open stream that ran dry drops
// back to idle so the next chunk gets a fresh buffering head start.
func (p *player) onPoll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.state != StateDraining {
		return
	}
	if p.inFlight == 0 && len(p.queue) == 0 && p.endGen == 0 {
		p.cursor = 0
		p.state = StateIdle
		return
	}
	p.poll.Arm(p.cfg.PollInterval())
}

func (p *player) frameDuration(samples int) time.Duration {
	return time.Duration(samples) * time.Second / time.Duration(p.cfg.SampleRate)
}

func (p *player) snapshotTapsLocked() []Tap {
	if len(p.taps) == 0 {
		return nil
	}
	taps := make([]Tap, 0, len(p.taps))
	for _, t := range p.taps {
		taps = append(taps, t.fn)
	}
	return taps
}

func fireTaps(taps []Tap, frames []*Frame) {
	if len(taps) == 0 || len(frames) == 0 {
		return
	}
	for _, f := range frames {
		for _, t := range taps {
			t(f.Samples)
		}
	}
}
