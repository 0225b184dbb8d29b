package turn

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voxstream/voxstream/internal/config"
	"github.com/voxstream/voxstream/internal/metrics"
	"github.com/voxstream/voxstream/pkg/audio"
)

// Deliverer sends finished turns to the playback collaborator.
type Deliverer interface {
	// Upload stores a WAV file under filename.
	Upload(ctx context.Context, filename string, wav []byte) error

	// Play starts playback of a previously uploaded file.
	Play(ctx context.Context, filename string) error
}

// Aggregator accumulates one turn's worth of audio fragments and ships
// the assembled turn on completion.
//
// Fragments are kept as base64 text and concatenated before a single
// decode: fragment boundaries fall anywhere, so decoding fragments
// individually would tear the base64 groups.
type Aggregator interface {
	// AddAudio appends a base64 audio fragment to the open turn.
	// Fragments whose MIME type is not raw PCM are ignored.
	AddAudio(mimeType, data string)

	// CompleteTurn assembles the open turn into a WAV file, uploads it,
	// and triggers playback. An empty turn is a no-op.
	CompleteTurn(ctx context.Context) error

	// Interrupt handles a barge-in. The open turn is discarded unless
	// configured to flush instead.
	Interrupt(ctx context.Context) error

	// OnPlaybackPaused registers a handler invoked once the remote
	// device has taken over playback of a shipped turn.
	OnPlaybackPaused(fn func())
}

type aggregator struct {
	logger     *zap.Logger
	cfg        config.TurnConfig
	sampleRate int
	deliverer  Deliverer
	metrics    *metrics.Metrics
	now        func() time.Time

	mu        sync.Mutex
	fragments []string
	paused    []func()
}

// NewAggregator creates a turn aggregator shipping to deliverer.
func NewAggregator(logger *zap.Logger, cfg *config.Config, deliverer Deliverer, m *metrics.Metrics) Aggregator {
	return &aggregator{
		logger:     logger,
		cfg:        cfg.Turn,
		sampleRate: cfg.Playback.SampleRate,
		deliverer:  deliverer,
		metrics:    m,
		now:        time.Now,
	}
}

func (a *aggregator) AddAudio(mimeType, data string) {
	if !strings.HasPrefix(mimeType, a.cfg.AudioMIMEPrefix) {
		a.logger.Debug("Ignoring non-PCM audio fragment", zap.String("mime_type", mimeType))
		return
	}
	if data == "" {
		return
	}
	a.mu.Lock()
	a.fragments = append(a.fragments, data)
	a.mu.Unlock()
}

func (a *aggregator) CompleteTurn(ctx context.Context) error {
	a.mu.Lock()
	encoded := strings.Join(a.fragments, "")
	a.fragments = nil
	a.mu.Unlock()

	if encoded == "" {
		return nil
	}

	// Fragments may each carry their own padding, so the concatenated
	// text is decoded as one unpadded stream.
	pcm, err := base64.RawStdEncoding.DecodeString(strings.ReplaceAll(encoded, "=", ""))
	if err != nil {
		return fmt.Errorf("failed to decode turn audio: %w", err)
	}

	wav, err := audio.EncodeWAV(pcm, a.sampleRate, audio.Channels, audio.BitsPerSample)
	if err != nil {
		return fmt.Errorf("failed to encode turn WAV: %w", err)
	}

	seconds, err := audio.WAVDuration(wav)
	if err != nil {
		return fmt.Errorf("failed to measure turn WAV: %w", err)
	}

	filename := fmt.Sprintf("%s_%d.wav", a.cfg.FilePrefix, a.now().UnixMilli())
	a.logger.Info("Shipping completed turn",
		zap.String("filename", filename),
		zap.Int("pcm_bytes", len(pcm)),
		zap.Float64("seconds", seconds))

	if err := a.deliverer.Upload(ctx, filename, wav); err != nil {
		return fmt.Errorf("failed to upload turn %s: %w", filename, err)
	}
	if err := a.deliverer.Play(ctx, filename); err != nil {
		return fmt.Errorf("failed to start playback of turn %s: %w", filename, err)
	}

	a.metrics.TurnsCompleted.Inc()
	a.metrics.TurnBytes.Observe(float64(len(pcm)))

	a.mu.Lock()
	handlers := append([]func(){}, a.paused...)
	a.mu.Unlock()
	for _, h := range handlers {
		h()
	}
	return nil
}

func (a *aggregator) OnPlaybackPaused(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = append(a.paused, fn)
}

func (a *aggregator) Interrupt(ctx context.Context) error {
	if !a.cfg.ShouldDiscardOnInterrupt() {
		return a.CompleteTurn(ctx)
	}

	a.mu.Lock()
	discarded := len(a.fragments)
	a.fragments = nil
	a.mu.Unlock()

	if discarded > 0 {
		a.logger.Info("Discarded interrupted turn", zap.Int("fragments", discarded))
		a.metrics.TurnsDiscarded.Inc()
	}
	return nil
}
