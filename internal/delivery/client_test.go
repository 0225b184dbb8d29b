package delivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/voxstream/voxstream/internal/config"
	"github.com/voxstream/voxstream/internal/metrics"
)

// fakeDevice is an in-memory playback device behind httptest.
type fakeDevice struct {
	mu      sync.Mutex
	files   map[string][]byte
	played  []string
	deleted []string
	volume  float64
	status  int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{files: make(map[string][]byte)}
}

func (d *fakeDevice) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /files/{name}", func(w http.ResponseWriter, r *http.Request) {
		if d.fail(w) {
			return
		}
		body, _ := io.ReadAll(r.Body)
		d.mu.Lock()
		d.files[r.PathValue("name")] = body
		d.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("DELETE /files/{name}", func(w http.ResponseWriter, r *http.Request) {
		if d.fail(w) {
			return
		}
		d.mu.Lock()
		delete(d.files, r.PathValue("name"))
		d.deleted = append(d.deleted, r.PathValue("name"))
		d.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /play", func(w http.ResponseWriter, r *http.Request) {
		if d.fail(w) {
			return
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		d.mu.Lock()
		d.played = append(d.played, req["filename"])
		d.mu.Unlock()
	})
	mux.HandleFunc("POST /volume", func(w http.ResponseWriter, r *http.Request) {
		if d.fail(w) {
			return
		}
		var req map[string]float64
		_ = json.NewDecoder(r.Body).Decode(&req)
		d.mu.Lock()
		d.volume = req["volume"]
		d.mu.Unlock()
	})
	return mux
}

func (d *fakeDevice) fail(w http.ResponseWriter) bool {
	d.mu.Lock()
	status := d.status
	d.mu.Unlock()
	if status != 0 {
		http.Error(w, "device error", status)
		return true
	}
	return false
}

func (d *fakeDevice) deletedFiles() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.deleted...)
}

func newTestClient(t *testing.T, baseURL string, maxFiles int) Client {
	t.Helper()
	cfg := &config.Config{
		Delivery: config.DeliveryConfig{
			BaseURL:          baseURL,
			RequestTimeoutMs: 2_000,
			MaxStoredFiles:   maxFiles,
		},
	}
	c, err := NewClient(zaptest.NewLogger(t), cfg, metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)
	return c
}

func TestClientUploadAndPlay(t *testing.T) {
	device := newFakeDevice()
	server := httptest.NewServer(device.handler())
	defer server.Close()

	c := newTestClient(t, server.URL, 8)
	ctx := context.Background()

	wav := []byte("RIFF....WAVE")
	require.NoError(t, c.Upload(ctx, "turn_1.wav", wav))
	require.NoError(t, c.Play(ctx, "turn_1.wav"))

	device.mu.Lock()
	defer device.mu.Unlock()
	assert.Equal(t, wav, device.files["turn_1.wav"])
	assert.Equal(t, []string{"turn_1.wav"}, device.played)
}

func TestClientEvictsOldestWhenFull(t *testing.T) {
	device := newFakeDevice()
	server := httptest.NewServer(device.handler())
	defer server.Close()

	c := newTestClient(t, server.URL, 2)
	ctx := context.Background()

	require.NoError(t, c.Upload(ctx, "turn_1.wav", []byte("a")))
	require.NoError(t, c.Upload(ctx, "turn_2.wav", []byte("b")))
	require.NoError(t, c.Upload(ctx, "turn_3.wav", []byte("c")))

	// The eviction delete runs asynchronously.
	require.Eventually(t, func() bool {
		files := device.deletedFiles()
		return len(files) == 1 && files[0] == "turn_1.wav"
	}, time.Second, 10*time.Millisecond)
}

func TestClientSetVolume(t *testing.T) {
	device := newFakeDevice()
	server := httptest.NewServer(device.handler())
	defer server.Close()

	c := newTestClient(t, server.URL, 8)
	require.NoError(t, c.SetVolume(context.Background(), 0.4))

	device.mu.Lock()
	defer device.mu.Unlock()
	assert.Equal(t, 0.4, device.volume)
}

func TestClientSetVolumeRange(t *testing.T) {
	c := newTestClient(t, "http://localhost:1", 8)

	tests := map[string]float64{
		"negative":  -0.1,
		"above one": 1.5,
	}
	for name, volume := range tests {
		t.Run(name, func(t *testing.T) {
			err := c.SetVolume(context.Background(), volume)
			assert.ErrorIs(t, err, ErrVolumeOutOfRange)
		})
	}
}

func TestClientDeviceErrorSurfaces(t *testing.T) {
	device := newFakeDevice()
	device.status = http.StatusInsufficientStorage
	server := httptest.NewServer(device.handler())
	defer server.Close()

	c := newTestClient(t, server.URL, 8)
	err := c.Upload(context.Background(), "turn_1.wav", []byte("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "507")
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	cfg := &config.Config{}
	_, err := NewClient(zaptest.NewLogger(t), cfg, metrics.New(prometheus.NewRegistry()))
	require.Error(t, err)
}
