package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dh1tw/streamMixer/audio"
	"github.com/dh1tw/streamMixer/events"
	"github.com/dh1tw/streamMixer/internal/audiotest"
	"github.com/dh1tw/streamMixer/mixer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type device struct{}

func (device) Open(want audio.Spec, f audio.Filler) (audio.Spec, error) { return want, nil }
func (device) Start() error                                           { return nil }
func (device) Close() error                                           { return nil }

type fixture struct {
	web *WebServer
	m   *mixer.Mixer
	bus *events.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := events.NewBus(64)
	reg := prometheus.NewRegistry()
	metrics, err := mixer.NewMetrics(reg)
	require.NoError(t, err)

	m := mixer.New(mixer.EventBus(bus), mixer.WithMetrics(metrics))
	require.NoError(t, m.Start(device{}, audio.Spec{Rate: 44100, Format: audio.FormatS16LSB, Channels: 2, FrameSize: 256}))

	web, err := NewWebServer(Mixer(m), Events(bus), Gatherer(reg), HistorySize(3))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		web.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		m.Close()
		bus.Close()
	})
	return &fixture{web: web, m: m, bus: bus}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.web.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewWebServerNeedsMixer(t *testing.T) {
	_, err := NewWebServer()
	assert.Error(t, err)
}

func TestStreamsHdlr(t *testing.T) {
	f := newFixture(t)
	s := f.m.NewStream("jingle", audiotest.NewConstantDecoder(44100, 2, 22050, 0.1), nil, nil)
	require.NoError(t, s.Play(0, 0))
	s.SetVolume(0.5)
	s.Mute()

	for _, path := range []string{"/api/v1.0/streams", "/api/streams"} {
		rec := f.get(t, path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

		var states []StreamState
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &states))
		require.Len(t, states, 1)
		assert.Equal(t, StreamState{
			Name:     "jingle",
			Playing:  true,
			Muted:    true,
			Volume:   0.5,
			Duration: 0.5,
		}, states[0])
	}
}

func TestSpecHdlr(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/api/spec")
	require.Equal(t, http.StatusOK, rec.Code)

	var spec OutputSpec
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spec))
	assert.Equal(t, OutputSpec{Running: true, Rate: 44100, Format: "s16le", Channels: 2, FrameSize: 256}, spec)

	f.m.Close()
	rec = f.get(t, "/api/spec")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spec))
	assert.False(t, spec.Running)
}

func TestEventsHistory(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"a", "b", "c", "d"} {
		f.bus.Publish(events.Event{Type: events.StreamStarted, Stream: name, Time: time.Now()})
	}

	var evs []events.Event
	require.Eventually(t, func() bool {
		rec := f.get(t, "/api/v1.0/events")
		evs = nil
		if err := json.Unmarshal(rec.Body.Bytes(), &evs); err != nil {
			return false
		}
		return len(evs) == 3 && evs[2].Stream == "d"
	}, 2*time.Second, 5*time.Millisecond)

	// only the most recent events are kept
	assert.Equal(t, "b", evs[0].Stream)
}

func TestEventsPublishedBeforeRun(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()
	m := mixer.New(mixer.EventBus(bus))

	web, err := NewWebServer(Mixer(m), Events(bus))
	require.NoError(t, err)

	// streams usually start before the webserver is served
	bus.Publish(events.Event{Type: events.StreamStarted, Stream: "intro", Time: time.Now()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		web.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	require.Eventually(t, func() bool {
		evs := web.recentEvents()
		return len(evs) == 1 && evs[0].Stream == "intro"
	}, time.Second, time.Millisecond)
}

func TestMetricsRoute(t *testing.T) {
	f := newFixture(t)
	f.m.FillFloat32(make([]float32, 512))

	rec := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "streammixer_callbacks_total 1")
}

func TestWebSocketFeed(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.web.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool { return f.web.numClients.Load() == 1 },
		2*time.Second, 5*time.Millisecond)

	s := f.m.NewStream("beep", audiotest.NewConstantDecoder(44100, 2, 100, 0.1), nil, nil)
	require.NoError(t, s.Play(1, 0))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev events.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, events.StreamStarted, ev.Type)
	assert.Equal(t, "beep", ev.Stream)

	// the hub notices the disconnect
	conn.Close()
	require.Eventually(t, func() bool { return f.web.numClients.Load() == 0 },
		2*time.Second, 5*time.Millisecond)
}
