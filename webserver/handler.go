package webserver

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// StreamState is the JSON representation of a registered stream.
type StreamState struct {
	Name     string  `json:"name"`
	Playing  bool    `json:"playing"`
	Paused   bool    `json:"paused"`
	Muted    bool    `json:"muted"`
	Volume   float32 `json:"volume"`
	Pan      float32 `json:"pan"`
	Duration float64 `json:"duration"` // seconds, 0 if unknown
}

// OutputSpec is the JSON representation of the negotiated output format.
type OutputSpec struct {
	Running   bool   `json:"running"`
	Rate      int    `json:"rate,omitempty"`
	Format    string `json:"format,omitempty"`
	Channels  int    `json:"channels,omitempty"`
	FrameSize int    `json:"frameSize,omitempty"`
}

func (web *WebServer) webSocketHdlr(w http.ResponseWriter, req *http.Request) {

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Debug().Err(err).Msgf("unable to open ws for %v", req.RemoteAddr)
		return
	}

	c := &wsClient{
		ws:     conn,
		remote: req.RemoteAddr,
		send:   make(chan []byte, 16),
		remove: web.removeClient,
	}

	select {
	case web.addWsClient <- c:
	case <-web.hubDone:
		conn.Close()
		return
	}

	go c.write()
	go c.read()
}

func (web *WebServer) streamsHdlr(w http.ResponseWriter, req *http.Request) {
	streams := web.options.Mixer.Streams()
	states := make([]StreamState, 0, len(streams))
	for _, s := range streams {
		states = append(states, StreamState{
			Name:     s.Name(),
			Playing:  s.IsPlaying(),
			Paused:   s.IsPaused(),
			Muted:    s.IsMuted(),
			Volume:   s.Volume(),
			Pan:      s.StereoPosition(),
			Duration: s.Duration().Seconds(),
		})
	}
	writeJSON(w, states)
}

func (web *WebServer) specHdlr(w http.ResponseWriter, req *http.Request) {
	spec := web.options.Mixer.Spec()
	out := OutputSpec{Running: spec.Rate > 0}
	if out.Running {
		out.Rate = spec.Rate
		out.Format = spec.Format.String()
		out.Channels = spec.Channels
		out.FrameSize = spec.FrameSize
	}
	writeJSON(w, out)
}

func (web *WebServer) eventsHdlr(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, web.recentEvents())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	data, err := json.Marshal(v)
	if err != nil {
		log.Debug().Err(err).Msg("webserver: unable to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("500 - unable to encode response"))
		return
	}
	w.Write(data)
}
