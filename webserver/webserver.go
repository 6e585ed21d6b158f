// Package webserver serves the state of a mixer over HTTP: a small JSON
// API, a websocket feed of stream events and prometheus metrics.
package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	ringBuffer "github.com/dh1tw/golang-ring"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dh1tw/streamMixer/events"
)

var upgrader = websocket.Upgrader{}

// WebServer is the status server. The hub goroutine started by Serve owns
// the set of websocket clients.
type WebServer struct {
	options    Options
	router     *mux.Router
	apiVersion string
	apiMatch   *regexp.Regexp

	muHistory sync.Mutex
	history   ringBuffer.Ring

	evCh           chan interface{}
	addWsClient    chan *wsClient
	removeWsClient chan *wsClient
	hubDone        chan struct{}
	numClients     atomic.Int32
}

// NewWebServer returns a WebServer. It subscribes to the event bus right
// away so that events published before Serve or Run are recorded; Run
// has to be called to consume them.
func NewWebServer(opts ...Option) (*WebServer, error) {
	web := &WebServer{
		options: Options{
			Address:     "127.0.0.1:9090",
			HistorySize: 100,
		},
		router:         mux.NewRouter().StrictSlash(true),
		apiVersion:     "1.0",
		addWsClient:    make(chan *wsClient),
		removeWsClient: make(chan *wsClient),
		hubDone:        make(chan struct{}),
	}

	for _, option := range opts {
		option(&web.options)
	}

	if web.options.Mixer == nil {
		return nil, errors.New("webserver: no mixer")
	}
	if web.options.HistorySize <= 0 {
		web.options.HistorySize = 1
	}

	web.apiMatch = regexp.MustCompile(`api/v\d+\.\d+/`)
	web.history.SetCapacity(web.options.HistorySize)
	web.routes()

	if web.options.Events != nil {
		web.evCh = web.options.Events.Sub(events.All)
	}

	return web, nil
}

// Handler returns the http.Handler with all routes.
func (web *WebServer) Handler() http.Handler {
	return web.apiRedirectRouter(web.router)
}

// Serve listens on the configured address until ctx is canceled. The
// websocket hub runs for the same lifetime.
func (web *WebServer) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              web.options.Address,
		Handler:           web.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		web.Run(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("webserver listening on http://%s", web.options.Address)
		errCh <- srv.ListenAndServe()
	}()

	var err error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = srv.Shutdown(shutdownCtx)
		cancel()
		<-errCh
	case err = <-errCh:
	}
	<-hubDone

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Run records events into the history and forwards them to the websocket
// clients until ctx is canceled. It is started by Serve; users of Handler
// must run it themselves. Run must only be called once.
func (web *WebServer) Run(ctx context.Context) {
	defer close(web.hubDone)

	evCh := web.evCh

	clients := make(map[*wsClient]struct{})

	defer func() {
		for c := range clients {
			close(c.send)
		}
		if evCh != nil {
			go web.options.Events.Unsub(evCh)
			for range evCh {
			}
		}
	}()

	for {
		select {
		case msg, ok := <-evCh:
			if !ok {
				evCh = nil
				continue
			}
			ev, ok := msg.(events.Event)
			if !ok {
				continue
			}
			web.record(ev)
			data, err := json.Marshal(ev)
			if err != nil {
				log.Debug().Err(err).Msg("webserver: unable to marshal event")
				continue
			}
			for c := range clients {
				select {
				case c.send <- data:
				default:
					// slow client
				}
			}

		case c := <-web.addWsClient:
			log.Debug().Str("remote", c.remote).Msg("websocket connected")
			clients[c] = struct{}{}
			web.numClients.Store(int32(len(clients)))

		case c := <-web.removeWsClient:
			if _, ok := clients[c]; ok {
				log.Debug().Str("remote", c.remote).Msg("websocket disconnected")
				delete(clients, c)
				close(c.send)
				web.numClients.Store(int32(len(clients)))
			}

		case <-ctx.Done():
			return
		}
	}
}

func (web *WebServer) record(ev events.Event) {
	web.muHistory.Lock()
	defer web.muHistory.Unlock()
	web.history.Enqueue(ev)
}

// recentEvents returns the history, oldest first.
func (web *WebServer) recentEvents() []events.Event {
	web.muHistory.Lock()
	defer web.muHistory.Unlock()

	values := web.history.Values()
	evs := make([]events.Event, 0, len(values))
	for _, v := range values {
		if ev, ok := v.(events.Event); ok {
			evs = append(evs, ev)
		}
	}
	return evs
}

func (web *WebServer) removeClient(c *wsClient) {
	select {
	case web.removeWsClient <- c:
	case <-web.hubDone:
	}
}
