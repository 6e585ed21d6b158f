package webserver

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (web *WebServer) routes() {
	web.router.HandleFunc("/api/v1.0/streams", web.streamsHdlr).Methods("GET")
	web.router.HandleFunc("/api/v1.0/spec", web.specHdlr).Methods("GET")
	web.router.HandleFunc("/api/v1.0/events", web.eventsHdlr).Methods("GET")
	web.router.HandleFunc("/ws", web.webSocketHdlr)
	if web.options.Gatherer != nil {
		web.router.Handle("/metrics", promhttp.HandlerFor(web.options.Gatherer, promhttp.HandlerOpts{}))
	}
}
