package webserver

import (
	"net/http"
	"strings"
)

// apiRedirectRouter is an http middleware. It accepts an http.Handler and
// returns a new http.Handler. It adds the current api version to calls
// without one (/api/streams becomes /api/v1.0/streams), which avoids a
// redirect and a second HTTP call.
func (web *WebServer) apiRedirectRouter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {

		if strings.HasPrefix(req.URL.Path, "/api/") && !web.apiMatch.MatchString(req.URL.Path) {
			req.URL.Path = strings.Replace(req.URL.Path, "api", "api/v"+web.apiVersion, 1)
		}
		next.ServeHTTP(w, req)
	})
}
