package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// statusRecorder remembers the status and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// routeInfo returns the matched chi pattern and the {id} parameter. It is only
// complete after the router has served the request.
func routeInfo(r *http.Request) (pattern, documentID string) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path, ""
	}
	pattern = rctx.RoutePattern()
	if pattern == "" {
		pattern = r.URL.Path
	}
	return pattern, rctx.URLParam("id")
}
