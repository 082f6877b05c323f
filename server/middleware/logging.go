package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/fuisce/logger"
)

// DefaultSkipPaths are the probe endpoints RequestLogger does not log.
var DefaultSkipPaths = []string{"/health", "/version"}

// RequestLogger logs every finished request at a level chosen by its status:
// errors for 5xx, warnings for 4xx and debug otherwise. Requests for
// skipPaths, or DefaultSkipPaths when none are given, are not logged.
func RequestLogger(log *logger.Logger, skipPaths ...string) Middleware {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if len(skipPaths) == 0 {
		skipPaths = DefaultSkipPaths
	}
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			fields := map[string]interface{}{
				"method":             r.Method,
				"path":               r.URL.Path,
				"status":             rec.status,
				"bytes":              rec.written,
				logger.FieldDuration: time.Since(start).Milliseconds(),
			}
			if id := r.Header.Get(HeaderRequestID); id != "" {
				fields["request_id"] = id
			}

			switch {
			case rec.status >= http.StatusInternalServerError:
				log.Error("Request completed", fields)
			case rec.status >= http.StatusBadRequest:
				log.Warn("Request completed", fields)
			default:
				log.Debug("Request completed", fields)
			}
		})
	}
}

// recorder remembers the status and size of a response. It passes Flush and
// Unwrap through so streamed and HTTP/2 responses keep working.
type recorder struct {
	http.ResponseWriter
	status  int
	written int
	header  bool
}

func (r *recorder) WriteHeader(code int) {
	if !r.header {
		r.status = code
		r.header = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.header = true
	n, err := r.ResponseWriter.Write(b)
	r.written += n
	return n, err
}

func (r *recorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *recorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
