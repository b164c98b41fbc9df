package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"chatloop/internal/httputil"
)

// Recovery middleware recovers from panics. A 500 problem response is only
// written when the handler had not started its response; a panic mid-stream
// just ends the stream.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tw := &trackingWriter{ResponseWriter: w}

			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.Error("panic recovered",
						"error", err,
						"path", r.URL.Path,
						"method", r.Method,
						"response_started", tw.started,
						"stack", string(debug.Stack()),
					)

					if !tw.started {
						httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
					}
				}
			}()

			next.ServeHTTP(tw, r)
		})
	}
}

// trackingWriter records whether the response has started
type trackingWriter struct {
	http.ResponseWriter
	started bool
}

func (t *trackingWriter) WriteHeader(status int) {
	t.started = true
	t.ResponseWriter.WriteHeader(status)
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	t.started = true
	return t.ResponseWriter.Write(p)
}

// Unwrap exposes the underlying writer to http.ResponseController (Flush)
func (t *trackingWriter) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}
