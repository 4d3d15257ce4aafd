package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// BearerAuth rejects any request whose Authorization header does not carry
// the configured token. The comparison is constant-time; rejection happens
// before any reconciliation logic runs.
func BearerAuth(token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid or missing bearer token", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger is a chi request logger backed on logrus, adapted from the
// go-chi 'logging' example.
func RequestLogger() func(next http.Handler) http.Handler {
	return middleware.RequestLogger(&structuredLogger{})
}

type structuredLogger struct{}

func (l *structuredLogger) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &structuredLoggerEntry{method: r.Method, uri: r.RequestURI}
}

type structuredLoggerEntry struct {
	method string
	uri    string
}

func (e *structuredLoggerEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	logrus.Infof("%s %s %d (%s)", e.method, e.uri, status, elapsed)
}

func (e *structuredLoggerEntry) Panic(v interface{}, stack []byte) {
	logrus.Errorf("%s %s panic: %v\n%s", e.method, e.uri, v, string(stack))
}
