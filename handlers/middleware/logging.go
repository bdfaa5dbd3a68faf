// Package middleware contains request-level HTTP middleware.
package middleware

import (
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/sirupsen/logrus"
)

type responseRecorder struct {
	w      http.ResponseWriter
	status int
	size   int
	start  time.Time
}

func (rec *responseRecorder) Write(b []byte) (int, error) {
	size, err := rec.w.Write(b)
	rec.size += size
	return size, err
}

func (rec *responseRecorder) WriteHeader(s int) {
	rec.w.WriteHeader(s)
	rec.status = s
}

func record(w http.ResponseWriter) (*responseRecorder, http.ResponseWriter) {
	rec := &responseRecorder{
		w:      w,
		status: http.StatusOK, // default status
		start:  time.Now(),
	}

	wrapped := httpsnoop.Wrap(w, httpsnoop.Hooks{
		Write: func(httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return rec.Write
		},
		WriteHeader: func(httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return rec.WriteHeader
		},
	})

	return rec, wrapped
}

// LoggingHandler emits one structured log line per request.
func LoggingHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rec, rw := record(rw)

		h.ServeHTTP(rw, r)

		logrus.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.RequestURI,
			"remote":     r.RemoteAddr,
			"user-agent": r.UserAgent(),
			"status":     rec.status,
			"size":       rec.size,
			"duration":   float64(time.Since(rec.start).Microseconds()) / float64(1000),
		}).Info("HTTP request")
	})
}
