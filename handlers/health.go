package handlers

import (
	"net/http"
)

func HandleHealthReady(rw http.ResponseWriter, r *http.Request) {
	rw.WriteHeader(http.StatusOK)
}

// Liveness reports service health. The probe function checks whatever
// the caller considers vital, typically database connectivity.
func Liveness(probe func() error) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if err := probe(); err != nil {
			handleError(rw, err)
			return
		}
		rw.WriteHeader(http.StatusOK)
	})
}
