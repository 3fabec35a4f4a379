package utils

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter constructs the base mux router with common routes. The pages
// authenticate with session cookies, so cross-origin access is not offered;
// only the unauthenticated health probe is open to any origin.
func NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	return r
}
