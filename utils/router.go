package utils

import "github.com/gorilla/mux"

// NewRouter constructs the shared router with the options every surface
// expects.
func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.SkipClean(true)
	return r
}
