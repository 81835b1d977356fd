package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clearstream/handlers"
)

// corsMiddleware handles CORS for API routes.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// localhostOnlyMiddleware restricts access to localhost requests only.
func localhostOnlyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		for i := len(host) - 1; i >= 0; i-- {
			if host[i] == ':' {
				host = host[:i]
				break
			}
		}
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			http.Error(w, "only accessible from localhost", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// pinMiddleware guards management routes with the configured PIN.
func pinMiddleware(getPIN func() string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pin := r.Header.Get("X-API-PIN")
		if pin == "" {
			pin = r.URL.Query().Get("pin")
		}
		if expected := getPIN(); expected == "" || pin != expected {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Register mounts the streaming, metadata, and operational endpoints onto
// the provided router.
func Register(
	r *mux.Router,
	videoHandler *handlers.VideoHandler,
	hlsHandler *handlers.HLSHandler,
	metadataHandler *handlers.MetadataHandler,
	getPIN func() string,
) {
	// Streaming surface. No auth: playback clients pass opaque URLs to
	// native players that cannot attach headers.
	r.HandleFunc("/stream/{id}", videoHandler.StreamFile).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/stream/{id}/{seek}", videoHandler.StreamSeek).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/HLS/{id}/playlist", hlsHandler.ServePlaylist).Methods(http.MethodGet)
	r.HandleFunc("/HLS/{id}/segment/{segment}", hlsHandler.ServeSegment).Methods(http.MethodGet, http.MethodHead)

	// Management surface.
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)
	api.Handle("/metadata/movie/{tmdbID}",
		pinMiddleware(getPIN, http.HandlerFunc(metadataHandler.GetMovie))).Methods(http.MethodGet, http.MethodOptions)
	api.Handle("/maintenance/clean",
		pinMiddleware(getPIN, http.HandlerFunc(metadataHandler.CleanMovies))).Methods(http.MethodPost, http.MethodOptions)

	// Operational surface.
	r.Handle("/metrics", localhostOnlyMiddleware(promhttp.Handler())).Methods(http.MethodGet)
}
