package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"clearstream/models"
)

// MovieInfoProvider is the slice of the metadata service this handler uses.
type MovieInfoProvider interface {
	MovieInfo(ctx context.Context, tmdbID int64) (models.MovieInfo, error)
}

// MetadataHandler exposes thin metadata retrieval endpoints.
type MetadataHandler struct {
	movies MovieInfoProvider
	jobs   JobPusher
}

func NewMetadataHandler(movies MovieInfoProvider, jobs JobPusher) *MetadataHandler {
	return &MetadataHandler{movies: movies, jobs: jobs}
}

// GetMovie handles GET /api/metadata/movie/{tmdbID}.
func (h *MetadataHandler) GetMovie(w http.ResponseWriter, r *http.Request) {
	tmdbID, err := strconv.ParseInt(mux.Vars(r)["tmdbID"], 10, 64)
	if err != nil {
		http.Error(w, "invalid tmdb id", http.StatusBadRequest)
		return
	}

	info, err := h.movies.MovieInfo(r.Context(), tmdbID)
	if err != nil {
		log.Printf("[metadata] movie lookup failed for %d: %v", tmdbID, err)
		http.Error(w, "metadata lookup failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		log.Printf("[metadata] encode failed: %v", err)
	}
}

// CleanMovies handles POST /api/maintenance/clean: enqueues the fileless
// movie sweep, fire-and-forget.
func (h *MetadataHandler) CleanMovies(w http.ResponseWriter, r *http.Request) {
	h.jobs.Push("removeFilelessMovies", nil)
	w.WriteHeader(http.StatusAccepted)
}
