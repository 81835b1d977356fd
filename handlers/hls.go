package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"clearstream/internal/database"
	"clearstream/models"
	"clearstream/services/streaming"
)

// HLSHandler serves the segmented adaptive delivery surface: a VOD playlist
// enumerating every segment of a file, and individually transcoded
// segments.
type HLSHandler struct {
	files FileFinder
	cfg   ConfigProvider
}

func NewHLSHandler(files FileFinder, cfg ConfigProvider) *HLSHandler {
	return &HLSHandler{files: files, cfg: cfg}
}

func (h *HLSHandler) resolveFile(w http.ResponseWriter, r *http.Request) (models.MediaFile, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid file id", http.StatusBadRequest)
		return models.MediaFile{}, false
	}

	file, err := h.files.FindByID(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "file not found", http.StatusNotFound)
		return models.MediaFile{}, false
	}
	if err != nil {
		log.Printf("[hls] file lookup failed for %d: %v", id, err)
		http.Error(w, "file lookup failed", http.StatusInternalServerError)
		return models.MediaFile{}, false
	}
	return file, true
}

func (h *HLSHandler) segmentLength() float64 {
	settings, err := h.cfg.Load()
	if err != nil || settings.Streaming.SegmentLength <= 0 {
		return 10
	}
	return settings.Streaming.SegmentLength
}

// ServePlaylist handles GET /HLS/{id}/playlist.
func (h *HLSHandler) ServePlaylist(w http.ResponseWriter, r *http.Request) {
	file, ok := h.resolveFile(w, r)
	if !ok {
		return
	}

	playlist := streaming.RenderPlaylist(
		strconv.FormatInt(file.ID, 10),
		file.Duration,
		h.segmentLength(),
	)

	w.Header().Set("Content-Type", "application/x-mpegURL")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(playlist)); err != nil {
		log.Printf("[hls] playlist write failed for file %d: %v", file.ID, err)
	}
}

// ServeSegment handles GET /HLS/{id}/segment/{segment}: one segment window
// transcoded on demand.
func (h *HLSHandler) ServeSegment(w http.ResponseWriter, r *http.Request) {
	file, ok := h.resolveFile(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(mux.Vars(r)["segment"])
	if err != nil || index < 0 {
		http.Error(w, "invalid segment index", http.StatusBadRequest)
		return
	}

	settings, err := h.cfg.Load()
	if err != nil {
		http.Error(w, "settings unavailable", http.StatusInternalServerError)
		return
	}

	window := streaming.SegmentWindow(index, file.Duration, h.segmentLength())

	w.Header().Set("Content-Type", "video/MP2T")
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}

	session := streaming.NewRecodeSession(file, RecodeConfigFromSettings(settings), "mpegts", window.Start, window.Duration)
	if err := session.AddDestination(newResponseDestination(w)); err != nil {
		log.Printf("[hls] session %s: %v", session.ID(), err)
		return
	}
	if err := session.Start(r.Context()); err != nil {
		return
	}

	if err := session.Wait(); err != nil && !errors.Is(err, streaming.ErrCanceled) {
		log.Printf("[hls] session %s ended with error: %v", session.ID(), err)
	}
}
