package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"clearstream/config"
	"clearstream/internal/database"
	"clearstream/models"
	"clearstream/services/streaming"
)

// FileFinder resolves media file records by id.
type FileFinder interface {
	FindByID(ctx context.Context, id int64) (models.MediaFile, error)
}

// ConfigProvider loads the current settings.
type ConfigProvider interface {
	Load() (config.Settings, error)
}

// JobPusher enqueues fire-and-forget background work.
type JobPusher interface {
	Push(name string, payload any)
}

// VideoHandler serves full/ranged file delivery and single-shot transcode
// streams.
type VideoHandler struct {
	files FileFinder
	fs    afero.Fs
	cfg   ConfigProvider
	jobs  JobPusher
}

func NewVideoHandler(files FileFinder, fs afero.Fs, cfg ConfigProvider, jobs JobPusher) *VideoHandler {
	return &VideoHandler{files: files, fs: fs, cfg: cfg, jobs: jobs}
}

// resolveFile loads the file record for the request, writing the error
// response itself when the lookup fails.
func (h *VideoHandler) resolveFile(w http.ResponseWriter, r *http.Request) (models.MediaFile, bool) {
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
		log.Printf("[video] file lookup failed for %d: %v", id, err)
		http.Error(w, "file lookup failed", http.StatusInternalServerError)
		return models.MediaFile{}, false
	}
	return file, true
}

// StreamFile handles GET /stream/{id}: direct passthrough with HTTP range
// support when the container already matches the delivery target, otherwise
// a fallthrough to the real-time recode path.
func (h *VideoHandler) StreamFile(w http.ResponseWriter, r *http.Request) {
	file, ok := h.resolveFile(w, r)
	if !ok {
		return
	}

	settings, err := h.cfg.Load()
	if err != nil {
		http.Error(w, "settings unavailable", http.StatusInternalServerError)
		return
	}

	target := settings.Streaming.TargetContainer
	if settings.Transcoding.RealTimeEnabled && !strings.EqualFold(file.Extension, target) {
		h.transcodeToResponse(w, r, file, settings, 0, 0, "mp4", "video/mp4")
		return
	}

	plan, err := streaming.PlanRange(r.Header.Get("Range"), file.Size)
	if err != nil {
		// Client error: never serve bytes from a window the client did
		// not validly ask for.
		http.Error(w, err.Error(), http.StatusRequestedRangeNotSatisfiable)
		return
	}

	w.Header().Set("Content-Type", streaming.ContainerMIME(h.fs, file.Path))
	plan.Apply(w.Header())
	w.WriteHeader(plan.Status)

	if r.Method == http.MethodHead {
		return
	}

	session := streaming.NewDirectSession(h.fs, file, &plan)
	if err := session.AddDestination(newResponseDestination(w)); err != nil {
		log.Printf("[video] session %s: %v", session.ID(), err)
		return
	}
	if err := session.Start(r.Context()); err != nil {
		// Headers are already out; the client sees truncation.
		return
	}

	h.pushPostProcessing(file)

	if err := session.Wait(); err != nil && !errors.Is(err, streaming.ErrCanceled) {
		log.Printf("[video] session %s ended with error: %v", session.ID(), err)
	}
}

// StreamSeek handles GET /stream/{id}/{seek}: a single-shot transcode
// starting at the given offset in seconds.
func (h *VideoHandler) StreamSeek(w http.ResponseWriter, r *http.Request) {
	file, ok := h.resolveFile(w, r)
	if !ok {
		return
	}

	seek, err := strconv.ParseFloat(mux.Vars(r)["seek"], 64)
	if err != nil || seek < 0 {
		http.Error(w, "invalid seek offset", http.StatusBadRequest)
		return
	}

	settings, err := h.cfg.Load()
	if err != nil {
		http.Error(w, "settings unavailable", http.StatusInternalServerError)
		return
	}

	h.transcodeToResponse(w, r, file, settings, seek, 0, "mp4", "video/mp4")
}

// transcodeToResponse runs a recode session piped straight into the
// response. duration of zero transcodes to the end of the file.
func (h *VideoHandler) transcodeToResponse(w http.ResponseWriter, r *http.Request, file models.MediaFile, settings config.Settings, offset, duration float64, format, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}

	session := streaming.NewRecodeSession(file, RecodeConfigFromSettings(settings), format, offset, duration)
	if err := session.AddDestination(newResponseDestination(w)); err != nil {
		log.Printf("[video] session %s: %v", session.ID(), err)
		return
	}
	if err := session.Start(r.Context()); err != nil {
		// Spawn failure after headers went out; nothing to send but EOF.
		return
	}

	h.pushPostProcessing(file)

	if err := session.Wait(); err != nil && !errors.Is(err, streaming.ErrCanceled) {
		log.Printf("[video] session %s ended with error: %v", session.ID(), err)
	}
}

// pushPostProcessing offloads derived-asset work; the queue owns it from
// here.
func (h *VideoHandler) pushPostProcessing(file models.MediaFile) {
	if h.jobs == nil {
		return
	}
	h.jobs.Push("deriveThumbnail", file.ID)
}

// RecodeConfigFromSettings maps the persisted transcoding policy onto a
// session config.
func RecodeConfigFromSettings(s config.Settings) streaming.RecodeConfig {
	return streaming.RecodeConfig{
		FFmpegPath:           s.Transcoding.FFmpegPath,
		VideoCodec:           s.Transcoding.VideoCodec,
		AudioCodec:           s.Transcoding.AudioCodec,
		TargetVideoCodecs:    s.Transcoding.TargetVideoCodecs,
		TargetAudioCodecs:    s.Transcoding.TargetAudioCodecs,
		PreferredLanguage:    s.Streaming.DefaultLanguage,
		HardwareAcceleration: s.Transcoding.HardwareAcceleration,
		HardwareAccelerator:  s.Transcoding.HardwareAccelerator,
	}
}

// responseDestination adapts the HTTP response into a streaming
// destination, flushing after every write so bytes reach the client while
// the transcoder is still running.
type responseDestination struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newResponseDestination(w http.ResponseWriter) *responseDestination {
	flusher, _ := w.(http.Flusher)
	return &responseDestination{w: w, flusher: flusher}
}

func (d *responseDestination) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	if err == nil && d.flusher != nil {
		d.flusher.Flush()
	}
	return n, err
}

func (d *responseDestination) Close() error {
	if d.flusher != nil {
		d.flusher.Flush()
	}
	return nil
}
