package models

// Stream kinds as reported by the prober when a file was indexed.
const (
	StreamKindVideo = "video"
	StreamKindAudio = "audio"
	StreamKindOther = "other"
)

// StreamDescriptor identifies one elementary stream inside a container.
// Index is the container-level stream index, which is not necessarily dense.
type StreamDescriptor struct {
	Index    int    `json:"index"`
	Kind     string `json:"kind"`
	Language string `json:"language,omitempty"`
	Codec    string `json:"codec,omitempty"`
}

// MediaFile is a stored media file as known to the library. The streaming
// engine only reads these; ownership stays with the persistence layer.
type MediaFile struct {
	ID        int64              `json:"id"`
	Path      string             `json:"path"`
	Size      int64              `json:"size"`
	Extension string             `json:"extension"` // container extension without dot, e.g. "mkv"
	Duration  float64            `json:"duration"`  // seconds
	Streams   []StreamDescriptor `json:"streams,omitempty"`
}

// VideoCodec returns the codec of the first video stream, or "".
func (f MediaFile) VideoCodec() string {
	for _, s := range f.Streams {
		if s.Kind == StreamKindVideo {
			return s.Codec
		}
	}
	return ""
}

// AudioCodec returns the codec of the first audio stream, or "".
func (f MediaFile) AudioCodec() string {
	for _, s := range f.Streams {
		if s.Kind == StreamKindAudio {
			return s.Codec
		}
	}
	return ""
}

// Movie is the subset of the movie record the engine and cleaner care about.
type Movie struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	TMDBID    int64  `json:"tmdbId,omitempty"`
	FileCount int    `json:"fileCount"`
}

// MovieInfo is descriptive metadata returned by a metadata retriever.
type MovieInfo struct {
	TMDBID           int64    `json:"tmdbId"`
	IMDBID           string   `json:"imdbId,omitempty"`
	Name             string   `json:"name"`
	OriginalName     string   `json:"originalName,omitempty"`
	Tagline          string   `json:"tagline,omitempty"`
	Overview         string   `json:"overview,omitempty"`
	Genres           []string `json:"genres,omitempty"`
	OriginalLanguage string   `json:"originalLanguage,omitempty"`
	Runtime          int      `json:"runtime,omitempty"`
	Budget           int64    `json:"budget,omitempty"`
	Revenue          int64    `json:"revenue,omitempty"`
	Popularity       float64  `json:"popularity,omitempty"`
	ReleaseDate      string   `json:"releaseDate,omitempty"`
	PosterURL        string   `json:"posterUrl,omitempty"`
}
