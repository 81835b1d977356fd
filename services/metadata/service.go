package metadata

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"clearstream/models"
	"clearstream/services/queue"
)

// Service aggregates the metadata providers. Each provider can fail
// independently; lookups are timeout-bounded so one slow upstream never
// stalls a caller.
type Service struct {
	tmdb     *tmdbClient
	tvdb     *tvdbClient
	artwork  *aggregateArtworkRetriever
	cacheDir string
}

// NewService wires the providers from configuration. Empty API keys leave
// the corresponding provider configured but failing fast.
func NewService(tmdbAPIKey, tvdbAPIKey, language, cacheDir string) *Service {
	tmdb := newTMDBClient(tmdbAPIKey, language, nil)
	tvdb := newTVDBClient(tvdbAPIKey, nil)
	return &Service{
		tmdb:     tmdb,
		tvdb:     tvdb,
		artwork:  newAggregateArtworkRetriever(tmdb, tvdb),
		cacheDir: cacheDir,
	}
}

// MovieInfo retrieves descriptive metadata for a movie record.
func (s *Service) MovieInfo(ctx context.Context, tmdbID int64) (models.MovieInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.tmdb.MovieInfo(ctx, tmdbID)
}

// RegisterJobs makes the artwork download available to the background
// queue. Payload is the movie record to fetch a poster for.
func (s *Service) RegisterJobs(q *queue.Queue) {
	q.Register("downloadMoviePoster", func(ctx context.Context, payload any) error {
		movie, ok := payload.(models.Movie)
		if !ok {
			return fmt.Errorf("downloadMoviePoster: unexpected payload %T", payload)
		}
		return s.DownloadMoviePoster(ctx, movie)
	})
}

// DownloadMoviePoster resolves a poster through the aggregate retriever and
// stores it in the artwork cache.
func (s *Service) DownloadMoviePoster(ctx context.Context, movie models.Movie) error {
	url, err := s.artwork.MoviePosterURL(ctx, movie)
	if err != nil {
		return fmt.Errorf("poster for %q: %w", movie.Name, err)
	}
	if url == "" {
		log.Printf("[metadata] no poster available for %q", movie.Name)
		return nil
	}

	dest := s.MoviePosterPath(movie.ID)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch poster for %q: %w", movie.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch poster for %q: %s", movie.Name, resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}

	log.Printf("[metadata] poster for %q downloaded", movie.Name)
	return nil
}

// MoviePosterPath is where a movie's cached poster lives.
func (s *Service) MoviePosterPath(movieID int64) string {
	return filepath.Join(s.cacheDir, "artwork", "movies", strconv.FormatInt(movieID, 10)+".jpg")
}
