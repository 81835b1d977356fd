package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"clearstream/models"
)

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"
	// w500 is plenty for poster cards; "original" wastes memory.
	tmdbPosterSize = "w500"
)

type tmdbClient struct {
	apiKey   string
	language string
	httpc    *http.Client

	// Rate limiting
	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func newTMDBClient(apiKey, language string, httpc *http.Client) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &tmdbClient{
		apiKey:      strings.TrimSpace(apiKey),
		language:    language,
		httpc:       httpc,
		minInterval: 20 * time.Millisecond, // TMDB has generous rate limits
	}
}

// doGET performs an HTTP GET with rate limiting and bounded retries on
// transient failures. 4xx responses other than 429 fail immediately.
func (c *tmdbClient) doGET(ctx context.Context, endpoint string, v any) error {
	return retry.Do(
		func() error {
			c.throttleMu.Lock()
			if since := time.Since(c.lastRequest); since < c.minInterval {
				time.Sleep(c.minInterval - since)
			}
			c.lastRequest = time.Now()
			c.throttleMu.Unlock()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return fmt.Errorf("tmdb request failed: %s", resp.Status)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("tmdb request failed: %s", resp.Status))
			}

			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return retry.Unrecoverable(err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

func (c *tmdbClient) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	return tmdbBaseURL + path + "?" + params.Encode()
}

type tmdbMovie struct {
	ID               int64   `json:"id"`
	IMDBID           string  `json:"imdb_id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Tagline          string  `json:"tagline"`
	Overview         string  `json:"overview"`
	OriginalLanguage string  `json:"original_language"`
	Runtime          int     `json:"runtime"`
	Budget           int64   `json:"budget"`
	Revenue          int64   `json:"revenue"`
	Popularity       float64 `json:"popularity"`
	ReleaseDate      string  `json:"release_date"`
	PosterPath       string  `json:"poster_path"`
	Genres           []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

// MovieInfo fetches descriptive metadata for a movie by TMDB id.
func (c *tmdbClient) MovieInfo(ctx context.Context, tmdbID int64) (models.MovieInfo, error) {
	if c.apiKey == "" {
		return models.MovieInfo{}, fmt.Errorf("tmdb: no api key configured")
	}

	var raw tmdbMovie
	ep := c.endpoint("/movie/"+strconv.FormatInt(tmdbID, 10), nil)
	if err := c.doGET(ctx, ep, &raw); err != nil {
		return models.MovieInfo{}, fmt.Errorf("tmdb movie %d: %w", tmdbID, err)
	}

	info := models.MovieInfo{
		TMDBID:           raw.ID,
		IMDBID:           raw.IMDBID,
		Name:             raw.Title,
		OriginalName:     raw.OriginalTitle,
		Tagline:          raw.Tagline,
		Overview:         raw.Overview,
		OriginalLanguage: raw.OriginalLanguage,
		Runtime:          raw.Runtime,
		Budget:           raw.Budget,
		Revenue:          raw.Revenue,
		Popularity:       raw.Popularity,
		ReleaseDate:      raw.ReleaseDate,
	}
	for _, g := range raw.Genres {
		info.Genres = append(info.Genres, g.Name)
	}
	if raw.PosterPath != "" {
		info.PosterURL = tmdbImageBaseURL + "/" + tmdbPosterSize + raw.PosterPath
	}
	return info, nil
}

// MoviePosterURL returns the poster image URL for a movie, or "" when TMDB
// has none.
func (c *tmdbClient) MoviePosterURL(ctx context.Context, tmdbID int64) (string, error) {
	info, err := c.MovieInfo(ctx, tmdbID)
	if err != nil {
		return "", err
	}
	return info.PosterURL, nil
}
