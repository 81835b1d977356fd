package cleaner

import (
	"context"
	"fmt"
	"log"

	"clearstream/models"
	"clearstream/services/queue"
)

// MovieStore is the slice of the persistence layer the cleaner needs.
type MovieStore interface {
	ListWithFileCounts(ctx context.Context) ([]models.Movie, error)
	Delete(ctx context.Context, id int64) error
}

// Cleaner prunes movie records that no longer have any linked files.
type Cleaner struct {
	movies MovieStore
}

func New(movies MovieStore) *Cleaner {
	return &Cleaner{movies: movies}
}

// RegisterJobs exposes the cleanup as a queue job so it can be enqueued
// fire-and-forget from anywhere.
func (c *Cleaner) RegisterJobs(q *queue.Queue) {
	q.Register("removeFilelessMovies", func(ctx context.Context, _ any) error {
		return c.RemoveFilelessMovies(ctx)
	})
}

// RemoveFilelessMovies deletes every movie with zero linked files. Per-row
// failures are logged and skipped so one bad record does not abort the
// sweep.
func (c *Cleaner) RemoveFilelessMovies(ctx context.Context) error {
	movies, err := c.movies.ListWithFileCounts(ctx)
	if err != nil {
		return fmt.Errorf("list movies: %w", err)
	}

	removed := 0
	for _, m := range movies {
		if m.FileCount > 0 {
			continue
		}
		if err := c.movies.Delete(ctx, m.ID); err != nil {
			log.Printf("[cleaner] failed to remove %q: %v", m.Name, err)
			continue
		}
		log.Printf("[cleaner] removed fileless movie %q", m.Name)
		removed++
	}

	if removed > 0 {
		log.Printf("[cleaner] removed %d movie(s) with no linked files", removed)
	}
	return nil
}
