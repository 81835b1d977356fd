package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clearstream/models"
)

type stubRetriever struct {
	id     string
	url    string
	err    error
	called bool
}

func (s *stubRetriever) name() string { return s.id }
func (s *stubRetriever) moviePoster(ctx context.Context, movie models.Movie) (string, error) {
	s.called = true
	return s.url, s.err
}

func TestAggregateArtworkFirstProviderWins(t *testing.T) {
	first := &stubRetriever{id: "first", url: "https://img.example/poster.jpg"}
	second := &stubRetriever{id: "second", url: "https://img.example/other.jpg"}
	agg := &aggregateArtworkRetriever{retrievers: []movieArtworkRetriever{first, second}}

	url, err := agg.MoviePosterURL(context.Background(), models.Movie{ID: 1, Name: "Example", TMDBID: 603})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/poster.jpg", url)
	assert.False(t, second.called, "later providers must not be consulted after a hit")
}

func TestAggregateArtworkFallsThroughFailures(t *testing.T) {
	first := &stubRetriever{id: "first", err: errors.New("upstream down")}
	second := &stubRetriever{id: "second", url: "https://img.example/fallback.jpg"}
	agg := &aggregateArtworkRetriever{retrievers: []movieArtworkRetriever{first, second}}

	url, err := agg.MoviePosterURL(context.Background(), models.Movie{ID: 1, Name: "Example", TMDBID: 603})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/fallback.jpg", url)
}

func TestAggregateArtworkAllProvidersFail(t *testing.T) {
	boom := errors.New("upstream down")
	agg := &aggregateArtworkRetriever{retrievers: []movieArtworkRetriever{
		&stubRetriever{id: "first", err: boom},
		&stubRetriever{id: "second", err: boom},
	}}

	_, err := agg.MoviePosterURL(context.Background(), models.Movie{ID: 1, Name: "Example", TMDBID: 603})
	assert.ErrorIs(t, err, boom)
}

func TestAggregateArtworkNoPosterAnywhere(t *testing.T) {
	agg := &aggregateArtworkRetriever{retrievers: []movieArtworkRetriever{
		&stubRetriever{id: "first"},
		&stubRetriever{id: "second"},
	}}

	url, err := agg.MoviePosterURL(context.Background(), models.Movie{ID: 1, Name: "Example"})
	require.NoError(t, err)
	assert.Empty(t, url, "no poster is not an error")
}
