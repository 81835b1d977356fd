package database

import (
	"context"
	"database/sql"
	"fmt"

	"clearstream/models"
)

// MovieRepository reads and prunes movie records for the cleaner.
type MovieRepository struct {
	db *sql.DB
}

func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// ListWithFileCounts returns every movie together with how many files are
// linked to it.
func (r *MovieRepository) ListWithFileCounts(ctx context.Context) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.name, m.tmdb_id, COUNT(mf.file_id)
		FROM movies m
		LEFT JOIN movie_files mf ON mf.movie_id = m.id
		GROUP BY m.id
		ORDER BY m.id`)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	var movies []models.Movie
	for rows.Next() {
		var m models.Movie
		if err := rows.Scan(&m.ID, &m.Name, &m.TMDBID, &m.FileCount); err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// Delete removes a movie record.
func (r *MovieRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete movie %d: %w", id, err)
	}
	return nil
}

// Insert stores a movie and optional file links. Used by tests and the
// importer.
func (r *MovieRepository) Insert(ctx context.Context, name string, tmdbID int64, fileIDs ...int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (name, tmdb_id) VALUES (?, ?)`, name, tmdbID)
	if err != nil {
		return 0, fmt.Errorf("insert movie: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, fid := range fileIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO movie_files (movie_id, file_id) VALUES (?, ?)`, id, fid); err != nil {
			return 0, fmt.Errorf("link movie file: %w", err)
		}
	}
	return id, nil
}
