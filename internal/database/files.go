package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clearstream/models"
)

// FileRepository reads media file records. The streaming engine consumes
// these through the narrow FindByID contract and never writes them.
type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

// FindByID returns the file record with its stream descriptors in stored
// order. Missing ids yield ErrNotFound.
func (r *FileRepository) FindByID(ctx context.Context, id int64) (models.MediaFile, error) {
	var file models.MediaFile
	err := r.db.QueryRowContext(ctx,
		`SELECT id, path, size, extension, duration FROM files WHERE id = ?`, id,
	).Scan(&file.ID, &file.Path, &file.Size, &file.Extension, &file.Duration)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MediaFile{}, fmt.Errorf("file %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.MediaFile{}, fmt.Errorf("find file %d: %w", id, err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT idx, kind, language, codec FROM streams WHERE file_id = ? ORDER BY position`, id)
	if err != nil {
		return models.MediaFile{}, fmt.Errorf("load streams for file %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.StreamDescriptor
		if err := rows.Scan(&s.Index, &s.Kind, &s.Language, &s.Codec); err != nil {
			return models.MediaFile{}, fmt.Errorf("scan stream for file %d: %w", id, err)
		}
		file.Streams = append(file.Streams, s)
	}
	if err := rows.Err(); err != nil {
		return models.MediaFile{}, err
	}

	return file, nil
}

// Insert stores a file and its stream descriptors. Used by the importer and
// by tests; returns the new id.
func (r *FileRepository) Insert(ctx context.Context, file models.MediaFile) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO files (path, size, extension, duration) VALUES (?, ?, ?, ?)`,
		file.Path, file.Size, file.Extension, file.Duration)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for pos, s := range file.Streams {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO streams (file_id, position, idx, kind, language, codec) VALUES (?, ?, ?, ?, ?, ?)`,
			id, pos, s.Index, s.Kind, s.Language, s.Codec); err != nil {
			return 0, fmt.Errorf("insert stream: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}
