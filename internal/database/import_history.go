package database

import (
	"database/sql"
	"fmt"
	"time"

	"scoredeck/models"
)

// ImportHistoryEntry records one settled CSV upload, success or failure.
type ImportHistoryEntry struct {
	ID        string
	Filename  string
	PlayStyle models.PlayStyle
	Status    string
	Result    models.ImportResult
	Message   string
	CreatedAt time.Time
}

// ImportHistoryRepository persists and lists import attempts.
type ImportHistoryRepository struct {
	db *sql.DB
}

func NewImportHistoryRepository(db *sql.DB) *ImportHistoryRepository {
	return &ImportHistoryRepository{db: db}
}

// Record inserts one settled upload.
func (r *ImportHistoryRepository) Record(entry ImportHistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(`
		INSERT INTO import_history
			(id, filename, play_style, status, new_songs, new_charts, inserted_scores, updated_scores, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Filename, string(entry.PlayStyle), entry.Status,
		entry.Result.NewSongs, entry.Result.NewCharts,
		entry.Result.InsertedScores, entry.Result.UpdatedScores,
		entry.Message, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record import history: %w", err)
	}
	return nil
}

// Recent returns the newest entries, newest first.
func (r *ImportHistoryRepository) Recent(limit int) ([]ImportHistoryEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, filename, play_style, status, new_songs, new_charts, inserted_scores, updated_scores, message, created_at
		FROM import_history
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list import history: %w", err)
	}
	defer rows.Close()

	var entries []ImportHistoryEntry
	for rows.Next() {
		var e ImportHistoryEntry
		var style string
		if err := rows.Scan(&e.ID, &e.Filename, &style, &e.Status,
			&e.Result.NewSongs, &e.Result.NewCharts,
			&e.Result.InsertedScores, &e.Result.UpdatedScores,
			&e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import history row: %w", err)
		}
		e.PlayStyle = models.PlayStyle(style)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
