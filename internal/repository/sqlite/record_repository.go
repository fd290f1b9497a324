package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"itemcam/internal/dto"
	"itemcam/internal/model"
	"itemcam/internal/repository"
)

// RecordRepository implements repository.RecordRepository for SQLite.
type RecordRepository struct {
	db *DB
}

// NewRecordRepository creates a new SQLite record repository.
func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Insert adds a new recognition record to the database.
func (r *RecordRepository) Insert(ctx context.Context, rec *model.Record) error {
	r.db.Lock()
	defer r.db.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	result, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO recognition_records (recognition_result, item_image_url, face_image_url, created_at)
		VALUES (?, ?, ?, ?)
	`, rec.RecognitionResult, rec.ItemImageURL, rec.FaceImageURL, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read record id: %w", err)
	}
	rec.ID = id
	return nil
}

func recordWhere(filter *dto.RecordFilter) (string, []interface{}) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return where, args
	}

	if filter.Query != "" {
		where += ` AND LOWER(recognition_result) LIKE ? ESCAPE '\'`
		args = append(args, repository.ContainsPattern(filter.Query))
	}

	if filter.Date != "" {
		where += " AND DATE(created_at) = DATE(?)"
		args = append(args, filter.Date)
	}

	return where, args
}

// List retrieves records matching the filter, newest first.
func (r *RecordRepository) List(ctx context.Context, filter *dto.RecordFilter) ([]model.Record, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := recordWhere(filter)
	query := `
		SELECT id, recognition_result, item_image_url, face_image_url, created_at
		FROM recognition_records` + where + " ORDER BY created_at DESC, id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", classify(err))
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		var rec model.Record
		var face sql.NullString
		if err := rows.Scan(&rec.ID, &rec.RecognitionResult, &rec.ItemImageURL, &face, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if face.Valid {
			rec.FaceImageURL = &face.String
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Count returns the number of records matching the filter.
func (r *RecordRepository) Count(ctx context.Context, filter *dto.RecordFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := recordWhere(filter)

	var count int
	if err := r.db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM recognition_records"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", classify(err))
	}
	return count, nil
}
