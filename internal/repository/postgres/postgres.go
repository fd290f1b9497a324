package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"itemcam/internal/compress"
	"itemcam/internal/dto"
	"itemcam/internal/model"
	"itemcam/internal/repository"
	"itemcam/internal/retry"
)

// Store implements the record and config repositories on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return s, nil
}

// Migrate creates the tables if they don't exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS recognition_records (
			id BIGSERIAL PRIMARY KEY,
			recognition_result TEXT NOT NULL,
			item_image_url TEXT NOT NULL,
			face_image_url TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS compression_config (
			config_key TEXT PRIMARY KEY,
			config_value JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS recognition_records_created_at_idx ON recognition_records (created_at DESC);
	`)
	return err
}

// Close releases the pool. It never fails.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// classify marks connection and serialization failures as retriable.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.SerializationFailure,
			pgErr.Code == pgerrcode.DeadlockDetected,
			pgErr.Code == pgerrcode.CannotConnectNow,
			pgerrcode.IsConnectionException(pgErr.Code):
			return retry.Temporary(err)
		}
		return err
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return retry.Temporary(err)
	}
	return err
}

// Insert stores rec and fills in its ID and CreatedAt.
func (s *Store) Insert(ctx context.Context, rec *model.Record) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO recognition_records (recognition_result, item_image_url, face_image_url)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, rec.RecognitionResult, rec.ItemImageURL, rec.FaceImageURL).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", classify(err))
	}
	return nil
}

func recordWhere(filter *dto.RecordFilter) (string, []any) {
	where := " WHERE 1=1"
	args := []any{}
	if filter == nil {
		return where, args
	}

	if filter.Query != "" {
		args = append(args, repository.ContainsPattern(filter.Query))
		where += ` AND LOWER(recognition_result) LIKE $` + strconv.Itoa(len(args)) + ` ESCAPE '\'`
	}
	if filter.Date != "" {
		args = append(args, filter.Date)
		where += ` AND (created_at AT TIME ZONE 'UTC')::date = CAST($` + strconv.Itoa(len(args)) + ` AS text)::date`
	}
	return where, args
}

// List retrieves records matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter *dto.RecordFilter) ([]model.Record, error) {
	where, args := recordWhere(filter)
	query := `SELECT id, recognition_result, item_image_url, face_image_url, created_at
		FROM recognition_records` + where + ` ORDER BY created_at DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", classify(err))
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Record, error) {
		var rec model.Record
		err := row.Scan(&rec.ID, &rec.RecognitionResult, &rec.ItemImageURL, &rec.FaceImageURL, &rec.CreatedAt)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", classify(err))
	}
	return records, nil
}

// Count returns the number of records matching the filter.
func (s *Store) Count(ctx context.Context, filter *dto.RecordFilter) (int, error) {
	where, args := recordWhere(filter)

	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM recognition_records"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", classify(err))
	}
	return count, nil
}

// GetCompressionConfig loads the saved compression presets.
func (s *Store) GetCompressionConfig(ctx context.Context) (compress.Config, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT config_value FROM compression_config WHERE config_key = $1`, repository.DefaultConfigKey,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return compress.Config{}, repository.ErrNotFound
	}
	if err != nil {
		return compress.Config{}, fmt.Errorf("failed to get compression config: %w", classify(err))
	}

	var cfg compress.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return compress.Config{}, fmt.Errorf("failed to decode compression config: %w", err)
	}
	return cfg, nil
}

// SetCompressionConfig upserts the compression presets.
func (s *Store) SetCompressionConfig(ctx context.Context, cfg compress.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode compression config: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO compression_config (config_key, config_value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (config_key) DO UPDATE SET config_value = EXCLUDED.config_value, updated_at = NOW()
	`, repository.DefaultConfigKey, raw)
	if err != nil {
		return fmt.Errorf("failed to save compression config: %w", classify(err))
	}
	return nil
}
