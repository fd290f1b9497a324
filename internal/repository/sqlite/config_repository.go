package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"itemcam/internal/compress"
	"itemcam/internal/repository"
)

// ConfigRepository implements repository.ConfigRepository for SQLite.
type ConfigRepository struct {
	db *DB
}

// NewConfigRepository creates a new SQLite config repository.
func NewConfigRepository(db *DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// GetCompressionConfig loads the saved compression presets.
func (r *ConfigRepository) GetCompressionConfig(ctx context.Context) (compress.Config, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var raw string
	err := r.db.Conn().QueryRowContext(ctx,
		`SELECT config_value FROM compression_config WHERE config_key = ?`, repository.DefaultConfigKey,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return compress.Config{}, repository.ErrNotFound
	}
	if err != nil {
		return compress.Config{}, fmt.Errorf("failed to get compression config: %w", classify(err))
	}

	var cfg compress.Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return compress.Config{}, fmt.Errorf("failed to decode compression config: %w", err)
	}
	return cfg, nil
}

// SetCompressionConfig upserts the compression presets.
func (r *ConfigRepository) SetCompressionConfig(ctx context.Context, cfg compress.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode compression config: %w", err)
	}

	r.db.Lock()
	defer r.db.Unlock()

	_, err = r.db.Conn().ExecContext(ctx, `
		INSERT INTO compression_config (config_key, config_value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(config_key) DO UPDATE SET config_value = excluded.config_value, updated_at = CURRENT_TIMESTAMP
	`, repository.DefaultConfigKey, string(raw))
	if err != nil {
		return fmt.Errorf("failed to save compression config: %w", classify(err))
	}
	return nil
}
