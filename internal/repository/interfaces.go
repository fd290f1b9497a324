package repository

import (
	"context"
	"errors"

	"itemcam/internal/compress"
	"itemcam/internal/dto"
	"itemcam/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DefaultConfigKey is the row holding the active compression config.
const DefaultConfigKey = "default"

// RecordRepository defines the interface for recognition record operations.
type RecordRepository interface {
	// Insert stores rec and fills in its ID and CreatedAt.
	Insert(ctx context.Context, rec *model.Record) error

	List(ctx context.Context, filter *dto.RecordFilter) ([]model.Record, error)
	Count(ctx context.Context, filter *dto.RecordFilter) (int, error)
}

// ConfigRepository stores the compression presets.
type ConfigRepository interface {
	// GetCompressionConfig returns ErrNotFound when no config was ever saved.
	GetCompressionConfig(ctx context.Context) (compress.Config, error)
	SetCompressionConfig(ctx context.Context, cfg compress.Config) error
}

// Store bundles both repositories behind one connection.
type Store interface {
	RecordRepository
	ConfigRepository
	Close() error
}
