package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"itemcam/internal/compress"
	"itemcam/internal/dto"
	"itemcam/internal/model"
	"itemcam/internal/repository"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func seedRecords(t *testing.T, store *Store) {
	t.Helper()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []model.Record{
		{RecognitionResult: "Coffee Mug (93.0%)", ItemImageURL: "https://store/items/1_item.jpg", FaceImageURL: strPtr("https://store/faces/1_face.jpg"), CreatedAt: base},
		{RecognitionResult: "Keyboard (87.7%)", ItemImageURL: "https://store/items/2_item.jpg", CreatedAt: base.Add(time.Hour)},
		{RecognitionResult: "coffee grinder (55.0%)", ItemImageURL: "https://store/items/3_item.jpg", CreatedAt: base.Add(24 * time.Hour)},
		{RecognitionResult: "100%_juice", ItemImageURL: "https://store/items/4_item.jpg", CreatedAt: base.Add(25 * time.Hour)},
	}
	for i := range records {
		if err := store.Insert(context.Background(), &records[i]); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
}

// ====== Schema ======

func TestDatabase_Connection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
	if err := db.Migrate(); err != nil {
		t.Errorf("Migrate should be repeatable: %v", err)
	}
}

// ====== Records ======

func TestRecordRepository_InsertAndList(t *testing.T) {
	store := setupTestDB(t)

	rec := &model.Record{RecognitionResult: "Coffee Mug (93.0%)", ItemImageURL: "https://store/items/123_item.jpg"}
	if err := store.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if rec.ID <= 0 || rec.CreatedAt.IsZero() {
		t.Errorf("Expected ID and CreatedAt to be set, got %+v", rec)
	}

	records, err := store.List(context.Background(), &dto.RecordFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.RecognitionResult != rec.RecognitionResult || got.ItemImageURL != rec.ItemImageURL || got.FaceImageURL != nil {
		t.Errorf("Unexpected record %+v", got)
	}
}

func TestRecordRepository_Filters(t *testing.T) {
	store := setupTestDB(t)
	seedRecords(t, store)

	tests := []struct {
		name   string
		filter dto.RecordFilter
		want   []string
	}{
		{"all newest first", dto.RecordFilter{}, []string{"100%_juice", "coffee grinder (55.0%)", "Keyboard (87.7%)", "Coffee Mug (93.0%)"}},
		{"case-insensitive query", dto.RecordFilter{Query: "COFFEE"}, []string{"coffee grinder (55.0%)", "Coffee Mug (93.0%)"}},
		{"wildcards are literal", dto.RecordFilter{Query: "%_"}, []string{"100%_juice"}},
		{"date", dto.RecordFilter{Date: "2025-03-01"}, []string{"Keyboard (87.7%)", "Coffee Mug (93.0%)"}},
		{"query and date", dto.RecordFilter{Query: "coffee", Date: "2025-03-02"}, []string{"coffee grinder (55.0%)"}},
		{"page", dto.RecordFilter{Limit: 2, Offset: 2}, []string{"Keyboard (87.7%)", "Coffee Mug (93.0%)"}},
		{"no match", dto.RecordFilter{Query: "lamp"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := store.List(context.Background(), &tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(records) != len(tt.want) {
				t.Fatalf("Expected %d records, got %d", len(tt.want), len(records))
			}
			for i, rec := range records {
				if rec.RecognitionResult != tt.want[i] {
					t.Errorf("records[%d] = %q, want %q", i, rec.RecognitionResult, tt.want[i])
				}
			}
		})
	}
}

func TestRecordRepository_Count(t *testing.T) {
	store := setupTestDB(t)
	seedRecords(t, store)

	count, err := store.Count(context.Background(), &dto.RecordFilter{Query: "coffee", Limit: 1})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2, got %d", count)
	}

	count, _ = store.Count(context.Background(), nil)
	if count != 4 {
		t.Errorf("Expected 4, got %d", count)
	}
}

func TestRecordRepository_FaceURLRoundTrip(t *testing.T) {
	store := setupTestDB(t)
	seedRecords(t, store)

	records, _ := store.List(context.Background(), &dto.RecordFilter{Query: "mug"})
	if len(records) != 1 || records[0].FaceImageURL == nil || *records[0].FaceImageURL != "https://store/faces/1_face.jpg" {
		t.Errorf("Expected face URL to be stored, got %+v", records)
	}
}

// ====== Compression config ======

func TestConfigRepository(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if _, err := store.GetCompressionConfig(ctx); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	cfg := compress.DefaultConfig()
	cfg.Small.Quality = 0.75
	if err := store.SetCompressionConfig(ctx, cfg); err != nil {
		t.Fatalf("SetCompressionConfig failed: %v", err)
	}

	cfg.Medium.MaxWidth = 1280
	if err := store.SetCompressionConfig(ctx, cfg); err != nil {
		t.Fatalf("Second SetCompressionConfig failed: %v", err)
	}

	got, err := store.GetCompressionConfig(ctx)
	if err != nil {
		t.Fatalf("GetCompressionConfig failed: %v", err)
	}
	if got != cfg {
		t.Errorf("Expected %+v, got %+v", cfg, got)
	}
}

func TestStore_ServesConfigCache(t *testing.T) {
	store := setupTestDB(t)
	var _ repository.Store = store
	var _ compress.ConfigSource = store
}
