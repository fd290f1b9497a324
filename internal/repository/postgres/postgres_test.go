package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"itemcam/internal/compress"
	"itemcam/internal/dto"
	"itemcam/internal/model"
	"itemcam/internal/repository"
	"itemcam/internal/retry"
)

type noopLogger struct{}

func (noopLogger) Printf(format string, v ...interface{}) {}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panicked: %v", r)
			}
		}()
		_, err = testcontainers.NewDockerClientWithOpts(ctx)
		return
	}()
	if err != nil {
		t.Skipf("Docker not available: %v", err)
	}

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("itemcam_test"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(noopLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	store, err := New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreIntegration(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	face := "https://store/faces/1_face.jpg"
	for _, rec := range []*model.Record{
		{RecognitionResult: "Coffee Mug (93.0%)", ItemImageURL: "https://store/items/1_item.jpg", FaceImageURL: &face},
		{RecognitionResult: "Keyboard (87.7%)", ItemImageURL: "https://store/items/2_item.jpg"},
		{RecognitionResult: "coffee grinder", ItemImageURL: "https://store/items/3_item.jpg"},
	} {
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if rec.ID <= 0 || rec.CreatedAt.IsZero() {
			t.Errorf("Expected ID and CreatedAt, got %+v", rec)
		}
	}

	records, err := store.List(ctx, &dto.RecordFilter{Query: "COFFEE"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 2 || records[0].RecognitionResult != "coffee grinder" {
		t.Errorf("Expected newest coffee record first, got %+v", records)
	}
	if records[1].FaceImageURL == nil || *records[1].FaceImageURL != face {
		t.Errorf("Expected face URL round trip, got %+v", records[1])
	}

	today := time.Now().UTC().Format("2006-01-02")
	count, err := store.Count(ctx, &dto.RecordFilter{Date: today})
	if err != nil || count != 3 {
		t.Errorf("Expected 3 records today, got %d, %v", count, err)
	}

	page, err := store.List(ctx, &dto.RecordFilter{Limit: 1, Offset: 1})
	if err != nil || len(page) != 1 || page[0].RecognitionResult != "Keyboard (87.7%)" {
		t.Errorf("Unexpected page %+v, %v", page, err)
	}

	if _, err := store.GetCompressionConfig(ctx); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	cfg := compress.DefaultConfig()
	cfg.Large.Quality = 0.6
	if err := store.SetCompressionConfig(ctx, cfg); err != nil {
		t.Fatalf("SetCompressionConfig failed: %v", err)
	}
	if err := store.SetCompressionConfig(ctx, cfg); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	got, err := store.GetCompressionConfig(ctx)
	if err != nil || got != cfg {
		t.Errorf("Expected %+v, got %+v, %v", cfg, got, err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retriable bool
	}{
		{"serialization failure", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, true},
		{"deadlock", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}, true},
		{"connection failure", &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, true},
		{"connection exception", &pgconn.PgError{Code: pgerrcode.ConnectionException}, true},
		{"server starting up", &pgconn.PgError{Code: pgerrcode.CannotConnectNow}, true},
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, false},
		{"undefined table", &pgconn.PgError{Code: pgerrcode.UndefinedTable}, false},
		{"wrapped deadlock", fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}), true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retry.IsRetriable(classify(tt.err)); got != tt.retriable {
				t.Errorf("Expected retriable=%v, got %v", tt.retriable, got)
			}
		})
	}
}
