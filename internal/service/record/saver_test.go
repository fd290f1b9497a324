package record

import (
	"context"
	"errors"
	"testing"
	"time"

	"itemcam/internal/dto"
	"itemcam/internal/logger"
	"itemcam/internal/model"
	"itemcam/internal/retry"
	"itemcam/internal/service/notify"
)

type flakyRepo struct {
	errs     []error
	calls    int
	inserted []model.Record
}

func (r *flakyRepo) Insert(ctx context.Context, rec *model.Record) error {
	r.calls++
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return err
		}
	}
	rec.ID = int64(len(r.inserted) + 1)
	rec.CreatedAt = time.Now()
	r.inserted = append(r.inserted, *rec)
	return nil
}

func (r *flakyRepo) List(ctx context.Context, filter *dto.RecordFilter) ([]model.Record, error) {
	return r.inserted, nil
}

func (r *flakyRepo) Count(ctx context.Context, filter *dto.RecordFilter) (int, error) {
	return len(r.inserted), nil
}

type capturePublisher struct {
	events []notify.Event
}

func (c *capturePublisher) Publish(ev notify.Event) { c.events = append(c.events, ev) }

func testPolicy() retry.Policy {
	return retry.Policy{Retries: 2, Backoff: time.Second, Sleep: func(ctx context.Context, d time.Duration) error { return nil }}
}

func TestSave_Validation(t *testing.T) {
	tests := []struct {
		name    string
		result  string
		itemURL string
	}{
		{"missing result", "", "https://store/items/1_item.jpg"},
		{"blank result", "  ", "https://store/items/1_item.jpg"},
		{"missing item url", "Coffee Mug (93.0%)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &flakyRepo{}
			s := NewSaver(repo, testPolicy(), nil, nil, logger.NewDiscard())
			if _, err := s.Save(context.Background(), tt.result, tt.itemURL, nil); !errors.Is(err, ErrInvalid) {
				t.Errorf("Expected ErrInvalid, got %v", err)
			}
			if repo.calls != 0 {
				t.Errorf("Expected no store calls, got %d", repo.calls)
			}
		})
	}
}

func TestSave_RetriesTemporaryFailures(t *testing.T) {
	repo := &flakyRepo{errs: []error{retry.Temporary(errors.New("database is locked")), nil}}
	pub := &capturePublisher{}
	s := NewSaver(repo, testPolicy(), pub, nil, logger.NewDiscard())

	empty := ""
	rec, err := s.Save(context.Background(), "Coffee Mug (93.0%)", "https://store/items/123_item.jpg", &empty)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if repo.calls != 2 {
		t.Errorf("Expected 2 attempts, got %d", repo.calls)
	}
	if rec.ID != 1 || rec.FaceImageURL != nil {
		t.Errorf("Unexpected record %+v", rec)
	}
	if len(pub.events) != 1 || pub.events[0].Type != notify.TypeRecord || pub.events[0].Record.ID != 1 {
		t.Errorf("Expected record event, got %+v", pub.events)
	}
}

func TestSave_PermanentFailureNotRetried(t *testing.T) {
	repo := &flakyRepo{errs: []error{errors.New("constraint failed"), nil}}
	pub := &capturePublisher{}
	s := NewSaver(repo, testPolicy(), pub, nil, logger.NewDiscard())

	if _, err := s.Save(context.Background(), "Lamp", "https://store/items/1_item.jpg", nil); err == nil {
		t.Fatal("Expected error")
	}
	if repo.calls != 1 {
		t.Errorf("Expected a single attempt, got %d", repo.calls)
	}
	if len(pub.events) != 0 {
		t.Errorf("Expected no event for a failed save, got %+v", pub.events)
	}
}
