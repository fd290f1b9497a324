package record

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"itemcam/internal/logger"
	"itemcam/internal/metrics"
	"itemcam/internal/model"
	"itemcam/internal/repository"
	"itemcam/internal/retry"
	"itemcam/internal/service/notify"
)

// ErrInvalid is returned when a record lacks its result text or item URL.
var ErrInvalid = errors.New("recognitionResult and itemImageUrl are required")

// Saver validates and persists recognition records with bounded retry.
type Saver struct {
	repo      repository.RecordRepository
	policy    retry.Policy
	publisher notify.Publisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

func NewSaver(repo repository.RecordRepository, policy retry.Policy, publisher notify.Publisher, m *metrics.Metrics, logger *logger.Logger) *Saver {
	if publisher == nil {
		publisher = notify.Discard{}
	}
	return &Saver{repo: repo, policy: policy, publisher: publisher, metrics: m, logger: logger}
}

// Save stores a record for result text and item URL. faceURL may be nil.
func (s *Saver) Save(ctx context.Context, result, itemURL string, faceURL *string) (*model.Record, error) {
	if strings.TrimSpace(result) == "" || strings.TrimSpace(itemURL) == "" {
		return nil, ErrInvalid
	}
	if faceURL != nil && *faceURL == "" {
		faceURL = nil
	}

	policy := s.policy
	policy.OnRetry = func(attempt int, err error) {
		s.logger.Warning("Saving record failed, retrying (%d/%d): %v", attempt, policy.Retries, err)
	}

	rec := &model.Record{RecognitionResult: result, ItemImageURL: itemURL, FaceImageURL: faceURL}
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		attemptRec := *rec
		if err := s.repo.Insert(ctx, &attemptRec); err != nil {
			return err
		}
		*rec = attemptRec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}

	s.metrics.RecordSaved()
	s.logger.Info("💾 Record %d saved: %s", rec.ID, rec.RecognitionResult)
	s.publisher.Publish(notify.Event{Type: notify.TypeRecord, Record: rec})
	return rec, nil
}
