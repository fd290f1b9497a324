package recognition

import (
	"context"
	"time"

	"itemcam/internal/logger"
	"itemcam/internal/metrics"
)

// Service answers recognition requests from the result cache when it can
// and from the provider otherwise.
type Service struct {
	cache      *Cache
	classifier Classifier
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

func NewService(cache *Cache, classifier Classifier, m *metrics.Metrics, logger *logger.Logger) *Service {
	return &Service{
		cache:      cache,
		classifier: classifier,
		metrics:    m,
		logger:     logger,
	}
}

func (s *Service) Recognize(ctx context.Context, image []byte) (*Result, error) {
	start := time.Now()

	if cached, ok := s.cache.Get(image); ok {
		s.metrics.CacheLookup(true)
		cached.Cached = true
		cached.ProcessingTime = time.Since(start)
		s.metrics.ObserveRecognition(cached.ProcessingTime)
		s.logger.Info("🔍 Recognition served from cache: %s", cached.Text)
		return &cached, nil
	}
	s.metrics.CacheLookup(false)

	labels, err := s.classifier.Classify(ctx, image)
	if err != nil {
		return nil, err
	}

	result := FormatResult(labels)
	s.cache.Set(image, result)

	result.ProcessingTime = time.Since(start)
	s.metrics.ObserveRecognition(result.ProcessingTime)
	s.logger.Info("🔍 Recognized %q in %v", result.Text, result.ProcessingTime.Round(time.Millisecond))
	return &result, nil
}

func (s *Service) Cache() *Cache {
	return s.cache
}
