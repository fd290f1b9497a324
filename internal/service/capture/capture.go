package capture

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"itemcam/internal/camera"
	"itemcam/internal/compress"
	"itemcam/internal/logger"
	"itemcam/internal/metrics"
	"itemcam/internal/model"
	"itemcam/internal/recognition"
	"itemcam/internal/service/notify"
	"itemcam/internal/storage"
)

// User-visible failure texts.
const (
	MsgCaptureFailed      = "unable to capture item photo"
	MsgUnavailable        = "recognition service unavailable, please retry"
	MsgTimeout            = "recognition timed out, please retry"
	MsgRecognitionFailed  = "recognition failed: "
	MsgCompressionFailed  = "image compression failed"
	msgNotReady           = "camera not ready"
	msgInProgress         = "capture already in progress"
	defaultRearUploadWait = 10 * time.Second
	defaultFrontWait      = 2 * time.Second
	defaultUploadTimeout  = 60 * time.Second
	contentTypeJPEG       = "image/jpeg"
)

// Kind is the outcome of one capture invocation.
type Kind string

const (
	Skipped    Kind = "skipped"
	Recognized Kind = "recognized"
	Failed     Kind = "failed"
)

// Outcome is what the user sees after a trigger.
type Outcome struct {
	Kind      Kind
	CaptureID string
	Text      string
	Error     string
	Cached    bool
	Duration  time.Duration
}

// Display returns the label or the error message.
func (o Outcome) Display() string {
	if o.Kind == Recognized {
		return o.Text
	}
	return o.Error
}

// Camera is the part of the dual camera session the orchestrator borrows.
type Camera interface {
	Ready(role camera.Role) bool
	CaptureFrame(role camera.Role) (*camera.Frame, error)
}

type Compressor interface {
	Compress(ctx context.Context, img *image.RGBA, opts compress.Options) (*compress.Result, error)
}

// PolicySource returns the active compression presets.
type PolicySource interface {
	Get(ctx context.Context) compress.Config
}

type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (*recognition.Result, error)
}

type Uploader interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
}

type RecordSaver interface {
	Save(ctx context.Context, result, itemURL string, faceURL *string) (*model.Record, error)
}

// Deps are the collaborators of a Service. Publisher and Metrics may be nil.
type Deps struct {
	Camera     Camera
	Compressor Compressor
	Policy     PolicySource
	Recognizer Recognizer
	Uploader   Uploader
	Saver      RecordSaver
	Publisher  notify.Publisher
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
}

type Option func(*Service)

// WithUploadWaits bounds how long persistence waits for the item and face uploads.
func WithUploadWaits(rear, front time.Duration) Option {
	return func(s *Service) {
		if rear > 0 {
			s.rearWait = rear
		}
		if front > 0 {
			s.frontWait = front
		}
	}
}

// WithUploadTimeout caps a single background upload including its retries.
func WithUploadTimeout(d time.Duration) Option {
	return func(s *Service) { s.uploadTimeout = d }
}

// WithClock overrides the time source used for object paths.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service runs capture invocations: capture both frames, compress, recognize
// and show the result, then upload and persist in the background.
type Service struct {
	Deps

	rearWait      time.Duration
	frontWait     time.Duration
	uploadTimeout time.Duration
	now           func() time.Time

	inFlight atomic.Bool

	// background work outlives the trigger's context but not the service.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(deps Deps, opts ...Option) *Service {
	if deps.Publisher == nil {
		deps.Publisher = notify.Discard{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		Deps:          deps,
		rearWait:      defaultRearUploadWait,
		frontWait:     defaultFrontWait,
		uploadTimeout: defaultUploadTimeout,
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InFlight reports whether a capture is between trigger and result.
func (s *Service) InFlight() bool {
	return s.inFlight.Load()
}

// Wait blocks until every background upload and persistence write has settled.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close abandons background work and waits for it to stop.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

type uploadResult struct {
	kind    string
	path    string
	url     string
	err     error
	skipped bool
}

// Trigger runs one capture invocation. It returns once the result (or the
// failure) is known; uploads and persistence continue in the background.
func (s *Service) Trigger(ctx context.Context) Outcome {
	if !s.Camera.Ready(camera.Rear) {
		return s.skip(msgNotReady)
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return s.skip(msgInProgress)
	}
	defer s.inFlight.Store(false)

	start := time.Now()
	id := uuid.NewString()

	outcome := s.run(ctx, id)
	outcome.CaptureID = id
	outcome.Duration = time.Since(start)

	s.Metrics.CaptureOutcome(string(outcome.Kind))
	ev := notify.Event{Type: notify.TypeCapture, CaptureID: id, Cached: outcome.Cached}
	if outcome.Kind == Recognized {
		ev.Result = outcome.Text
		s.Logger.Info("🔍 [%s] Recognized %q in %v (cached: %v)", id, outcome.Text, outcome.Duration, outcome.Cached)
	} else {
		ev.Error = outcome.Error
		s.Logger.Warning("[%s] Capture failed: %s", id, outcome.Error)
	}
	s.Publisher.Publish(ev)
	return outcome
}

func (s *Service) skip(reason string) Outcome {
	s.Metrics.CaptureOutcome(string(Skipped))
	return Outcome{Kind: Skipped, Error: reason}
}

func (s *Service) run(ctx context.Context, id string) Outcome {
	rear, front := s.captureFrames(id)
	if rear == nil {
		return Outcome{Kind: Failed, Error: MsgCaptureFailed}
	}

	cfg := s.Policy.Get(ctx)
	at := s.now()

	rearUp := make(chan uploadResult, 1)
	frontUp := make(chan uploadResult, 1)

	// The face photo never gates recognition.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if front == nil {
			frontUp <- uploadResult{skipped: true}
			return
		}
		res, err := s.compress(s.ctx, cfg, front)
		if err != nil {
			s.Logger.Warning("[%s] Face photo compression failed: %v", id, err)
			frontUp <- uploadResult{skipped: true}
			return
		}
		frontUp <- s.upload(id, "face", storage.FacePath(at), res.Data)
	}()

	rearRes, err := s.compress(ctx, cfg, rear)
	if err != nil {
		s.Logger.Error("[%s] Item photo compression failed: %v", id, err)
		s.discard(id, frontUp)
		return Outcome{Kind: Failed, Error: MsgCompressionFailed}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		rearUp <- s.upload(id, "item", storage.ItemPath(at), rearRes.Data)
	}()

	result, err := s.Recognizer.Recognize(ctx, rearRes.Data)
	if err != nil {
		s.discard(id, rearUp, frontUp)
		return Outcome{Kind: Failed, Error: recognitionMessage(err)}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.persist(id, result.Text, rearUp, frontUp)
	}()

	return Outcome{Kind: Recognized, Text: result.Text, Cached: result.Cached}
}

// captureFrames grabs both frames together. A missing front frame is
// tolerated; a missing rear frame leaves rear nil.
func (s *Service) captureFrames(id string) (rear, front *camera.Frame) {
	var g errgroup.Group
	g.Go(func() error {
		f, err := s.Camera.CaptureFrame(camera.Rear)
		if err != nil {
			return err
		}
		rear = f
		return nil
	})
	g.Go(func() error {
		f, err := s.Camera.CaptureFrame(camera.Front)
		if err != nil {
			s.Logger.Info("[%s] No face photo: %v", id, err)
			return nil
		}
		front = f
		return nil
	})
	if err := g.Wait(); err != nil {
		s.Logger.Warning("[%s] Item photo unavailable: %v", id, err)
		return nil, front
	}
	return rear, front
}

func (s *Service) compress(ctx context.Context, cfg compress.Config, f *camera.Frame) (*compress.Result, error) {
	name, preset := cfg.Select(compress.EstimateKB(f.Width(), f.Height()))
	res, err := s.Compressor.Compress(ctx, f.Image, preset.Options())
	if err != nil {
		return nil, err
	}
	s.Metrics.ObserveCompression(res.Duration)
	s.Logger.Info("🗜️ %s frame %dx%d -> %dx%d (%s preset, %d -> %d bytes, fallback: %v)",
		f.Role, res.OriginalWidth, res.OriginalHeight, res.Width, res.Height, name, res.OriginalSize, res.Size, res.Fallback)
	return res, nil
}

func (s *Service) upload(id, kind, objectPath string, data []byte) uploadResult {
	ctx, cancel := context.WithTimeout(s.ctx, s.uploadTimeout)
	defer cancel()

	url, err := s.Uploader.Upload(ctx, objectPath, data, contentTypeJPEG)
	if err != nil {
		s.Metrics.UploadFailed(kind)
		s.Logger.Error("[%s] Upload of %s photo failed: %v", id, kind, err)
		return uploadResult{kind: kind, path: objectPath, err: err}
	}
	return uploadResult{kind: kind, path: objectPath, url: url}
}

// discard waits for uploads whose record will never be written and reports
// every object that landed anyway, so it can be removed from the store.
func (s *Service) discard(id string, ups ...<-chan uploadResult) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for _, up := range ups {
			s.orphaned(id, <-up)
		}
	}()
}

func (s *Service) orphaned(id string, res uploadResult) {
	if res.err != nil || res.skipped {
		return
	}
	s.Logger.Warning("[%s] Orphaned %s photo %s: no record references it", id, res.kind, res.path)
}

// persist writes the record once the item photo is stored. It gives up
// without surfacing anything when the item upload fails or is late, and
// saves without a face URL when the face upload fails or is late. Photos
// that end up stored without a record are logged as orphaned.
func (s *Service) persist(id, text string, rearUp, frontUp <-chan uploadResult) {
	var item uploadResult
	rearTimer := time.NewTimer(s.rearWait)
	defer rearTimer.Stop()

	select {
	case item = <-rearUp:
		if item.err != nil {
			s.Logger.Warning("[%s] Record not saved: item photo upload failed", id)
			s.discard(id, frontUp)
			return
		}
	case <-rearTimer.C:
		s.Logger.Warning("[%s] Record not saved: item photo upload still pending after %v", id, s.rearWait)
		s.discard(id, rearUp, frontUp)
		return
	case <-s.ctx.Done():
		return
	}

	var faceURL *string
	var face uploadResult
	frontTimer := time.NewTimer(s.frontWait)
	defer frontTimer.Stop()

	select {
	case face = <-frontUp:
		if face.err == nil && !face.skipped {
			faceURL = &face.url
		}
	case <-frontTimer.C:
		s.Logger.Info("[%s] Face photo upload still pending after %v, saving without it", id, s.frontWait)
		s.discard(id, frontUp)
	case <-s.ctx.Done():
		return
	}

	if _, err := s.Saver.Save(s.ctx, text, item.url, faceURL); err != nil {
		s.Metrics.PersistFailed()
		s.Logger.Error("[%s] Saving record failed: %v", id, err)
		s.orphaned(id, item)
		if faceURL != nil {
			s.orphaned(id, face)
		}
	}
}

func recognitionMessage(err error) string {
	switch {
	case errors.Is(err, recognition.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return MsgTimeout
	case errors.Is(err, recognition.ErrUnavailable):
		return MsgUnavailable
	default:
		return MsgRecognitionFailed + err.Error()
	}
}
