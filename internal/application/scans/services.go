package scans

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/bryanwahyu/canscan/internal/application"
	"github.com/bryanwahyu/canscan/internal/application/wizard"
	"github.com/bryanwahyu/canscan/internal/domain/records"
	domain "github.com/bryanwahyu/canscan/internal/domain/scans"
	"github.com/bryanwahyu/canscan/internal/metrics"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 30 * time.Minute

var ErrSessionNotFound = errors.New("session not found")

type Options struct {
	// Images is optional; when nil uploads are not copied anywhere.
	Images        domain.ImageStore
	Clock         application.Clock
	Log           logr.Logger
	SessionTTL    time.Duration
	MaxImageBytes int64
}

// Service implements use-cases untuk screening sessions and results history.
// Service is designed to be used concurrently and is thread-safe
type Service struct {
	store    records.Store
	analyzer wizard.Analyzer
	images   domain.ImageStore
	clock    application.Clock
	log      logr.Logger
	ttl      time.Duration
	maxBytes int64

	mu       sync.Mutex
	sessions map[domain.SessionID]*session
}

type session struct {
	owner string
	w     *wizard.Wizard
}

func NewService(store records.Store, analyzer wizard.Analyzer, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = application.SystemClock{}
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	return &Service{
		store:    store,
		analyzer: countingAnalyzer{next: analyzer},
		images:   opts.Images,
		clock:    opts.Clock,
		log:      opts.Log,
		ttl:      opts.SessionTTL,
		maxBytes: opts.MaxImageBytes,
		sessions: make(map[domain.SessionID]*session),
	}
}

//
// ==== SESSION USE CASES ====
//

// StartSession opens a fresh wizard for owner.
func (s *Service) StartSession(ctx context.Context, owner string) (wizard.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return wizard.Snapshot{}, err
	}
	id := domain.SessionID(uuid.New().String())
	w := wizard.New(id, s.analyzer, resultLog{store: s.store, log: s.log, owner: owner}, wizard.Options{
		MaxImageBytes: s.maxBytes,
		Clock:         s.clock,
		Log:           s.log.WithValues("owner", owner),
	})

	s.mu.Lock()
	s.sessions[id] = &session{owner: owner, w: w}
	s.mu.Unlock()

	metrics.IncrementSessions()
	s.log.V(1).Info("session started", "owner", owner, "session", id)
	return w.Snapshot(), nil
}

func (s *Service) Session(ctx context.Context, owner string, id domain.SessionID) (wizard.Snapshot, error) {
	w, err := s.lookup(owner, id)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	return w.Snapshot(), nil
}

// UploadImage validates the image, hands it to the wizard and, when an
// image store is configured, keeps a copy there.
func (s *Service) UploadImage(ctx context.Context, owner string, id domain.SessionID, img domain.Image) (wizard.Snapshot, error) {
	w, err := s.lookup(owner, id)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	if err := img.Validate(s.maxBytes); err != nil {
		return wizard.Snapshot{}, err
	}
	if err := w.UploadImage(img); err != nil {
		return wizard.Snapshot{}, err
	}

	if s.images != nil {
		digest := img.Digest()
		key := path.Join(owner, string(id), digest[:16]+extensionFor(img.ContentType))
		ref, err := s.images.Put(ctx, key, img)
		if err != nil {
			s.log.Error(err, "storing uploaded image failed", "owner", owner, "session", id)
		} else {
			w.SetImageRef(digest, ref)
		}
	}
	return w.Snapshot(), nil
}

// Analyze starts the oracle. With wait it blocks until the oracle resolves
// and returns its error, if any.
func (s *Service) Analyze(ctx context.Context, owner string, id domain.SessionID, wait bool) (wizard.Snapshot, error) {
	w, err := s.lookup(owner, id)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	if wait {
		err = w.Analyze(ctx)
	} else {
		_, err = w.StartAnalysis(ctx)
	}
	return w.Snapshot(), err
}

func (s *Service) Next(ctx context.Context, owner string, id domain.SessionID) (wizard.Snapshot, error) {
	w, err := s.lookup(owner, id)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	err = w.Next(ctx)
	return w.Snapshot(), err
}

func (s *Service) ToggleSymptom(ctx context.Context, owner string, id domain.SessionID, symptom string) (wizard.Snapshot, error) {
	w, err := s.lookup(owner, id)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	if _, err := w.ToggleSymptom(symptom); err != nil {
		return wizard.Snapshot{}, err
	}
	return w.Snapshot(), nil
}

func (s *Service) SetSymptoms(ctx context.Context, owner string, id domain.SessionID, symptoms []string) (wizard.Snapshot, error) {
	w, err := s.lookup(owner, id)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	if err := w.SetSymptoms(symptoms); err != nil {
		return wizard.Snapshot{}, err
	}
	return w.Snapshot(), nil
}

func (s *Service) Back(ctx context.Context, owner string, id domain.SessionID) (wizard.Snapshot, error) {
	w, err := s.lookup(owner, id)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	if err := w.Back(); err != nil {
		return wizard.Snapshot{}, err
	}
	return w.Snapshot(), nil
}

// Complete classifies and records the session's result.
func (s *Service) Complete(ctx context.Context, owner string, id domain.SessionID) (domain.ScanResult, error) {
	w, err := s.lookup(owner, id)
	if err != nil {
		return domain.ScanResult{}, err
	}
	return w.Complete(ctx)
}

// DiscardSession drops a session, e.g. when the user navigates away. A
// running analysis finishes in the background and is ignored.
func (s *Service) DiscardSession(ctx context.Context, owner string, id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.owner != owner {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// Sweep drops idle sessions and reports how many were removed.
func (s *Service) Sweep() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.w.LastActivity()) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.log.V(1).Info("expired sessions removed", "count", removed)
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Service) lookup(owner string, id domain.SessionID) (*wizard.Wizard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.owner != owner {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if s.clock.Now().Sub(sess.w.LastActivity()) > s.ttl {
		delete(s.sessions, id)
		return nil, fmt.Errorf("%w: %s expired", ErrSessionNotFound, id)
	}
	return sess.w, nil
}

// countingAnalyzer feeds the analysis counters.
type countingAnalyzer struct {
	next wizard.Analyzer
}

func (c countingAnalyzer) Analyze(ctx context.Context, img domain.Image) (bool, error) {
	metrics.IncrementAnalyses()
	match, err := c.next.Analyze(ctx, img)
	if err != nil {
		metrics.IncrementAnalysesFailed()
	}
	return match, err
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ""
	}
}
