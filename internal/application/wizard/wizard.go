// Package wizard drives one screening session through upload, analysis,
// symptom selection and results.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/bryanwahyu/canscan/internal/application"
	"github.com/bryanwahyu/canscan/internal/domain/ai"
	"github.com/bryanwahyu/canscan/internal/domain/scans"
)

var (
	ErrWrongStep       = errors.New("operation not allowed at current step")
	ErrNoImage         = errors.New("no image uploaded")
	ErrAnalysisPending = errors.New("image analysis in progress")
	ErrUnknownSymptom  = errors.New("unknown symptom")
	ErrNoPreviousStep  = errors.New("no previous step")
	ErrSessionComplete = errors.New("session already complete")
)

// Analyzer is the oracle as seen by the wizard. application/ai.Service
// satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, img scans.Image) (bool, error)
}

type Options struct {
	// MaxImageBytes caps uploads; zero means no cap.
	MaxImageBytes int64
	Clock         application.Clock
	NewResultID   func() scans.ResultID
	Log           logr.Logger
}

// Wizard owns one ScanSession. All methods are safe for concurrent use.
type Wizard struct {
	id       scans.SessionID
	analyzer Analyzer
	results  scans.ResultLog
	maxBytes int64
	clock    application.Clock
	newID    func() scans.ResultID
	log      logr.Logger

	mu       sync.Mutex
	step     scans.Step
	image    *scans.Image
	digest   string
	matches  map[string]bool          // oracle answers by image digest
	inflight map[string]chan struct{} // running oracle calls by image digest
	lastErr  error
	symptoms scans.SymptomSet
	result   *scans.ScanResult
	touched  time.Time
}

func New(id scans.SessionID, analyzer Analyzer, results scans.ResultLog, opts Options) *Wizard {
	if opts.Clock == nil {
		opts.Clock = application.SystemClock{}
	}
	if opts.NewResultID == nil {
		opts.NewResultID = func() scans.ResultID { return scans.ResultID(uuid.NewString()) }
	}
	return &Wizard{
		id:       id,
		analyzer: analyzer,
		results:  results,
		maxBytes: opts.MaxImageBytes,
		clock:    opts.Clock,
		newID:    opts.NewResultID,
		log:      opts.Log.WithValues("session", id),
		step:     scans.StepUploadImage,
		matches:  make(map[string]bool),
		inflight: make(map[string]chan struct{}),
		touched:  opts.Clock.Now(),
	}
}

func (w *Wizard) ID() scans.SessionID { return w.id }

// LastActivity is when the session last changed.
func (w *Wizard) LastActivity() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.touched
}

// UploadImage sets or replaces the image. Only allowed at UploadImage.
func (w *Wizard) UploadImage(img scans.Image) error {
	if err := img.Validate(w.maxBytes); err != nil {
		return err
	}
	data := make([]byte, len(img.Data))
	copy(data, img.Data)
	img.Data = data

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireStep(scans.StepUploadImage); err != nil {
		return err
	}
	digest := img.Digest()
	if digest != w.digest {
		w.lastErr = nil
	}
	w.image = &img
	w.digest = digest
	w.touch()
	w.log.V(1).Info("image uploaded", "name", img.Name, "bytes", len(img.Data), "digest", digest)
	return nil
}

// SetImageRef records where the current image was stored. It is ignored if
// the image has been replaced since.
func (w *Wizard) SetImageRef(digest, ref string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.image != nil && w.digest == digest {
		w.image.Ref = ref
	}
}

// Next moves forward one step. From SelectSymptoms it is Complete.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	switch w.step {
	case scans.StepUploadImage:
		if w.image == nil {
			w.mu.Unlock()
			return ErrNoImage
		}
		w.step = scans.StepAnalyzing
		w.startLocked(ctx)
		w.mu.Unlock()
		return nil
	case scans.StepAnalyzing:
		if _, running := w.inflight[w.digest]; running {
			w.mu.Unlock()
			return ErrAnalysisPending
		}
		w.startLocked(ctx)
		w.mu.Unlock()
		return nil
	case scans.StepSelectSymptoms:
		w.mu.Unlock()
		_, err := w.Complete(ctx)
		return err
	default:
		w.mu.Unlock()
		return ErrSessionComplete
	}
}

// StartAnalysis runs the oracle in the background and returns a channel
// closed when it resolves. A call for an image already being analysed
// joins the running call. From UploadImage with an image it first moves to
// Analyzing.
func (w *Wizard) StartAnalysis(ctx context.Context) (<-chan struct{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case scans.StepUploadImage:
		if w.image == nil {
			return nil, ErrNoImage
		}
		w.step = scans.StepAnalyzing
	case scans.StepAnalyzing:
	case scans.StepResults:
		return nil, ErrSessionComplete
	default:
		return nil, fmt.Errorf("%w: %s", ErrWrongStep, w.step)
	}
	return w.startLocked(ctx), nil
}

// Analyze is the blocking form of StartAnalysis. It returns the analysis
// error, if any, once the oracle resolves.
func (w *Wizard) Analyze(ctx context.Context) error {
	done, err := w.StartAnalysis(ctx)
	if err != nil {
		return err
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == scans.StepAnalyzing && w.lastErr != nil {
		return w.lastErr
	}
	return nil
}

// startLocked must be called with mu held and step at Analyzing.
func (w *Wizard) startLocked(ctx context.Context) <-chan struct{} {
	if done, running := w.inflight[w.digest]; running {
		return done
	}
	done := make(chan struct{})
	if _, cached := w.matches[w.digest]; cached {
		w.step = scans.StepSelectSymptoms
		w.lastErr = nil
		w.touch()
		close(done)
		return done
	}

	img := *w.image
	digest := w.digest
	w.inflight[digest] = done
	w.lastErr = nil
	w.touch()

	// The oracle call runs to completion even if the caller goes away.
	actx := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		match, err := w.analyzer.Analyze(actx, img)
		w.resolve(digest, done, match, err)
	}()
	return done
}

func (w *Wizard) resolve(digest string, done chan struct{}, match bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inflight[digest] == done {
		delete(w.inflight, digest)
	}

	current := w.image != nil && w.digest == digest
	if err != nil {
		if !errors.Is(err, ai.ErrAnalysisUnavailable) {
			err = fmt.Errorf("%w: %w", ai.ErrAnalysisUnavailable, err)
		}
		if current && w.step == scans.StepAnalyzing {
			w.lastErr = err
			w.touch()
		}
		w.log.Error(err, "analysis failed", "digest", digest, "current", current)
		return
	}
	if !current {
		w.log.V(1).Info("discarding analysis for replaced image", "digest", digest)
		return
	}

	if _, cached := w.matches[digest]; !cached {
		w.matches[digest] = match
	}
	if w.step == scans.StepAnalyzing {
		w.step = scans.StepSelectSymptoms
		w.lastErr = nil
		w.touch()
	}
	w.log.V(1).Info("analysis resolved", "digest", digest, "match", w.matches[digest])
}

// ToggleSymptom flips one symptom and reports whether it is now selected.
func (w *Wizard) ToggleSymptom(symptom string) (bool, error) {
	s, ok := scans.NormalizeSymptom(symptom)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownSymptom, symptom)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireStep(scans.StepSelectSymptoms); err != nil {
		return false, err
	}
	w.touch()
	return w.symptoms.Toggle(s), nil
}

// SetSymptoms replaces the selection. An empty list is allowed.
func (w *Wizard) SetSymptoms(symptoms []string) error {
	clean := make([]string, 0, len(symptoms))
	for _, raw := range symptoms {
		s, ok := scans.NormalizeSymptom(raw)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSymptom, raw)
		}
		clean = append(clean, s)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireStep(scans.StepSelectSymptoms); err != nil {
		return err
	}
	w.symptoms.Replace(clean)
	w.touch()
	return nil
}

// Back moves one step backwards. Nothing entered so far is cleared, and a
// running analysis keeps running.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case scans.StepUploadImage:
		return ErrNoPreviousStep
	case scans.StepResults:
		return ErrSessionComplete
	}
	w.step--
	w.touch()
	return nil
}

// Complete classifies the session and appends the result exactly once.
// Calling it again at Results returns the same result without appending.
func (w *Wizard) Complete(ctx context.Context) (scans.ScanResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step == scans.StepResults && w.result != nil {
		return *w.result, nil
	}
	if err := w.requireStep(scans.StepSelectSymptoms); err != nil {
		return scans.ScanResult{}, err
	}
	match, ok := w.matches[w.digest]
	if w.image == nil || !ok {
		return scans.ScanResult{}, fmt.Errorf("%w: image not analysed", ErrWrongStep)
	}

	result := scans.NewResult(w.newID(), w.id, w.clock.Now(), match, w.symptoms.Slice(), w.image.Ref)
	if err := w.results.Append(ctx, result); err != nil {
		return scans.ScanResult{}, fmt.Errorf("record result: %w", err)
	}
	w.result = &result
	w.step = scans.StepResults
	w.touch()
	w.log.Info("scan completed", "result", result.ID, "risk", result.RiskLevel, "symptoms", result.SymptomScore, "imageMatch", match)
	return result, nil
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	SessionID  scans.SessionID   `json:"sessionId"`
	Step       scans.Step        `json:"step"`
	StepTitle  string            `json:"stepTitle"`
	HasImage   bool              `json:"hasImage"`
	Image      *scans.Image      `json:"image,omitempty"`
	ImageMatch *bool             `json:"imageMatch,omitempty"`
	Symptoms   []string          `json:"symptoms"`
	Analyzing  bool              `json:"analyzing"`
	LastError  string            `json:"lastError,omitempty"`
	Result     *scans.ScanResult `json:"result,omitempty"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{
		SessionID: w.id,
		Step:      w.step,
		StepTitle: scans.StepTitles[w.step],
		HasImage:  w.image != nil,
		Symptoms:  w.symptoms.Slice(),
		UpdatedAt: w.touched,
	}
	if w.image != nil {
		meta := *w.image
		meta.Data = nil
		s.Image = &meta
	}
	if w.step >= scans.StepSelectSymptoms {
		if m, ok := w.matches[w.digest]; ok {
			s.ImageMatch = &m
		}
	}
	if w.step == scans.StepAnalyzing {
		_, s.Analyzing = w.inflight[w.digest]
	}
	if w.lastErr != nil && w.step == scans.StepAnalyzing {
		s.LastError = w.lastErr.Error()
	}
	if w.result != nil {
		r := *w.result
		s.Result = &r
	}
	return s
}

// Step is a shortcut for Snapshot().Step.
func (w *Wizard) Step() scans.Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) requireStep(want scans.Step) error {
	if w.step == want {
		return nil
	}
	if w.step == scans.StepResults {
		return ErrSessionComplete
	}
	return fmt.Errorf("%w: at %s, need %s", ErrWrongStep, w.step, want)
}

func (w *Wizard) touch() { w.touched = w.clock.Now() }
