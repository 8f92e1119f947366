package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bryanwahyu/canscan/internal/domain/ai"
	"github.com/bryanwahyu/canscan/internal/domain/scans"
)

type verdict struct {
	match bool
	err   error
}

// gatedOracle blocks each call until the test releases the image by name.
type gatedOracle struct {
	mu    sync.Mutex
	gates map[string]chan verdict
	calls int
}

func newGatedOracle() *gatedOracle {
	return &gatedOracle{gates: make(map[string]chan verdict)}
}

func (o *gatedOracle) gate(name string) chan verdict {
	o.mu.Lock()
	defer o.mu.Unlock()
	g, ok := o.gates[name]
	if !ok {
		g = make(chan verdict, 1)
		o.gates[name] = g
	}
	return g
}

func (o *gatedOracle) Analyze(ctx context.Context, img scans.Image) (bool, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()
	select {
	case v := <-o.gate(img.Name):
		return v.match, v.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (o *gatedOracle) release(name string, match bool, err error) {
	o.gate(name) <- verdict{match: match, err: err}
}

func (o *gatedOracle) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

type memLog struct {
	mu    sync.Mutex
	items []scans.ScanResult
	fail  error
}

func (l *memLog) Append(_ context.Context, r scans.ScanResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return l.fail
	}
	l.items = append(l.items, r)
	return nil
}

func (l *memLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func pngImage(name string, salt byte) scans.Image {
	data := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...)
	data[len(data)-1] = salt
	return scans.Image{Name: name, Data: data}
}

func waitForStep(t *testing.T, w *Wizard, want scans.Step) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.Step() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for step %s, at %s", want, w.Step())
}

func waitIdle(t *testing.T, w *Wizard) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !w.Snapshot().Analyzing {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("analysis never settled")
}

func newWizard(o Analyzer, l scans.ResultLog) *Wizard {
	return New("s1", o, l, Options{})
}

func TestWizardHappyPath(t *testing.T) {
	oracle := newGatedOracle()
	log := &memLog{}
	w := newWizard(oracle, log)
	ctx := context.Background()

	if err := w.UploadImage(pngImage("a", 1)); err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if err := w.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	snap := w.Snapshot()
	if snap.Step != scans.StepAnalyzing || !snap.Analyzing {
		t.Fatalf("expected analyzing, got %+v", snap)
	}
	if err := w.Next(ctx); !errors.Is(err, ErrAnalysisPending) {
		t.Fatalf("expected ErrAnalysisPending, got %v", err)
	}

	oracle.release("a", true, nil)
	waitForStep(t, w, scans.StepSelectSymptoms)
	if m := w.Snapshot().ImageMatch; m == nil || !*m {
		t.Fatalf("expected imageMatch=true, got %v", m)
	}

	for _, s := range []string{"Chronic cough", "Skin changes", "Unusual lumps"} {
		if _, err := w.ToggleSymptom(s); err != nil {
			t.Fatalf("ToggleSymptom(%q): %v", s, err)
		}
	}
	res, err := w.Complete(ctx)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.RiskLevel != scans.RiskHigh || res.SymptomScore != 3 || res.SessionID != "s1" {
		t.Fatalf("unexpected result %+v", res)
	}

	again, err := w.Complete(ctx)
	if err != nil || again.ID != res.ID {
		t.Fatalf("second Complete: %+v, %v", again, err)
	}
	if log.len() != 1 {
		t.Fatalf("expected exactly one append, got %d", log.len())
	}
	if err := w.Next(ctx); !errors.Is(err, ErrSessionComplete) {
		t.Fatalf("expected ErrSessionComplete, got %v", err)
	}
	if err := w.Back(); !errors.Is(err, ErrSessionComplete) {
		t.Fatalf("expected ErrSessionComplete on back, got %v", err)
	}
}

func TestWizardRequiresImage(t *testing.T) {
	w := newWizard(newGatedOracle(), &memLog{})
	if err := w.Next(context.Background()); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	if err := w.UploadImage(scans.Image{Data: []byte("plain text")}); !errors.Is(err, scans.ErrNotAnImage) {
		t.Fatalf("expected ErrNotAnImage, got %v", err)
	}
	if _, err := w.Complete(context.Background()); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected ErrWrongStep, got %v", err)
	}
	if err := w.Back(); !errors.Is(err, ErrNoPreviousStep) {
		t.Fatalf("expected ErrNoPreviousStep, got %v", err)
	}
}

func TestWizardAnalysisFailureStaysAtAnalyzing(t *testing.T) {
	oracle := newGatedOracle()
	w := newWizard(oracle, &memLog{})
	ctx := context.Background()

	_ = w.UploadImage(pngImage("a", 1))
	done, err := w.StartAnalysis(ctx)
	if err != nil {
		t.Fatalf("StartAnalysis: %v", err)
	}
	oracle.release("a", false, errors.New("model offline"))
	<-done

	snap := w.Snapshot()
	if snap.Step != scans.StepAnalyzing {
		t.Fatalf("expected to stay at analyzing, got %s", snap.Step)
	}
	if !strings.Contains(snap.LastError, ai.ErrAnalysisUnavailable.Error()) || !strings.Contains(snap.LastError, "model offline") {
		t.Fatalf("lastError = %q", snap.LastError)
	}
	if snap.ImageMatch != nil {
		t.Fatal("imageMatch must stay undefined after a failure")
	}
	if _, err := w.Complete(ctx); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected ErrWrongStep, got %v", err)
	}

	oracle.release("a", false, nil)
	if err := w.Analyze(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if w.Step() != scans.StepSelectSymptoms || oracle.callCount() != 2 {
		t.Fatalf("retry did not advance: step %s, calls %d", w.Step(), oracle.callCount())
	}
}

func TestWizardDiscardsStaleResult(t *testing.T) {
	oracle := newGatedOracle()
	w := newWizard(oracle, &memLog{})
	ctx := context.Background()

	_ = w.UploadImage(pngImage("a", 1))
	_ = w.Next(ctx)
	if err := w.Back(); err != nil {
		t.Fatalf("Back while pending: %v", err)
	}
	if err := w.UploadImage(pngImage("b", 2)); err != nil {
		t.Fatalf("replace image: %v", err)
	}
	if err := w.Next(ctx); err != nil {
		t.Fatalf("Next for b: %v", err)
	}

	oracle.release("a", true, nil)
	time.Sleep(20 * time.Millisecond)
	if w.Step() != scans.StepAnalyzing {
		t.Fatalf("stale result moved the session to %s", w.Step())
	}

	oracle.release("b", false, nil)
	waitForStep(t, w, scans.StepSelectSymptoms)
	if m := w.Snapshot().ImageMatch; m == nil || *m {
		t.Fatalf("expected imageMatch=false for b, got %v", m)
	}
}

func TestWizardBackKeepsData(t *testing.T) {
	oracle := newGatedOracle()
	w := newWizard(oracle, &memLog{})
	ctx := context.Background()

	_ = w.UploadImage(pngImage("a", 1))
	oracle.release("a", true, nil)
	if err := w.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := w.SetSymptoms([]string{"Persistent pain", "Chronic cough"}); err != nil {
		t.Fatalf("SetSymptoms: %v", err)
	}

	if err := w.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	snap := w.Snapshot()
	if snap.Step != scans.StepAnalyzing || snap.ImageMatch != nil || !snap.HasImage {
		t.Fatalf("unexpected snapshot after back: %+v", snap)
	}
	if len(snap.Symptoms) != 2 {
		t.Fatalf("symptoms lost on back: %v", snap.Symptoms)
	}

	if err := w.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if w.Step() != scans.StepSelectSymptoms {
		t.Fatalf("cached result should advance immediately, at %s", w.Step())
	}
	if oracle.callCount() != 1 {
		t.Fatalf("oracle re-invoked for the same image: %d calls", oracle.callCount())
	}
	if got := w.Snapshot().Symptoms; len(got) != 2 {
		t.Fatalf("symptoms lost: %v", got)
	}
}

func TestWizardAppendFailureKeepsSession(t *testing.T) {
	oracle := newGatedOracle()
	log := &memLog{fail: errors.New("disk full")}
	w := newWizard(oracle, log)
	ctx := context.Background()

	_ = w.UploadImage(pngImage("a", 1))
	oracle.release("a", false, nil)
	_ = w.Analyze(ctx)

	if _, err := w.Complete(ctx); err == nil {
		t.Fatal("expected append error")
	}
	if w.Step() != scans.StepSelectSymptoms {
		t.Fatalf("session moved to %s after failed append", w.Step())
	}

	log.mu.Lock()
	log.fail = nil
	log.mu.Unlock()
	res, err := w.Complete(ctx)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.RiskLevel != scans.RiskLow || log.len() != 1 {
		t.Fatalf("unexpected result %+v, appends %d", res, log.len())
	}
}

func TestWizardConcurrentCompleteAppendsOnce(t *testing.T) {
	oracle := newGatedOracle()
	log := &memLog{}
	w := newWizard(oracle, log)
	ctx := context.Background()

	_ = w.UploadImage(pngImage("a", 1))
	oracle.release("a", true, nil)
	_ = w.Analyze(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = w.Complete(ctx)
		}()
	}
	wg.Wait()
	if log.len() != 1 {
		t.Fatalf("expected one append, got %d", log.len())
	}
}

func TestWizardSymptomValidation(t *testing.T) {
	oracle := newGatedOracle()
	w := newWizard(oracle, &memLog{})
	ctx := context.Background()

	if _, err := w.ToggleSymptom("Chronic cough"); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("toggle before analysis: %v", err)
	}
	_ = w.UploadImage(pngImage("a", 1))
	oracle.release("a", false, nil)
	_ = w.Analyze(ctx)

	if _, err := w.ToggleSymptom("Headache"); !errors.Is(err, ErrUnknownSymptom) {
		t.Fatalf("expected ErrUnknownSymptom, got %v", err)
	}
	if err := w.SetSymptoms([]string{"Chronic cough", "Headache"}); !errors.Is(err, ErrUnknownSymptom) {
		t.Fatalf("expected ErrUnknownSymptom, got %v", err)
	}
	if len(w.Snapshot().Symptoms) != 0 {
		t.Fatal("rejected SetSymptoms changed the selection")
	}
	on, _ := w.ToggleSymptom("Chronic cough")
	off, _ := w.ToggleSymptom("Chronic cough")
	if !on || off {
		t.Fatalf("toggle returned %v then %v", on, off)
	}

	res, err := w.Complete(ctx)
	if err != nil {
		t.Fatalf("Complete with zero symptoms: %v", err)
	}
	if res.SymptomScore != 0 || len(res.Symptoms) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	waitIdle(t, w)
}
