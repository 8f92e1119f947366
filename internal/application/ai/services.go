package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/bryanwahyu/canscan/internal/domain/ai"
	"github.com/bryanwahyu/canscan/internal/domain/scans"
)

// DefaultTimeout bounds a single oracle call.
const DefaultTimeout = 30 * time.Second

// Service wraps an Oracle with a deadline and folds every failure into
// ai.ErrAnalysisUnavailable.
type Service struct {
	oracle  ai.Oracle
	timeout time.Duration
	log     logr.Logger
}

func NewService(oracle ai.Oracle, timeout time.Duration, log logr.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{oracle: oracle, timeout: timeout, log: log}
}

func (s *Service) Analyze(ctx context.Context, img scans.Image) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	match, err := s.oracle.Analyze(ctx, img)
	elapsed := time.Since(start)
	if err == nil {
		s.log.V(1).Info("image analysed", "match", match, "elapsed", elapsed)
		return match, nil
	}

	switch {
	case errors.Is(err, ai.ErrAnalysisUnavailable):
	case errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("%w: timed out after %s", ai.ErrAnalysisUnavailable, s.timeout)
	default:
		err = fmt.Errorf("%w: %w", ai.ErrAnalysisUnavailable, err)
	}
	s.log.Error(err, "image analysis failed", "elapsed", elapsed)
	return false, err
}
