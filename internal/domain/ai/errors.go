package ai

import (
	"errors"
	"fmt"
)

// ErrAnalysisUnavailable means the oracle could not produce an answer: it
// failed, timed out or returned something unreadable.
var ErrAnalysisUnavailable = errors.New("image analysis unavailable")

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
// It also matches ErrAnalysisUnavailable.
var ErrQuotaExceeded = fmt.Errorf("ai quota exceeded: %w", ErrAnalysisUnavailable)
