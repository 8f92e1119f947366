package ai

import (
	"context"

	"github.com/bryanwahyu/canscan/internal/domain/scans"
)

// Oracle reports whether an image matches the screening model's target
// pattern.
type Oracle interface {
	Analyze(ctx context.Context, img scans.Image) (bool, error)
}
