package stub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bryanwahyu/canscan/internal/domain/scans"
)

func TestOracleExtremes(t *testing.T) {
	img := scans.Image{Data: []byte("x")}
	always := NewOracle(0, 1, 1)
	never := NewOracle(0, 0, 1)
	for i := 0; i < 20; i++ {
		if m, _ := always.Analyze(context.Background(), img); !m {
			t.Fatal("matchRate 1 returned false")
		}
		if m, _ := never.Analyze(context.Background(), img); m {
			t.Fatal("matchRate 0 returned true")
		}
	}
}

func TestOracleSameSeedSameAnswers(t *testing.T) {
	a := NewOracle(0, 0.5, 42)
	b := NewOracle(0, 0.5, 42)
	for i := 0; i < 20; i++ {
		ma, _ := a.Analyze(context.Background(), scans.Image{})
		mb, _ := b.Analyze(context.Background(), scans.Image{})
		if ma != mb {
			t.Fatalf("answers diverged at %d", i)
		}
	}
}

func TestOracleHonoursContext(t *testing.T) {
	o := NewOracle(time.Hour, 0.5, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := o.Analyze(ctx, scans.Image{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
