package application

import "time"

// Clock interface supaya gampang ditest
type Clock interface {
	Now() time.Time
}

// SystemClock implementasi default, pakai time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant. Tracker dates and result
// timestamps derived from it are reproducible.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
