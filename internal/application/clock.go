// Package application holds the use-case services and what they share.
package application

import "time"

// Clock dipakai supaya waktu gampang diganti saat test.
type Clock interface {
	Now() time.Time
}

// SystemClock adalah implementasi default: time.Now() dalam UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// OrSystem returns c, or SystemClock when c is nil.
func OrSystem(c Clock) Clock {
	if c == nil {
		return SystemClock{}
	}
	return c
}
