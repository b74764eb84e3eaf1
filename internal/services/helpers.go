package services

import (
	"context"
	"time"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// startOfDayUTC truncates the supplied instant to UTC midnight. Every daily
// boundary in the product (Open Page grants, the invite cap) uses this clock.
func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
