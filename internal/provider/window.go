package provider

import "time"

const windowBuckets = 6

// rollingWindow tracks call/error counts over a sliding time window
// using fixed buckets, so memory stays constant regardless of call
// volume. Not safe for concurrent use; the registry serializes access.
type rollingWindow struct {
	bucketDur time.Duration
	buckets   [windowBuckets]bucket
}

type bucket struct {
	start  time.Time
	calls  int
	errors int
}

func newRollingWindow(window time.Duration) *rollingWindow {
	if window <= 0 {
		window = time.Minute
	}
	return &rollingWindow{bucketDur: window / windowBuckets}
}

func (w *rollingWindow) record(now time.Time, failed bool) {
	b := w.bucket(now)
	b.calls++
	if failed {
		b.errors++
	}
}

// sample returns the call count and error rate across live buckets
func (w *rollingWindow) sample(now time.Time) (calls int, errorRate float64) {
	oldest := now.Add(-w.bucketDur * windowBuckets)
	var errs int
	for i := range w.buckets {
		b := &w.buckets[i]
		if b.start.Before(oldest) {
			continue
		}
		calls += b.calls
		errs += b.errors
	}
	if calls == 0 {
		return 0, 0
	}
	return calls, float64(errs) / float64(calls)
}

func (w *rollingWindow) errorRate(now time.Time) float64 {
	_, rate := w.sample(now)
	return rate
}

// bucket returns the live bucket for now, recycling stale ones
func (w *rollingWindow) bucket(now time.Time) *bucket {
	start := now.Truncate(w.bucketDur)
	idx := int(start.UnixNano()/int64(w.bucketDur)) % windowBuckets
	if idx < 0 {
		idx += windowBuckets
	}
	b := &w.buckets[idx]
	if !b.start.Equal(start) {
		*b = bucket{start: start}
	}
	return b
}
