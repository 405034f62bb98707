package task

import (
	"os"
	"time"
)

// Checker decides whether a task's action must run. It is a pure function of
// the filesystem snapshot at dispatch time: only cheap metadata reads, no
// content reads unless the task opted into fingerprinting.
type Checker struct {
	// Cache backs the optional fingerprint mode. When nil, tasks with
	// Fingerprint set fall back to the plain mtime policy.
	Cache *FingerprintCache
}

// IsStale reports whether t's action must be invoked.
//
// Policy:
//   - force is true: always stale.
//   - no declared outputs: always stale (nothing to prove currency against).
//   - any declared output missing: stale.
//   - no declared inputs: stale (conservative; cannot prove the outputs were
//     derived from anything current) — unless the task opted into
//     fingerprinting and its cached fingerprint matches.
//   - any declared input missing: stale.
//   - newest input mtime after oldest output mtime: stale.
//
// The check never mutates state and is safe to call from the scheduling
// goroutine between dispatch decisions.
func (c *Checker) IsStale(t *Task, force bool) bool {
	if force {
		return true
	}
	if len(t.Outputs) == 0 {
		return true
	}

	oldestOutput, ok := oldestMTime(t.Outputs)
	if !ok {
		return true // an output is missing
	}

	if t.Fingerprint && c.Cache != nil {
		match, err := c.Cache.Matches(t)
		if err == nil && match {
			return false
		}
		// A cache miss or error falls through to the mtime policy.
	}

	if len(t.Inputs) == 0 {
		return true
	}

	newestInput, ok := newestMTime(t.Inputs)
	if !ok {
		return true // an input is missing
	}

	return newestInput.After(oldestOutput)
}

// newestMTime returns the most recent modification time among paths. The
// second return value is false if any path does not exist or cannot be
// stat'ed.
func newestMTime(paths []string) (time.Time, bool) {
	var newest time.Time
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return time.Time{}, false
		}
		if mt := info.ModTime(); mt.After(newest) {
			newest = mt
		}
	}
	return newest, true
}

// oldestMTime returns the least recent modification time among paths. The
// second return value is false if any path does not exist or cannot be
// stat'ed.
func oldestMTime(paths []string) (time.Time, bool) {
	var oldest time.Time
	for i, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return time.Time{}, false
		}
		if mt := info.ModTime(); i == 0 || mt.Before(oldest) {
			oldest = mt
		}
	}
	return oldest, true
}
