package task

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// FingerprintCache persists per-task content fingerprints between runs. It is
// the staleness-cache collaborator kept outside the scheduler proper: the
// scheduler consults it through Checker.IsStale and updates it after a task
// succeeds, but never depends on it for correctness.
//
// Each fingerprint is a single small file <dir>/<task-name> holding the
// hexadecimal xxhash64 of the task's action descriptor and input contents.
type FingerprintCache struct {
	dir string
}

// NewFingerprintCache creates a cache rooted at dir. The directory is created
// lazily on the first Update.
func NewFingerprintCache(dir string) *FingerprintCache {
	return &FingerprintCache{dir: dir}
}

// Fingerprint computes the xxhash64 fingerprint of t: its action descriptor
// plus the contents of every declared input, in sorted path order so the
// result is independent of declaration order.
func Fingerprint(t *Task) (uint64, error) {
	d := xxhash.New()

	// The action descriptor participates so that editing a command re-runs
	// the task even when its inputs are unchanged.
	io.WriteString(d, string(t.Action.Kind))     //nolint:errcheck
	io.WriteString(d, strings.Join(t.Action.Argv, "\x00")) //nolint:errcheck
	io.WriteString(d, strings.Join(t.Action.Env, "\x00"))  //nolint:errcheck
	io.WriteString(d, t.Action.Call)             //nolint:errcheck
	io.WriteString(d, strings.Join(t.Action.Args, "\x00")) //nolint:errcheck

	inputs := make([]string, len(t.Inputs))
	copy(inputs, t.Inputs)
	sort.Strings(inputs)

	for _, p := range inputs {
		f, err := os.Open(p)
		if err != nil {
			return 0, fmt.Errorf("fingerprinting task %q: %w", t.Name, err)
		}
		io.WriteString(d, "\x00"+p+"\x00") //nolint:errcheck
		_, err = io.Copy(d, f)
		f.Close() //nolint:errcheck
		if err != nil {
			return 0, fmt.Errorf("fingerprinting task %q: reading %s: %w", t.Name, p, err)
		}
	}

	return d.Sum64(), nil
}

// Matches reports whether t's current fingerprint equals the cached one.
// A missing cache entry is not an error; it simply does not match.
func (c *FingerprintCache) Matches(t *Task) (bool, error) {
	data, err := os.ReadFile(c.path(t.Name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading fingerprint for task %q: %w", t.Name, err)
	}

	cached, err := strconv.ParseUint(strings.TrimSpace(string(data)), 16, 64)
	if err != nil {
		return false, nil // corrupt entry: treat as a miss
	}

	current, err := Fingerprint(t)
	if err != nil {
		return false, err
	}
	return current == cached, nil
}

// Update stores t's current fingerprint. Called by the scheduler after the
// task's action succeeds. The write is atomic (temp file + rename) so a
// crashed run never leaves a torn entry behind.
func (c *FingerprintCache) Update(t *Task) error {
	sum, err := Fingerprint(t)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating fingerprint dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".fp-*")
	if err != nil {
		return fmt.Errorf("writing fingerprint for task %q: %w", t.Name, err)
	}
	tmpName := tmp.Name()
	_, werr := fmt.Fprintf(tmp, "%016x\n", sum)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("writing fingerprint for task %q: %w", t.Name, firstErr(werr, cerr))
	}

	if err := os.Rename(tmpName, c.path(t.Name)); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("writing fingerprint for task %q: %w", t.Name, err)
	}
	return nil
}

// path returns the cache file path for a task name. Names are sanitized so a
// task named "build/linux" cannot escape the cache directory.
func (c *FingerprintCache) path(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, name)
	return filepath.Join(c.dir, safe)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
